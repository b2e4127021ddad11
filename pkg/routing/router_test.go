package routing

import (
	"errors"
	"testing"

	"github.com/MiXaiLL76/auto-ai-router/pkg/config"
	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
)

func testRouter() *Router {
	store := credential.NewStore([]*credential.Credential{
		credential.New("a", "openai", "sk-a", nil),
	}, credential.DefaultBanPolicy())

	return NewRouter([]config.ModelBinding{
		{Alias: "gpt-4o-mini", Provider: "openai", Capabilities: []string{"streaming", "tools", "vision"}},
		{Alias: "gpt-4o", Provider: "openai", Model: "gpt-4o-2024-11-20", Capabilities: []string{"streaming"}},
		{Alias: "text-embedding-3-small", Provider: "openai", Capabilities: []string{"embedding"}},
	}, store)
}

func TestRouter_Resolve(t *testing.T) {
	r := testRouter()

	b, err := r.Resolve("gpt-4o-mini")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !b.SupportsStreaming || !b.SupportsTools || !b.SupportsVision {
		t.Errorf("capabilities = %+v", b)
	}
	if b.Model != "gpt-4o-mini" {
		t.Errorf("native model = %q, want alias fallback", b.Model)
	}

	b, _ = r.Resolve("gpt-4o")
	if b.Model != "gpt-4o-2024-11-20" {
		t.Errorf("native model = %q", b.Model)
	}

	_, err = r.Resolve("missing")
	var unknown *UnknownModelError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownModelError, got %v", err)
	}
}

func TestRouter_Pick(t *testing.T) {
	r := testRouter()

	b, cred, err := r.Pick("gpt-4o-mini")
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if b.Alias != "gpt-4o-mini" || cred.Label != "a" {
		t.Errorf("pick = %v, %v", b.Alias, cred.Label)
	}
}

func TestRouter_SetBindingsSwap(t *testing.T) {
	r := testRouter()

	r.SetBindings([]config.ModelBinding{
		{Alias: "claude-opus-4-1", Provider: "anthropic"},
	})

	if _, err := r.Resolve("gpt-4o-mini"); err == nil {
		t.Error("old binding survived swap")
	}
	if _, err := r.Resolve("claude-opus-4-1"); err != nil {
		t.Errorf("new binding missing: %v", err)
	}

	bindings := r.Bindings()
	if len(bindings) != 1 || bindings[0].Alias != "claude-opus-4-1" {
		t.Errorf("bindings = %+v", bindings)
	}
}
