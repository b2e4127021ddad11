package proxy

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/types"
)

func parseChat(t *testing.T, body string) *types.ChatCompletionRequest {
	t.Helper()
	r := httptest.NewRequest("POST", "/v1/chat/completions", bytes.NewBufferString(body))
	req, err := ParseChatCompletionRequest(r)
	if err != nil {
		t.Fatalf("ParseChatCompletionRequest failed: %v", err)
	}
	return req
}

func TestParseChatCompletionRequest_Minimal(t *testing.T) {
	req := parseChat(t, `{"model":"gpt-4o-mini","messages":[{"role":"user","content":"hi"}]}`)
	if req.Model != "gpt-4o-mini" || len(req.Messages) != 1 {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestParseChatCompletionRequest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing model", `{"messages":[{"role":"user","content":"x"}]}`},
		{"empty messages", `{"model":"m","messages":[]}`},
		{"n > 1", `{"model":"m","n":3,"messages":[{"role":"user","content":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			if _, err := ParseChatCompletionRequest(r); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestStopSequences_BothForms(t *testing.T) {
	req := parseChat(t, `{"model":"m","stop":"END","messages":[{"role":"user","content":"x"}]}`)
	if len(req.Stop) != 1 || req.Stop[0] != "END" {
		t.Errorf("single stop = %v", req.Stop)
	}

	req = parseChat(t, `{"model":"m","stop":["a","b"],"messages":[{"role":"user","content":"x"}]}`)
	if len(req.Stop) != 2 {
		t.Errorf("list stop = %v", req.Stop)
	}
}

func TestToCanonicalChat_Multimodal(t *testing.T) {
	req := parseChat(t, `{
		"model": "gemini-2.5-flash",
		"messages": [{
			"role": "user",
			"content": [
				{"type": "text", "text": "what painting?"},
				{"type": "image_url", "image_url": {"url": "https://example.com/Starry_Night.jpg"}}
			]
		}]
	}`)

	canonical, err := ToCanonicalChat(req)
	if err != nil {
		t.Fatalf("ToCanonicalChat failed: %v", err)
	}

	parts := canonical.Messages[0].Parts
	if len(parts) != 2 {
		t.Fatalf("parts = %d", len(parts))
	}
	if parts[0].Type != providers.PartText || parts[0].Text != "what painting?" {
		t.Errorf("text part = %+v", parts[0])
	}
	if parts[1].Type != providers.PartImageURL || parts[1].ImageURL.URL != "https://example.com/Starry_Night.jpg" {
		t.Errorf("image part = %+v", parts[1])
	}
}

func TestToCanonicalChat_ToolChoiceForms(t *testing.T) {
	base := `{"model":"m","messages":[{"role":"user","content":"x"}],"tool_choice":%s}`

	for raw, want := range map[string]string{
		`"auto"`:     providers.ToolChoiceAuto,
		`"none"`:     providers.ToolChoiceNone,
		`"required"`: providers.ToolChoiceRequired,
	} {
		req := parseChat(t, bytesReplace(base, raw))
		canonical, err := ToCanonicalChat(req)
		if err != nil {
			t.Fatalf("tool_choice %s: %v", raw, err)
		}
		if canonical.ToolChoice.Mode != want {
			t.Errorf("tool_choice %s -> %q", raw, canonical.ToolChoice.Mode)
		}
	}

	req := parseChat(t, bytesReplace(base, `{"type":"function","function":{"name":"get_weather"}}`))
	canonical, err := ToCanonicalChat(req)
	if err != nil {
		t.Fatalf("selector tool_choice: %v", err)
	}
	if canonical.ToolChoice.Mode != providers.ToolChoiceFunction || canonical.ToolChoice.FunctionName != "get_weather" {
		t.Errorf("selector = %+v", canonical.ToolChoice)
	}

	req = parseChat(t, bytesReplace(base, `"sometimes"`))
	if _, err := ToCanonicalChat(req); err == nil {
		t.Error("expected error for unknown tool_choice mode")
	}
}

func bytesReplace(format, raw string) string {
	return string(bytes.Replace([]byte(format), []byte("%s"), []byte(raw), 1))
}

func TestToCanonicalChat_ToolCallsRoundTrip(t *testing.T) {
	req := parseChat(t, `{
		"model": "m",
		"messages": [
			{"role": "user", "content": "weather?"},
			{"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"Tokyo\"}"}}
			]},
			{"role": "tool", "tool_call_id": "call_1", "content": "sunny"}
		]
	}`)

	canonical, err := ToCanonicalChat(req)
	if err != nil {
		t.Fatalf("ToCanonicalChat failed: %v", err)
	}

	assistant := canonical.Messages[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].Function.Name != "get_weather" {
		t.Errorf("assistant tool calls = %+v", assistant.ToolCalls)
	}
	tool := canonical.Messages[2]
	if tool.Role != providers.RoleTool || tool.ToolCallID != "call_1" || tool.Content != "sunny" {
		t.Errorf("tool message = %+v", tool)
	}
}

func TestEmbeddingRequest_InputForms(t *testing.T) {
	var req types.EmbeddingRequest
	if err := json.Unmarshal([]byte(`{"model":"e","input":"hello"}`), &req); err != nil {
		t.Fatal(err)
	}
	got, err := req.InputStrings()
	if err != nil || len(got) != 1 || got[0] != "hello" {
		t.Errorf("single input = %v, %v", got, err)
	}

	if err := json.Unmarshal([]byte(`{"model":"e","input":["a","b"]}`), &req); err != nil {
		t.Fatal(err)
	}
	got, err = req.InputStrings()
	if err != nil || len(got) != 2 {
		t.Errorf("list input = %v, %v", got, err)
	}

	if err := json.Unmarshal([]byte(`{"model":"e","input":42}`), &req); err != nil {
		t.Fatal(err)
	}
	if _, err := req.InputStrings(); err == nil {
		t.Error("expected error for numeric input")
	}
}
