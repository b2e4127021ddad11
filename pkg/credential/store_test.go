package credential

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestStore(creds ...*Credential) *Store {
	return NewStore(creds, DefaultBanPolicy())
}

func TestStore_PickRoundRobin(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	b := New("b", "openai", "sk-b", nil)
	c := New("c", "openai", "sk-c", nil)
	store := newTestStore(a, b, c)

	counts := make(map[string]int)
	for i := 0; i < 300; i++ {
		cred, err := store.Pick("gpt-4o-mini")
		if err != nil {
			t.Fatalf("pick %d failed: %v", i, err)
		}
		counts[cred.Label]++
	}

	min, max := 300, 0
	for _, n := range counts {
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	if max-min > 1 {
		t.Errorf("uneven distribution: %v", counts)
	}
}

func TestStore_PickSkipsBanned(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	b := New("b", "openai", "sk-b", nil)
	store := newTestStore(a, b)

	store.Ban(a, BanRateLimit, time.Minute)

	for i := 0; i < 10; i++ {
		cred, err := store.Pick("gpt-4o-mini")
		if err != nil {
			t.Fatalf("pick failed: %v", err)
		}
		if cred.Label != "b" {
			t.Fatalf("pick %d returned banned credential %q", i, cred.Label)
		}
	}
}

func TestStore_PickLazyUnban(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	store := newTestStore(a)

	now := time.Now()
	store.now = func() time.Time { return now }

	store.Ban(a, BanRateLimit, 30*time.Second)

	if _, err := store.Pick("gpt-4o-mini"); err == nil {
		t.Fatal("expected pick to fail while banned")
	}

	// Advance past the ban without running the sweep.
	now = now.Add(31 * time.Second)
	cred, err := store.Pick("gpt-4o-mini")
	if err != nil {
		t.Fatalf("pick after expiry failed: %v", err)
	}
	if cred.Label != "a" {
		t.Fatalf("unexpected credential %q", cred.Label)
	}
}

func TestStore_PickModelRestrictions(t *testing.T) {
	a := New("a", "openai", "sk-a", []string{"model-x"})
	b := New("b", "openai", "sk-b", []string{"model-x", "model-y"})
	c := New("c", "openai", "sk-c", []string{"model-y"})
	store := newTestStore(a, b, c)

	// Overlapping model sets: Y alternates between b and c, so b does not
	// starve either model.
	seenX := make(map[string]int)
	seenY := make(map[string]int)
	for i := 0; i < 100; i++ {
		cx, err := store.Pick("model-x")
		if err != nil {
			t.Fatalf("pick model-x: %v", err)
		}
		seenX[cx.Label]++

		cy, err := store.Pick("model-y")
		if err != nil {
			t.Fatalf("pick model-y: %v", err)
		}
		seenY[cy.Label]++
	}

	if seenX["c"] != 0 {
		t.Errorf("model-x served by ineligible credential c")
	}
	if seenY["a"] != 0 {
		t.Errorf("model-y served by ineligible credential a")
	}
	if seenX["a"] == 0 || seenX["b"] == 0 {
		t.Errorf("model-x starved a credential: %v", seenX)
	}
	if seenY["b"] == 0 || seenY["c"] == 0 {
		t.Errorf("model-y starved a credential: %v", seenY)
	}
}

func TestStore_PickNoCredentials(t *testing.T) {
	store := newTestStore(New("a", "openai", "sk-a", []string{"other"}))

	_, err := store.Pick("gpt-4o-mini")
	var noCred *NoEligibleCredentialError
	if !errors.As(err, &noCred) {
		t.Fatalf("expected NoEligibleCredentialError, got %v", err)
	}
	if noCred.AllBanned {
		t.Error("expected AllBanned=false for unconfigured model")
	}
}

func TestStore_PickAllBanned(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	store := newTestStore(a)
	store.Ban(a, BanAuth, 0)

	_, err := store.Pick("gpt-4o-mini")
	var noCred *NoEligibleCredentialError
	if !errors.As(err, &noCred) {
		t.Fatalf("expected NoEligibleCredentialError, got %v", err)
	}
	if !noCred.AllBanned {
		t.Error("expected AllBanned=true")
	}
}

func TestStore_ConcurrentPicksDisjoint(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	b := New("b", "openai", "sk-b", nil)
	store := newTestStore(a, b)

	var wg sync.WaitGroup
	picks := make([]*Credential, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			cred, err := store.Pick("gpt-4o-mini")
			if err != nil {
				t.Errorf("pick failed: %v", err)
				return
			}
			picks[i] = cred
		}(i)
	}
	wg.Wait()

	if picks[0] != nil && picks[0] == picks[1] {
		t.Error("concurrent picks returned the same credential with two eligible")
	}
}

func TestStore_BanRetryAfterWins(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	store := newTestStore(a)

	now := time.Now()
	store.now = func() time.Time { return now }

	store.Ban(a, BanRateLimit, 60*time.Second)

	store.mu.Lock()
	until := a.bannedUntil
	store.mu.Unlock()

	want := now.Add(60 * time.Second)
	if !until.Equal(want) {
		t.Errorf("bannedUntil = %v, want %v", until, want)
	}
}

func TestStore_MarkSuccessResets(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	store := newTestStore(a)

	store.Ban(a, BanServerError, 0)
	store.Ban(a, BanServerError, 0)
	store.MarkSuccess(a)

	store.mu.Lock()
	failures := a.consecutiveFailures
	banned := !a.bannedUntil.IsZero()
	store.mu.Unlock()

	if failures != 0 {
		t.Errorf("consecutiveFailures = %d after success", failures)
	}
	if banned {
		t.Error("credential still banned after success")
	}
}

func TestStore_SweepExpired(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	b := New("b", "openai", "sk-b", nil)
	store := newTestStore(a, b)

	now := time.Now()
	store.now = func() time.Time { return now }

	store.Ban(a, BanRateLimit, 10*time.Second)
	store.Ban(b, BanRateLimit, 120*time.Second)

	now = now.Add(30 * time.Second)
	if cleared := store.SweepExpired(); cleared != 1 {
		t.Errorf("SweepExpired cleared %d, want 1", cleared)
	}

	stats := store.Stats()
	if stats.Banned != 1 || stats.Available != 1 {
		t.Errorf("unexpected stats after sweep: %+v", stats)
	}
}

func TestStore_Stats(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	b := New("b", "anthropic", "sk-b", nil)
	store := newTestStore(a, b)

	store.Ban(b, BanAuth, 0)

	stats := store.Stats()
	if stats.Total != 2 || stats.Available != 1 || stats.Banned != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestStore_Reconcile(t *testing.T) {
	a := New("a", "openai", "sk-a", nil)
	b := New("b", "openai", "sk-b", nil)
	store := newTestStore(a, b)

	store.Ban(a, BanRateLimit, time.Hour)

	next := []*Credential{
		New("a", "openai", "sk-a-rotated", nil),
		New("c", "openai", "sk-c", nil),
	}
	store.Reconcile(next)

	stats := store.Stats()
	if stats.Total != 2 {
		t.Fatalf("total = %d after reconcile, want 2", stats.Total)
	}
	// a kept its ban state but got the rotated key.
	if stats.Banned != 1 {
		t.Errorf("banned = %d after reconcile, want 1 (state preserved)", stats.Banned)
	}
	if a.APIKey != "sk-a-rotated" {
		t.Errorf("APIKey = %q, want rotated key", a.APIKey)
	}
}
