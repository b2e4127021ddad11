package providers

import "testing"

func TestUsage_NormalizeComputedSumWins(t *testing.T) {
	u := Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 99}
	got := u.Normalize("openai")
	if got.TotalTokens != 30 {
		t.Errorf("TotalTokens = %d, want 30 (computed sum wins)", got.TotalTokens)
	}
}

func TestUsage_NormalizeFillsMissingTotal(t *testing.T) {
	u := Usage{PromptTokens: 5, CompletionTokens: 7}
	got := u.Normalize("anthropic")
	if got.TotalTokens != 12 {
		t.Errorf("TotalTokens = %d, want 12", got.TotalTokens)
	}
}

func TestUsageFromAnthropic(t *testing.T) {
	u := UsageFromAnthropic(100, 50)
	if u.PromptTokens != 100 || u.CompletionTokens != 50 || u.TotalTokens != 150 {
		t.Errorf("unexpected usage: %+v", u)
	}
	if u.ReasoningTokens != 0 {
		t.Errorf("ReasoningTokens = %d, want 0", u.ReasoningTokens)
	}
}

func TestUsageFromVertex_FoldsThoughts(t *testing.T) {
	u := UsageFromVertex(40, 30, 25)
	if u.PromptTokens != 40 {
		t.Errorf("PromptTokens = %d, want 40", u.PromptTokens)
	}
	if u.CompletionTokens != 55 {
		t.Errorf("CompletionTokens = %d, want 55 (candidates + thoughts)", u.CompletionTokens)
	}
	if u.ReasoningTokens != 25 {
		t.Errorf("ReasoningTokens = %d, want 25", u.ReasoningTokens)
	}
	if u.TotalTokens != 95 {
		t.Errorf("TotalTokens = %d, want 95", u.TotalTokens)
	}
}
