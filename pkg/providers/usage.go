package providers

import "log/slog"

// Usage is the canonical token accounting record.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// ReasoningTokens is the reasoning share of CompletionTokens, for
	// providers that report it separately.
	ReasoningTokens int
}

// Normalize enforces the canonical invariant total = prompt + completion.
// When a provider's reported total disagrees with the component sum, the
// computed sum wins and a warning is logged.
func (u Usage) Normalize(provider string) Usage {
	sum := u.PromptTokens + u.CompletionTokens
	if u.TotalTokens != 0 && u.TotalTokens != sum {
		slog.Warn("provider-reported total_tokens disagrees with component sum",
			"provider", provider,
			"reported", u.TotalTokens,
			"computed", sum,
		)
	}
	u.TotalTokens = sum
	return u
}

// UsageFromAnthropic maps Anthropic's input/output counters.
func UsageFromAnthropic(inputTokens, outputTokens int) Usage {
	return Usage{
		PromptTokens:     inputTokens,
		CompletionTokens: outputTokens,
		TotalTokens:      inputTokens + outputTokens,
	}
}

// UsageFromVertex maps Vertex usage metadata. Thought tokens are folded
// into the completion count and surfaced as reasoning tokens.
func UsageFromVertex(promptTokens, candidatesTokens, thoughtsTokens int) Usage {
	completion := candidatesTokens + thoughtsTokens
	return Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completion,
		TotalTokens:      promptTokens + completion,
		ReasoningTokens:  thoughtsTokens,
	}
}
