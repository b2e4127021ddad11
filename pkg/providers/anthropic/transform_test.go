package anthropic

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

func TestBuildMessagesRequest_SystemExtraction(t *testing.T) {
	req := &providers.ChatRequest{
		Model: "claude-opus-4-1",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "Be terse."},
			{Role: providers.RoleSystem, Content: ""},
			{Role: providers.RoleSystem, Content: "Answer in French."},
			{Role: providers.RoleUser, Content: "hello"},
		},
	}

	out, err := buildMessagesRequest(req)
	if err != nil {
		t.Fatalf("buildMessagesRequest failed: %v", err)
	}

	if out.System != "Be terse.\n\nAnswer in French." {
		t.Errorf("system = %q", out.System)
	}
	if len(out.Messages) != 1 || out.Messages[0].Role != providers.RoleUser {
		t.Errorf("messages = %+v", out.Messages)
	}
}

func TestBuildMessagesRequest_MaxTokensDefault(t *testing.T) {
	req := &providers.ChatRequest{
		Model:    "claude-opus-4-1",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	}
	out, err := buildMessagesRequest(req)
	if err != nil {
		t.Fatalf("buildMessagesRequest failed: %v", err)
	}
	if out.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want default 4096", out.MaxTokens)
	}

	limit := 128
	req.MaxTokens = &limit
	out, _ = buildMessagesRequest(req)
	if out.MaxTokens != 128 {
		t.Errorf("MaxTokens = %d, want 128", out.MaxTokens)
	}
}

func TestBuildMessagesRequest_StopSequences(t *testing.T) {
	req := &providers.ChatRequest{
		Model:    "claude-opus-4-1",
		Stop:     []string{"END"},
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	}
	out, _ := buildMessagesRequest(req)
	if len(out.StopSequences) != 1 || out.StopSequences[0] != "END" {
		t.Errorf("StopSequences = %v", out.StopSequences)
	}
}

func TestBuildMessagesRequest_Images(t *testing.T) {
	req := &providers.ChatRequest{
		Model: "claude-opus-4-1",
		Messages: []providers.Message{{
			Role: providers.RoleUser,
			Parts: []providers.ContentPart{
				{Type: providers.PartText, Text: "what painting?"},
				{Type: providers.PartImageURL, ImageURL: &providers.ImageURLPart{URL: "https://example.com/starry.jpg"}},
				{Type: providers.PartImageURL, ImageURL: &providers.ImageURLPart{URL: "data:image/png;base64,AAAA"}},
			},
		}},
	}

	out, err := buildMessagesRequest(req)
	if err != nil {
		t.Fatalf("buildMessagesRequest failed: %v", err)
	}

	blocks := out.Messages[0].Content
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}
	if blocks[1].Type != "image" || blocks[1].Source.Type != "url" || blocks[1].Source.URL != "https://example.com/starry.jpg" {
		t.Errorf("url image block = %+v", blocks[1])
	}
	if blocks[2].Source.Type != "base64" || blocks[2].Source.MediaType != "image/png" || blocks[2].Source.Data != "AAAA" {
		t.Errorf("base64 image block = %+v", blocks[2])
	}
}

func TestBuildMessagesRequest_ToolMapping(t *testing.T) {
	req := &providers.ChatRequest{
		Model: "claude-opus-4-1",
		Tools: []providers.Tool{{
			Type: "function",
			Function: providers.FunctionDefinition{
				Name:        "get_weather",
				Description: "Get the weather",
				Parameters:  map[string]any{"type": "object"},
			},
		}},
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "weather?"}},
	}

	out, _ := buildMessagesRequest(req)
	if len(out.Tools) != 1 {
		t.Fatalf("tools = %d", len(out.Tools))
	}
	if out.Tools[0].Name != "get_weather" || out.Tools[0].InputSchema == nil {
		t.Errorf("tool = %+v", out.Tools[0])
	}
}

func TestBuildMessagesRequest_ToolChoice(t *testing.T) {
	base := func() *providers.ChatRequest {
		return &providers.ChatRequest{
			Model: "claude-opus-4-1",
			Tools: []providers.Tool{{
				Type:     "function",
				Function: providers.FunctionDefinition{Name: "f"},
			}},
			Messages: []providers.Message{{Role: providers.RoleUser, Content: "x"}},
		}
	}

	req := base()
	req.ToolChoice = &providers.ToolChoice{Mode: providers.ToolChoiceAuto}
	out, _ := buildMessagesRequest(req)
	if out.ToolChoice != nil {
		t.Errorf("auto should omit tool_choice, got %+v", out.ToolChoice)
	}

	req = base()
	req.ToolChoice = &providers.ToolChoice{Mode: providers.ToolChoiceRequired}
	out, _ = buildMessagesRequest(req)
	if out.ToolChoice == nil || out.ToolChoice.Type != "any" {
		t.Errorf("required tool_choice = %+v", out.ToolChoice)
	}

	req = base()
	req.ToolChoice = &providers.ToolChoice{Mode: providers.ToolChoiceNone}
	out, _ = buildMessagesRequest(req)
	if len(out.Tools) != 0 {
		t.Error("none should omit tools entirely")
	}

	req = base()
	req.ToolChoice = &providers.ToolChoice{Mode: providers.ToolChoiceFunction, FunctionName: "f"}
	out, _ = buildMessagesRequest(req)
	if out.ToolChoice == nil || out.ToolChoice.Type != "tool" || out.ToolChoice.Name != "f" {
		t.Errorf("function tool_choice = %+v", out.ToolChoice)
	}
}

func TestBuildMessagesRequest_ToolCallRoundTrip(t *testing.T) {
	req := &providers.ChatRequest{
		Model: "claude-opus-4-1",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "weather in Tokyo?"},
			{
				Role: providers.RoleAssistant,
				ToolCalls: []providers.ToolCall{{
					ID:   "toolu_1",
					Type: "function",
					Function: providers.FunctionCall{
						Name:      "get_weather",
						Arguments: `{"city":"Tokyo"}`,
					},
				}},
			},
			{Role: providers.RoleTool, ToolCallID: "toolu_1", Content: "sunny, 21C"},
			{Role: providers.RoleUser, Content: "and tomorrow?"},
		},
	}

	out, err := buildMessagesRequest(req)
	if err != nil {
		t.Fatalf("buildMessagesRequest failed: %v", err)
	}

	if len(out.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(out.Messages))
	}

	assistant := out.Messages[1]
	if assistant.Role != providers.RoleAssistant || len(assistant.Content) != 1 {
		t.Fatalf("assistant turn = %+v", assistant)
	}
	toolUse := assistant.Content[0]
	if toolUse.Type != "tool_use" || toolUse.ID != "toolu_1" || toolUse.Name != "get_weather" {
		t.Errorf("tool_use block = %+v", toolUse)
	}
	if toolUse.Input["city"] != "Tokyo" {
		t.Errorf("tool input = %v", toolUse.Input)
	}

	// The tool result attaches to the next user turn.
	user := out.Messages[2]
	if user.Role != providers.RoleUser || len(user.Content) != 2 {
		t.Fatalf("user turn = %+v", user)
	}
	if user.Content[0].Type != "tool_result" || user.Content[0].ToolUseID != "toolu_1" || user.Content[0].Content != "sunny, 21C" {
		t.Errorf("tool_result block = %+v", user.Content[0])
	}
	if user.Content[1].Type != "text" || user.Content[1].Text != "and tomorrow?" {
		t.Errorf("text block = %+v", user.Content[1])
	}
}

func TestBuildMessagesRequest_TrailingToolResult(t *testing.T) {
	req := &providers.ChatRequest{
		Model: "claude-opus-4-1",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "go"},
			{
				Role: providers.RoleAssistant,
				ToolCalls: []providers.ToolCall{{
					ID:       "toolu_9",
					Type:     "function",
					Function: providers.FunctionCall{Name: "f", Arguments: `{}`},
				}},
			},
			{Role: providers.RoleTool, ToolCallID: "toolu_9", Content: "done"},
		},
	}

	out, err := buildMessagesRequest(req)
	if err != nil {
		t.Fatalf("buildMessagesRequest failed: %v", err)
	}
	last := out.Messages[len(out.Messages)-1]
	if last.Role != providers.RoleUser || last.Content[0].Type != "tool_result" {
		t.Errorf("trailing tool result turn = %+v", last)
	}
}

func TestBuildMessagesRequest_BadToolArguments(t *testing.T) {
	req := &providers.ChatRequest{
		Model: "claude-opus-4-1",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "go"},
			{
				Role: providers.RoleAssistant,
				ToolCalls: []providers.ToolCall{{
					ID:       "toolu_9",
					Function: providers.FunctionCall{Name: "f", Arguments: `not-json`},
				}},
			},
		},
	}

	_, err := buildMessagesRequest(req)
	var adapterErr *providers.AdapterError
	if !errors.As(err, &adapterErr) {
		t.Fatalf("expected AdapterError, got %v", err)
	}
}

func TestParseMessagesResponse(t *testing.T) {
	resp := &messagesResponse{
		ID:    "msg_01",
		Model: "claude-opus-4-1-20250805",
		Content: []contentBlock{
			{Type: "text", Text: "Let me check. "},
			{Type: "tool_use", ID: "toolu_2", Name: "get_weather", Input: map[string]any{"city": "Tokyo"}},
			{Type: "text", Text: "One moment."},
		},
		StopReason: "tool_use",
		Usage:      wireUsage{InputTokens: 50, OutputTokens: 30},
	}

	out, err := parseMessagesResponse(resp, "claude-opus-4-1")
	if err != nil {
		t.Fatalf("parseMessagesResponse failed: %v", err)
	}

	if out.Content != "Let me check. One moment." {
		t.Errorf("content = %q", out.Content)
	}
	if len(out.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d", len(out.ToolCalls))
	}
	// Anthropic supplies IDs; they pass through.
	if out.ToolCalls[0].ID != "toolu_2" {
		t.Errorf("tool call id = %q", out.ToolCalls[0].ID)
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(out.ToolCalls[0].Function.Arguments), &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}
	if args["city"] != "Tokyo" {
		t.Errorf("args = %v", args)
	}

	if out.FinishReason != providers.FinishReasonToolCalls {
		t.Errorf("finish reason = %q", out.FinishReason)
	}
	if out.Usage.TotalTokens != 80 {
		t.Errorf("total tokens = %d", out.Usage.TotalTokens)
	}
	if out.Model != "claude-opus-4-1" {
		t.Errorf("model = %q, want alias", out.Model)
	}
}

func TestNormalizeStopReason(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"end_turn", providers.FinishReasonStop},
		{"stop_sequence", providers.FinishReasonStop},
		{"max_tokens", providers.FinishReasonLength},
		{"tool_use", providers.FinishReasonToolCalls},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeStopReason(tt.in); got != tt.want {
			t.Errorf("normalizeStopReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
