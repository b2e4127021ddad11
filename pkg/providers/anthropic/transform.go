package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// Anthropic Messages API wire types.

type messagesRequest struct {
	Model         string        `json:"model"`
	Messages      []wireMessage `json:"messages"`
	System        string        `json:"system,omitempty"`
	MaxTokens     int           `json:"max_tokens"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
	Tools         []wireTool    `json:"tools,omitempty"`
	ToolChoice    *toolChoice   `json:"tool_choice,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Metadata      *metadata     `json:"metadata,omitempty"`
}

type metadata struct {
	UserID string `json:"user_id,omitempty"`
}

type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock covers text, image, tool_use and tool_result blocks.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	Source *imageSource `json:"source,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"` // "url" or "base64"
	URL       string `json:"url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"` // "auto", "any", "tool"
	Name string `json:"name,omitempty"`
}

type messagesResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []contentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence,omitempty"`
	Usage        wireUsage      `json:"usage"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// defaultMaxTokens applies when the client omits max_tokens; the provider
// requires the field.
const defaultMaxTokens = 4096

// buildMessagesRequest converts a canonical chat request to the Anthropic
// Messages form.
func buildMessagesRequest(req *providers.ChatRequest) (*messagesRequest, error) {
	out := &messagesRequest{
		Model:         req.Model,
		MaxTokens:     defaultMaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		Stream:        req.Stream,
		StopSequences: req.Stop,
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.User != "" {
		out.Metadata = &metadata{UserID: req.User}
	}

	// System messages move to the top-level system field, in order.
	var systemParts []string
	for _, msg := range req.Messages {
		if msg.Role == providers.RoleSystem {
			if text := msg.Text(); text != "" {
				systemParts = append(systemParts, text)
			}
		}
	}
	out.System = strings.Join(systemParts, "\n\n")

	// Tool results attach to the next user turn as tool_result blocks.
	var pendingToolResults []contentBlock

	flushToolResults := func() {
		if len(pendingToolResults) > 0 {
			out.Messages = append(out.Messages, wireMessage{
				Role:    providers.RoleUser,
				Content: pendingToolResults,
			})
			pendingToolResults = nil
		}
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			continue

		case providers.RoleTool:
			pendingToolResults = append(pendingToolResults, contentBlock{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Text(),
			})

		case providers.RoleUser:
			blocks, err := buildContentBlocks(msg)
			if err != nil {
				return nil, err
			}
			if len(pendingToolResults) > 0 {
				blocks = append(pendingToolResults, blocks...)
				pendingToolResults = nil
			}
			out.Messages = append(out.Messages, wireMessage{
				Role:    providers.RoleUser,
				Content: blocks,
			})

		case providers.RoleAssistant:
			flushToolResults()
			blocks, err := buildContentBlocks(msg)
			if err != nil {
				return nil, err
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]any
				if tc.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
						return nil, &providers.AdapterError{
							Provider: "anthropic",
							Message:  fmt.Sprintf("tool call %q has non-object arguments", tc.ID),
							Cause:    err,
						}
					}
				}
				blocks = append(blocks, contentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: input,
				})
			}
			out.Messages = append(out.Messages, wireMessage{
				Role:    providers.RoleAssistant,
				Content: blocks,
			})

		default:
			return nil, &providers.AdapterError{
				Provider: "anthropic",
				Message:  fmt.Sprintf("unsupported message role %q", msg.Role),
			}
		}
	}
	flushToolResults()

	if err := applyTools(out, req); err != nil {
		return nil, err
	}

	return out, nil
}

// buildContentBlocks converts message content into provider blocks.
func buildContentBlocks(msg providers.Message) ([]contentBlock, error) {
	if len(msg.Parts) == 0 {
		if msg.Content == "" {
			return nil, nil
		}
		return []contentBlock{{Type: "text", Text: msg.Content}}, nil
	}

	blocks := make([]contentBlock, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Type {
		case providers.PartText:
			if p.Text != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: p.Text})
			}

		case providers.PartImageURL:
			block, err := buildImageBlock(p.ImageURL.URL)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)

		default:
			return nil, &providers.AdapterError{
				Provider: "anthropic",
				Message:  fmt.Sprintf("unsupported content part type %q", p.Type),
			}
		}
	}
	return blocks, nil
}

func buildImageBlock(url string) (contentBlock, error) {
	switch {
	case providers.IsHTTPURL(url):
		return contentBlock{
			Type:   "image",
			Source: &imageSource{Type: "url", URL: url},
		}, nil

	case providers.IsDataURL(url):
		mediaType, data, err := providers.ParseDataURL(url)
		if err != nil {
			return contentBlock{}, &providers.AdapterError{
				Provider: "anthropic",
				Message:  "invalid image data URL",
				Cause:    err,
			}
		}
		return contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      data,
			},
		}, nil

	default:
		return contentBlock{}, &providers.AdapterError{
			Provider: "anthropic",
			Message:  fmt.Sprintf("unsupported image URL scheme in %q", truncate(url, 64)),
		}
	}
}

// applyTools maps tool definitions and tool_choice. A tool_choice of
// "none" omits tools entirely; "auto" relies on the provider default.
func applyTools(out *messagesRequest, req *providers.ChatRequest) error {
	if len(req.Tools) == 0 {
		return nil
	}
	if req.ToolChoice != nil && req.ToolChoice.Mode == providers.ToolChoiceNone {
		return nil
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	if req.ToolChoice == nil {
		return nil
	}
	switch req.ToolChoice.Mode {
	case providers.ToolChoiceAuto:
	case providers.ToolChoiceRequired:
		out.ToolChoice = &toolChoice{Type: "any"}
	case providers.ToolChoiceFunction:
		out.ToolChoice = &toolChoice{Type: "tool", Name: req.ToolChoice.FunctionName}
	default:
		return &providers.AdapterError{
			Provider: "anthropic",
			Message:  fmt.Sprintf("unsupported tool_choice %q", req.ToolChoice.Mode),
		}
	}
	return nil
}

// parseMessagesResponse folds the native content blocks into one canonical
// assistant message.
func parseMessagesResponse(resp *messagesResponse, alias string) (*providers.ChatResponse, error) {
	out := &providers.ChatResponse{
		ID:           resp.ID,
		Model:        alias,
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage:        providers.UsageFromAnthropic(resp.Usage.InputTokens, resp.Usage.OutputTokens),
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text

		case "tool_use":
			args, err := json.Marshal(block.Input)
			if err != nil {
				return nil, &providers.ParseError{
					Provider: "anthropic",
					Cause:    fmt.Errorf("failed to marshal tool input: %w", err),
				}
			}
			out.ToolCalls = append(out.ToolCalls, providers.ToolCall{
				ID:   block.ID,
				Type: providers.ToolTypeFunction,
				Function: providers.FunctionCall{
					Name:      block.Name,
					Arguments: string(args),
				},
			})
		}
	}

	return out, nil
}

// normalizeStopReason maps the provider's stop reasons to canonical
// finish reasons.
func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	case "tool_use":
		return providers.FinishReasonToolCalls
	case "":
		return ""
	default:
		return reason
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
