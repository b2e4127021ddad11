package openai

import (
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// OpenAI wire types. Only the fields the gateway touches are modeled; the
// shapes match the public API.

type chatRequest struct {
	Model            string          `json:"model"`
	Messages         []wireMessage   `json:"messages"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	Tools            []wireTool      `json:"tools,omitempty"`
	ToolChoice       any             `json:"tool_choice,omitempty"`
	ResponseFormat   any             `json:"response_format,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	StreamOptions    *streamOptions  `json:"stream_options,omitempty"`
	User             string          `json:"user,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Created int64        `json:"created"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

type wireChoice struct {
	Index        int                 `json:"index"`
	Message      wireChoiceMessage   `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type wireChoiceMessage struct {
	Role      string         `json:"role"`
	Content   *string        `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireUsage struct {
	PromptTokens            int                `json:"prompt_tokens"`
	CompletionTokens        int                `json:"completion_tokens"`
	TotalTokens             int                `json:"total_tokens"`
	CompletionTokensDetails *wireTokensDetails `json:"completion_tokens_details,omitempty"`
}

type wireTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

type embeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     *int     `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	User           string   `json:"user,omitempty"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Usage wireUsage       `json:"usage"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	User           string `json:"user,omitempty"`
}

type imageResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
}

type imageData struct {
	B64JSON string `json:"b64_json,omitempty"`
	URL     string `json:"url,omitempty"`
}

// buildChatRequest converts a canonical request to the OpenAI wire form.
// Near-identity: only the model id changes.
func buildChatRequest(req *providers.ChatRequest) *chatRequest {
	out := &chatRequest{
		Model:            req.Model,
		Messages:         make([]wireMessage, 0, len(req.Messages)),
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		Stop:             req.Stop,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Seed:             req.Seed,
		User:             req.User,
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, buildMessage(msg))
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Type: t.Type,
			Function: wireFunction{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}

	if req.ToolChoice != nil {
		out.ToolChoice = buildToolChoice(req.ToolChoice)
	}

	if req.ResponseFormat != nil {
		out.ResponseFormat = buildResponseFormat(req.ResponseFormat)
	}

	return out
}

func buildMessage(msg providers.Message) wireMessage {
	out := wireMessage{
		Role:       msg.Role,
		Name:       msg.Name,
		ToolCallID: msg.ToolCallID,
	}

	if len(msg.Parts) > 0 {
		parts := make([]map[string]any, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			switch p.Type {
			case providers.PartText:
				parts = append(parts, map[string]any{"type": "text", "text": p.Text})
			case providers.PartImageURL:
				img := map[string]any{"url": p.ImageURL.URL}
				if p.ImageURL.Detail != "" {
					img["detail"] = p.ImageURL.Detail
				}
				parts = append(parts, map[string]any{"type": "image_url", "image_url": img})
			case providers.PartFile:
				parts = append(parts, map[string]any{"type": "file", "file": map[string]any{"file_id": p.File.FileID}})
			}
		}
		out.Content = parts
	} else {
		out.Content = msg.Content
	}

	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, wireToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: wireFunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return out
}

func buildToolChoice(tc *providers.ToolChoice) any {
	if tc.Mode == providers.ToolChoiceFunction {
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": tc.FunctionName},
		}
	}
	return tc.Mode
}

func buildResponseFormat(rf *providers.ResponseFormat) any {
	if rf.JSONSchema == nil {
		return map[string]any{"type": rf.Type}
	}
	schema := map[string]any{
		"name":   rf.JSONSchema.Name,
		"schema": rf.JSONSchema.Schema,
	}
	if rf.JSONSchema.Strict {
		schema["strict"] = true
	}
	return map[string]any{"type": "json_schema", "json_schema": schema}
}

// parseChatResponse converts an OpenAI wire response to canonical form,
// rewriting the model id back to the client-facing alias.
func parseChatResponse(resp *chatResponse, alias string) (*providers.ChatResponse, error) {
	out := &providers.ChatResponse{
		ID:      resp.ID,
		Model:   alias,
		Created: resp.Created,
		Usage:   parseUsage(resp.Usage),
	}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Message.Content != nil {
			out.Content = *choice.Message.Content
		}
		out.FinishReason = choice.FinishReason
		for _, tc := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, providers.ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: providers.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}

	return out, nil
}

func parseUsage(u wireUsage) providers.Usage {
	out := providers.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.CompletionTokensDetails != nil {
		out.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}
