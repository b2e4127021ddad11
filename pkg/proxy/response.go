package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/types"
)

// FormatChatCompletionResponse converts a canonical response to the OpenAI
// chat completion wire form.
func FormatChatCompletionResponse(resp *providers.ChatResponse, requestID string) *types.ChatCompletionResponse {
	responseID := resp.ID
	if responseID == "" {
		responseID = requestID
	}

	created := resp.Created
	if created == 0 {
		created = time.Now().Unix()
	}

	msg := types.ResponseMessage{
		Role:      providers.RoleAssistant,
		ToolCalls: formatToolCalls(resp.ToolCalls),
	}
	// content is null only for pure tool-call turns.
	if resp.Content != "" || len(resp.ToolCalls) == 0 {
		content := resp.Content
		msg.Content = &content
	}

	for _, img := range resp.Images {
		mime := img.MimeType
		if mime == "" {
			mime = "image/png"
		}
		msg.Images = append(msg.Images, types.MessageImage{
			Type: "image_url",
			ImageURL: types.MessageImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mime, img.B64JSON),
			},
			B64JSON: img.B64JSON,
		})
	}

	finishReason := resp.FinishReason
	if finishReason == "" {
		finishReason = providers.FinishReasonStop
	}

	return &types.ChatCompletionResponse{
		ID:      "chatcmpl-" + responseID,
		Object:  "chat.completion",
		Created: created,
		Model:   resp.Model,
		Choices: []types.Choice{
			{
				Index:        0,
				Message:      msg,
				FinishReason: finishReason,
			},
		},
		Usage: FormatUsage(resp.Usage),
	}
}

// FormatUsage converts canonical usage to the wire form.
func FormatUsage(u providers.Usage) types.Usage {
	out := types.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.ReasoningTokens > 0 {
		out.CompletionTokensDetails = &types.CompletionTokensDetails{
			ReasoningTokens: u.ReasoningTokens,
		}
	}
	return out
}

// FormatStreamChunk converts a canonical chunk to the OpenAI stream wire
// form. responseID and model are constant across a stream.
func FormatStreamChunk(chunk *providers.StreamChunk, model, responseID string, created int64) *types.ChatCompletionStreamChunk {
	out := &types.ChatCompletionStreamChunk{
		ID:      responseID,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []types.StreamChoice{
			{
				Index: 0,
				Delta: types.Delta{
					Role:    chunk.Role,
					Content: chunk.Content,
				},
			},
		},
	}

	for _, tc := range chunk.ToolCalls {
		delta := types.ToolCallDelta{
			Index: tc.Index,
			ID:    tc.ID,
		}
		if tc.ID != "" {
			delta.Type = providers.ToolTypeFunction
		}
		if tc.Name != "" || tc.Arguments != "" {
			delta.Function = &types.FunctionCallDelta{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			}
		}
		out.Choices[0].Delta.ToolCalls = append(out.Choices[0].Delta.ToolCalls, delta)
	}

	if chunk.FinishReason != "" {
		reason := chunk.FinishReason
		out.Choices[0].FinishReason = &reason
	}

	if chunk.Usage != nil {
		u := FormatUsage(*chunk.Usage)
		out.Usage = &u
	}

	return out
}

// FormatEmbeddingResponse converts a canonical embeddings response.
func FormatEmbeddingResponse(resp *providers.EmbeddingResponse) *types.EmbeddingResponse {
	out := &types.EmbeddingResponse{
		Object: "list",
		Model:  resp.Model,
		Usage:  FormatUsage(resp.Usage),
	}
	for i, vec := range resp.Embeddings {
		out.Data = append(out.Data, types.EmbeddingData{
			Object:    "embedding",
			Index:     i,
			Embedding: vec,
		})
	}
	return out
}

// FormatImageResponse converts a canonical image response.
func FormatImageResponse(resp *providers.ImageResponse) *types.ImageGenerationResponse {
	created := resp.Created
	if created == 0 {
		created = time.Now().Unix()
	}
	out := &types.ImageGenerationResponse{Created: created}
	for _, img := range resp.Images {
		out.Data = append(out.Data, types.ImageData{
			B64JSON: img.B64JSON,
			URL:     img.URL,
		})
	}
	return out
}

// WriteJSONResponse writes a JSON response.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes an OpenAI-shaped error with the given status.
func WriteErrorResponse(w http.ResponseWriter, statusCode int, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, statusCode, errResp)
}

// SetSSEHeaders prepares the response for server-sent events.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WriteSSEChunk writes one `data: {json}` frame and flushes it.
func WriteSSEChunk(w http.ResponseWriter, chunk *types.ChatCompletionStreamChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE chunk: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE chunk: %w", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// WriteSSEDone writes the terminal [DONE] marker. A stream that ends
// without it signals abnormal termination to the client.
func WriteSSEDone(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("failed to write SSE done marker: %w", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// WriteSSEError writes an error frame for failures before any content was
// streamed.
func WriteSSEError(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	data, err := json.Marshal(errResp)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE error: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE error: %w", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func formatToolCalls(toolCalls []providers.ToolCall) []types.ToolCall {
	if len(toolCalls) == 0 {
		return nil
	}
	out := make([]types.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		out[i] = types.ToolCall{
			ID:   tc.ID,
			Type: providers.ToolTypeFunction,
			Function: types.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
	}
	return out
}
