// Package handlers contains the HTTP handlers for the OpenAI-compatible
// surface and the operational endpoints.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/middleware"
)

// ChatHandler serves POST /v1/chat/completions.
type ChatHandler struct {
	Dispatcher *proxy.Dispatcher
}

// NewChatHandler creates a chat completions handler.
func NewChatHandler(d *proxy.Dispatcher) *ChatHandler {
	return &ChatHandler{Dispatcher: d}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if r.Method != http.MethodPost {
		writeError(w, &proxy.RequestError{
			Message: "Method not allowed. Use POST.",
			Code:    "method_not_allowed",
		})
		return
	}

	chatReq, err := proxy.ParseChatCompletionRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	canonical, err := proxy.ToCanonicalChat(chatReq)
	if err != nil {
		writeError(w, err)
		return
	}

	if chatReq.Stream {
		h.serveStream(w, r, requestID, canonical)
		return
	}

	slog.InfoContext(ctx, "processing chat completion",
		"request_id", requestID,
		"model", chatReq.Model,
		"messages", len(chatReq.Messages),
	)

	resp, err := h.Dispatcher.ChatCompletion(ctx, requestID, canonical)
	if err != nil {
		slog.ErrorContext(ctx, "chat completion failed",
			"request_id", requestID,
			"model", chatReq.Model,
			"error", err,
		)
		writeError(w, err)
		return
	}

	slog.InfoContext(ctx, "chat completion succeeded",
		"request_id", requestID,
		"model", chatReq.Model,
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, proxy.FormatChatCompletionResponse(resp, requestID)); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "request_id", requestID, "error", err)
	}
}

// serveStream forwards a streamed completion as SSE. Failover happens
// inside OpenStream, before any bytes reach the client; after the first
// frame a failure can only end the stream early, signalled by the missing
// [DONE] marker.
func (h *ChatHandler) serveStream(w http.ResponseWriter, r *http.Request, requestID string, canonical *providers.ChatRequest) {
	ctx := r.Context()

	slog.InfoContext(ctx, "processing streaming chat completion",
		"request_id", requestID,
		"model", canonical.Alias,
	)

	session, err := h.Dispatcher.OpenStream(ctx, requestID, canonical)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open stream",
			"request_id", requestID,
			"model", canonical.Alias,
			"error", err,
		)
		writeError(w, err)
		return
	}
	defer session.Reader.Close()

	proxy.SetSSEHeaders(w)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	includeUsage := canonical.StreamOptions != nil && canonical.StreamOptions.IncludeUsage
	responseID := "chatcmpl-" + requestID
	created := time.Now().Unix()

	var finalUsage *providers.Usage
	chunkCount := 0

	for {
		chunk, err := session.Reader.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if err := proxy.WriteSSEDone(w); err != nil {
					slog.ErrorContext(ctx, "failed to write SSE done marker",
						"request_id", requestID, "error", err)
				}
				session.Finish(finalUsage, "success")

				slog.InfoContext(ctx, "streaming chat completion finished",
					"request_id", requestID,
					"model", canonical.Alias,
					"chunks_sent", chunkCount,
				)
				return
			}

			if errors.Is(err, ctx.Err()) {
				slog.WarnContext(ctx, "client disconnected during streaming",
					"request_id", requestID,
					"chunks_sent", chunkCount,
				)
				session.Finish(finalUsage, "cancelled")
				return
			}

			// Mid-stream upstream failure: the stream ends without [DONE].
			slog.ErrorContext(ctx, "stream interrupted",
				"request_id", requestID,
				"model", canonical.Alias,
				"chunks_sent", chunkCount,
				"error", err,
			)
			if chunkCount == 0 {
				errResp, _ := proxy.HandleError(err)
				_ = proxy.WriteSSEError(w, errResp)
			}
			session.Finish(finalUsage, "interrupted")
			return
		}

		if chunk.Usage != nil {
			finalUsage = chunk.Usage
			if !includeUsage {
				chunk.Usage = nil
			}
		}

		// Skip frames that became empty after usage stripping.
		if chunk.Role == "" && chunk.Content == "" && len(chunk.ToolCalls) == 0 &&
			chunk.FinishReason == "" && chunk.Usage == nil {
			continue
		}

		wireChunk := proxy.FormatStreamChunk(chunk, canonical.Alias, responseID, created)
		if err := proxy.WriteSSEChunk(w, wireChunk); err != nil {
			slog.WarnContext(ctx, "failed to write SSE chunk, client gone",
				"request_id", requestID,
				"chunks_sent", chunkCount,
				"error", err,
			)
			session.Finish(finalUsage, "cancelled")
			return
		}
		chunkCount++
	}
}
