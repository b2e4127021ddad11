package handlers

import (
	"log/slog"
	"net/http"

	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/middleware"
)

// EmbeddingsHandler serves POST /v1/embeddings.
type EmbeddingsHandler struct {
	Dispatcher *proxy.Dispatcher
}

// NewEmbeddingsHandler creates an embeddings handler.
func NewEmbeddingsHandler(d *proxy.Dispatcher) *EmbeddingsHandler {
	return &EmbeddingsHandler{Dispatcher: d}
}

// ServeHTTP implements http.Handler.
func (h *EmbeddingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if r.Method != http.MethodPost {
		writeError(w, &proxy.RequestError{
			Message: "Method not allowed. Use POST.",
			Code:    "method_not_allowed",
		})
		return
	}

	wireReq, err := proxy.ParseEmbeddingRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	canonical, err := proxy.ToCanonicalEmbedding(wireReq)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.Dispatcher.Embeddings(ctx, requestID, canonical)
	if err != nil {
		slog.ErrorContext(ctx, "embeddings request failed",
			"request_id", requestID,
			"model", wireReq.Model,
			"error", err,
		)
		writeError(w, err)
		return
	}

	slog.InfoContext(ctx, "embeddings request succeeded",
		"request_id", requestID,
		"model", wireReq.Model,
		"inputs", len(canonical.Input),
		"prompt_tokens", resp.Usage.PromptTokens,
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, proxy.FormatEmbeddingResponse(resp)); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "request_id", requestID, "error", err)
	}
}
