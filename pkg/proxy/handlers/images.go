package handlers

import (
	"log/slog"
	"net/http"

	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/middleware"
)

// ImagesHandler serves POST /v1/images/generations.
type ImagesHandler struct {
	Dispatcher *proxy.Dispatcher
}

// NewImagesHandler creates an image generation handler.
func NewImagesHandler(d *proxy.Dispatcher) *ImagesHandler {
	return &ImagesHandler{Dispatcher: d}
}

// ServeHTTP implements http.Handler.
func (h *ImagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if r.Method != http.MethodPost {
		writeError(w, &proxy.RequestError{
			Message: "Method not allowed. Use POST.",
			Code:    "method_not_allowed",
		})
		return
	}

	wireReq, err := proxy.ParseImageGenerationRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	canonical := proxy.ToCanonicalImage(wireReq)

	slog.InfoContext(ctx, "processing image generation",
		"request_id", requestID,
		"model", wireReq.Model,
		"n", canonical.N,
		"size", wireReq.Size,
	)

	resp, err := h.Dispatcher.GenerateImages(ctx, requestID, canonical)
	if err != nil {
		slog.ErrorContext(ctx, "image generation failed",
			"request_id", requestID,
			"model", wireReq.Model,
			"error", err,
		)
		writeError(w, err)
		return
	}

	slog.InfoContext(ctx, "image generation succeeded",
		"request_id", requestID,
		"model", wireReq.Model,
		"images", len(resp.Images),
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, proxy.FormatImageResponse(resp)); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "request_id", requestID, "error", err)
	}
}
