package handlers

import (
	"net/http"
	"time"

	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/types"
	"github.com/MiXaiLL76/auto-ai-router/pkg/routing"
)

// ModelsHandler serves GET /v1/models, listing all configured bindings.
type ModelsHandler struct {
	Router *routing.Router

	// started stamps the "created" field; OpenAI reports a per-model epoch,
	// the gateway reports process start.
	started int64
}

// NewModelsHandler creates a models listing handler.
func NewModelsHandler(router *routing.Router) *ModelsHandler {
	return &ModelsHandler{Router: router, started: time.Now().Unix()}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, &proxy.RequestError{
			Message: "Method not allowed. Use GET.",
			Code:    "method_not_allowed",
		})
		return
	}

	list := types.ModelList{Object: "list"}
	for _, b := range h.Router.Bindings() {
		list.Data = append(list.Data, types.ModelInfo{
			ID:      b.Alias,
			Object:  "model",
			Created: h.started,
			OwnedBy: b.Provider,
		})
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, list)
}
