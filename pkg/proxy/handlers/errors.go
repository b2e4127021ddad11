package handlers

import (
	"net/http"

	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy"
)

// writeError maps err to an OpenAI-shaped body and writes it with the
// matching status.
func writeError(w http.ResponseWriter, err error) {
	errResp, status := proxy.HandleError(err)
	_ = proxy.WriteErrorResponse(w, status, errResp)
}
