package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status               string `json:"status"`
	CredentialsAvailable int    `json:"credentials_available"`
	TotalCredentials     int    `json:"total_credentials"`
	CredentialsBanned    int    `json:"credentials_banned"`
}

// HealthHandler serves GET /health: 200 while at least one credential is
// available, 503 otherwise.
type HealthHandler struct {
	Store *credential.Store
}

// NewHealthHandler creates a health handler over the credential pool.
func NewHealthHandler(store *credential.Store) *HealthHandler {
	return &HealthHandler{Store: store}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.Store.Stats()
	resp := HealthResponse{
		Status:               "healthy",
		CredentialsAvailable: stats.Available,
		TotalCredentials:     stats.Total,
		CredentialsBanned:    stats.Banned,
	}

	status := http.StatusOK
	if stats.Available == 0 {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(resp)
	}
}
