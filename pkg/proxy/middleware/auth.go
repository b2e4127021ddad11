package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/types"
)

// MasterKeyAuth validates the Authorization bearer token against the
// configured master key. Invalid or missing credentials produce a 401 with
// an OpenAI-shaped error body.
func MasterKeyAuth(masterKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(masterKey)) != 1 {
				slog.WarnContext(r.Context(), "client authentication failed",
					"request_id", GetRequestID(r.Context()),
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)

				errResp := types.NewAuthenticationError(
					"Incorrect API key provided. Check the key configured for this gateway.",
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(errResp)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
