package providers

import (
	"errors"
	"fmt"
	"time"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
)

// AuthError represents an upstream authentication failure (HTTP 401/403).
type AuthError struct {
	Provider   string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// RateLimitError represents an upstream rate limit (HTTP 429). RetryAfter
// carries the provider's hint, zero when absent.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// UpstreamError represents any other non-2xx upstream response.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Transient reports whether the status indicates a transient condition.
func (e *UpstreamError) Transient() bool {
	return e.StatusCode >= 500
}

// NetworkError wraps connection-level failures reaching a provider.
type NetworkError struct {
	Provider string
	Cause    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider %q network error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// AdapterError represents a schema conversion failure, e.g. an unsupported
// content type in the request. It maps to HTTP 400.
type AdapterError struct {
	Provider string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %q adapter error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q adapter error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// ParseError represents a malformed upstream response.
type ParseError struct {
	Provider    string
	RawResponse string
	Cause       error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// StreamError represents a failure while reading an upstream stream.
type StreamError struct {
	Provider string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %q stream error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q stream error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether a failed attempt should trigger failover to
// another credential: rate limits, 5xx responses, and network errors.
func IsRetryable(err error) bool {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Transient()
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// Classify maps a failed attempt to a ban reason and retry-after hint.
// The boolean is false when the failure is not credential-scoped and the
// credential should not be banned.
func Classify(err error) (credential.BanReason, time.Duration, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return credential.BanAuth, 0, true
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return credential.BanRateLimit, rateLimitErr.RetryAfter, true
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) && upstreamErr.Transient() {
		return credential.BanServerError, 0, true
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return credential.BanServerError, 0, true
	}
	return "", 0, false
}
