package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Client performs upstream HTTP calls for one provider adapter. It owns a
// pooled http.Client and translates non-2xx responses into typed errors.
// Failover across credentials lives in the dispatcher, so Client never
// retries on its own.
type Client struct {
	provider string
	http     *http.Client
	// streamHTTP has no overall timeout; streamed responses are bounded by
	// context cancellation instead.
	streamHTTP *http.Client
}

// ClientConfig configures a provider HTTP client.
type ClientConfig struct {
	// Provider is the provider tag used in errors and logs.
	Provider string

	// Timeout bounds non-streaming requests end to end.
	Timeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// NewClient creates a provider HTTP client with connection pooling.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		provider:   cfg.Provider,
		http:       &http.Client{Transport: transport, Timeout: cfg.Timeout},
		streamHTTP: &http.Client{Transport: transport},
	}
}

// Do performs a request and returns the response when the status is 2xx.
// Non-2xx statuses are read, closed, and returned as typed errors.
// stream selects the client without an overall timeout.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers map[string]string, stream bool) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("sending upstream request",
		"provider", c.provider,
		"method", method,
		"url", url,
		"stream", stream,
	)

	client := c.http
	if stream {
		client = c.streamHTTP
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// http.Client timeouts wrap context.DeadlineExceeded; surface them
		// as timeouts rather than generic network failures.
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, &NetworkError{Provider: c.provider, Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	return nil, c.statusError(resp, string(errorBody))
}

// DoJSON performs a request and decodes a 2xx JSON response into respBody.
func (c *Client) DoJSON(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, url, bodyBytes, headers, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Provider: c.provider,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    c.provider,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// statusError maps a non-2xx response to a typed error.
func (c *Client) statusError(resp *http.Response, body string) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Provider: c.provider, StatusCode: resp.StatusCode, Message: body}
	case http.StatusTooManyRequests:
		return &RateLimitError{
			Provider:   c.provider,
			RetryAfter: retryAfterHint(resp.Header),
			Message:    body,
		}
	default:
		return &UpstreamError{Provider: c.provider, StatusCode: resp.StatusCode, Message: body}
	}
}

// retryAfterHint extracts a backoff hint from rate-limit headers. It
// supports Retry-After in delay-seconds and HTTP-date forms, and the
// x-ratelimit-reset family in seconds or unix-epoch form.
func retryAfterHint(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}

	for _, name := range []string{"x-ratelimit-reset", "x-ratelimit-reset-requests", "anthropic-ratelimit-requests-reset"} {
		v := h.Get(name)
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			// Epoch timestamps are far larger than any sane delay.
			if f > 1e9 {
				if d := time.Until(time.Unix(int64(f), 0)); d > 0 {
					return d
				}
				continue
			}
			return time.Duration(f * float64(time.Second))
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}

	return 0
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}
