package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/types"
	"github.com/MiXaiLL76/auto-ai-router/pkg/routing"
)

// MetricsRecorder receives request outcomes and token counts. A nil
// recorder disables metrics.
type MetricsRecorder interface {
	RecordRequest(provider, model, status string, duration time.Duration)
	RecordTokens(provider, model string, usage providers.Usage)
	RecordError(provider, kind string)
}

// UsageRecord is one ledger row for a completed request.
type UsageRecord struct {
	RequestID  string
	Provider   string
	Model      string
	Credential string
	Usage      providers.Usage
	Status     string
	Latency    time.Duration
}

// UsageRecorder persists usage records. A nil recorder disables the ledger.
type UsageRecorder interface {
	RecordUsage(rec UsageRecord)
}

// Dispatcher orchestrates a request: resolve the binding, pick a
// credential, call the provider adapter, and on retryable failures ban the
// credential and re-dispatch within the attempt budget.
type Dispatcher struct {
	router      *routing.Router
	adapters    map[string]providers.Adapter
	maxAttempts int
	metrics     MetricsRecorder
	usage       UsageRecorder
}

// NewDispatcher creates a dispatcher. metrics and usage may be nil.
func NewDispatcher(router *routing.Router, adapters map[string]providers.Adapter, maxAttempts int, metrics MetricsRecorder, usage UsageRecorder) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		router:      router,
		adapters:    adapters,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		usage:       usage,
	}
}

// Router returns the underlying router, for the models and health
// handlers.
func (d *Dispatcher) Router() *routing.Router {
	return d.router
}

func (d *Dispatcher) adapter(provider string) (providers.Adapter, error) {
	a, ok := d.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", provider)
	}
	return a, nil
}

// handleFailure records a failed attempt: the credential is banned when the
// failure is credential-scoped, and the result reports whether another
// attempt may follow.
func (d *Dispatcher) handleFailure(cred *credential.Credential, err error) (retryable bool) {
	if reason, retryAfter, ban := providers.Classify(err); ban {
		d.router.Store().Ban(cred, reason, retryAfter)
		if d.metrics != nil {
			d.metrics.RecordError(cred.Provider, string(reason))
		}
	} else if d.metrics != nil {
		d.metrics.RecordError(cred.Provider, "permanent")
	}
	return providers.IsRetryable(err)
}

// ChatCompletion performs a non-streaming chat completion with failover.
func (d *Dispatcher) ChatCompletion(ctx context.Context, requestID string, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	binding, err := d.router.Resolve(req.Alias)
	if err != nil {
		return nil, err
	}
	if binding.Embedding || binding.ImageGeneration {
		return nil, &RequestError{
			Message: fmt.Sprintf("model %q is not a chat model", req.Alias),
			Param:   "model",
			Code:    types.CodeInvalidValue,
		}
	}
	req.Model = binding.Model

	adapter, err := d.adapter(binding.Provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		cred, err := d.router.Store().Pick(req.Alias)
		if err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		resp, err := adapter.Complete(ctx, cred, req)
		if err != nil {
			lastErr = err
			retryable := d.handleFailure(cred, err)
			slog.WarnContext(ctx, "upstream attempt failed",
				"request_id", requestID,
				"provider", binding.Provider,
				"model", req.Alias,
				"credential", cred.Label,
				"attempt", attempt,
				"retryable", retryable,
				"error", err,
			)
			if !retryable {
				return nil, err
			}
			continue
		}

		d.router.Store().MarkSuccess(cred)
		resp.Usage = resp.Usage.Normalize(binding.Provider)
		d.finish(requestID, binding, cred, resp.Usage, "success", time.Since(start))
		return resp, nil
	}

	return nil, lastErr
}

// StreamSession is an open upstream stream plus the bookkeeping needed to
// account for it when it ends.
type StreamSession struct {
	Reader  providers.StreamReader
	Binding routing.Binding

	dispatcher *Dispatcher
	requestID  string
	cred       *credential.Credential
	start      time.Time
}

// Finish records stream accounting. usage may be nil when the stream was
// cancelled or the provider reported none.
func (s *StreamSession) Finish(usage *providers.Usage, status string) {
	var u providers.Usage
	if usage != nil {
		u = usage.Normalize(s.Binding.Provider)
	}
	s.dispatcher.finish(s.requestID, s.Binding, s.cred, u, status, time.Since(s.start))
}

// OpenStream starts a streaming chat completion with failover. Failover is
// possible here because no response bytes have reached the client until
// the first chunk is read; once streaming begins, failures terminate the
// stream instead.
func (d *Dispatcher) OpenStream(ctx context.Context, requestID string, req *providers.ChatRequest) (*StreamSession, error) {
	binding, err := d.router.Resolve(req.Alias)
	if err != nil {
		return nil, err
	}
	if binding.Embedding || binding.ImageGeneration {
		return nil, &RequestError{
			Message: fmt.Sprintf("model %q is not a chat model", req.Alias),
			Param:   "model",
			Code:    types.CodeInvalidValue,
		}
	}
	if !binding.SupportsStreaming {
		return nil, &RequestError{
			Message: fmt.Sprintf("model %q does not support streaming", req.Alias),
			Param:   "stream",
			Code:    types.CodeInvalidValue,
		}
	}
	req.Model = binding.Model

	adapter, err := d.adapter(binding.Provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		cred, err := d.router.Store().Pick(req.Alias)
		if err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		reader, err := adapter.Stream(ctx, cred, req)
		if err != nil {
			lastErr = err
			retryable := d.handleFailure(cred, err)
			slog.WarnContext(ctx, "upstream stream attempt failed",
				"request_id", requestID,
				"provider", binding.Provider,
				"model", req.Alias,
				"credential", cred.Label,
				"attempt", attempt,
				"retryable", retryable,
				"error", err,
			)
			if !retryable {
				return nil, err
			}
			continue
		}

		// A 2xx upstream response opened the stream.
		d.router.Store().MarkSuccess(cred)
		return &StreamSession{
			Reader:     reader,
			Binding:    binding,
			dispatcher: d,
			requestID:  requestID,
			cred:       cred,
			start:      start,
		}, nil
	}

	return nil, lastErr
}

// Embeddings performs an embeddings request with failover.
func (d *Dispatcher) Embeddings(ctx context.Context, requestID string, req *providers.EmbeddingRequest) (*providers.EmbeddingResponse, error) {
	binding, err := d.router.Resolve(req.Alias)
	if err != nil {
		return nil, err
	}
	if !binding.Embedding {
		return nil, &RequestError{
			Message: fmt.Sprintf("model %q is not an embedding model", req.Alias),
			Param:   "model",
			Code:    types.CodeInvalidValue,
		}
	}
	req.Model = binding.Model

	adapter, err := d.adapter(binding.Provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		cred, err := d.router.Store().Pick(req.Alias)
		if err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		resp, err := adapter.Embed(ctx, cred, req)
		if err != nil {
			lastErr = err
			if !d.handleFailure(cred, err) {
				return nil, err
			}
			continue
		}

		d.router.Store().MarkSuccess(cred)
		resp.Usage = resp.Usage.Normalize(binding.Provider)
		d.finish(requestID, binding, cred, resp.Usage, "success", time.Since(start))
		return resp, nil
	}

	return nil, lastErr
}

// GenerateImages performs an image generation request with failover.
func (d *Dispatcher) GenerateImages(ctx context.Context, requestID string, req *providers.ImageRequest) (*providers.ImageResponse, error) {
	binding, err := d.router.Resolve(req.Alias)
	if err != nil {
		return nil, err
	}
	if !binding.ImageGeneration {
		return nil, &RequestError{
			Message: fmt.Sprintf("model %q is not an image generation model", req.Alias),
			Param:   "model",
			Code:    types.CodeInvalidValue,
		}
	}
	req.Model = binding.Model

	adapter, err := d.adapter(binding.Provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		cred, err := d.router.Store().Pick(req.Alias)
		if err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		resp, err := adapter.GenerateImages(ctx, cred, req)
		if err != nil {
			lastErr = err
			if !d.handleFailure(cred, err) {
				return nil, err
			}
			continue
		}

		d.router.Store().MarkSuccess(cred)
		d.finish(requestID, binding, cred, resp.Usage, "success", time.Since(start))
		return resp, nil
	}

	return nil, lastErr
}

// finish records metrics and the usage ledger row for a completed request.
func (d *Dispatcher) finish(requestID string, binding routing.Binding, cred *credential.Credential, usage providers.Usage, status string, latency time.Duration) {
	if d.metrics != nil {
		d.metrics.RecordRequest(binding.Provider, binding.Alias, status, latency)
		d.metrics.RecordTokens(binding.Provider, binding.Alias, usage)
	}
	if d.usage != nil {
		d.usage.RecordUsage(UsageRecord{
			RequestID:  requestID,
			Provider:   binding.Provider,
			Model:      binding.Alias,
			Credential: cred.Label,
			Usage:      usage,
			Status:     status,
			Latency:    latency,
		})
	}
}
