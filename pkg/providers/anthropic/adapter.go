// Package anthropic implements the provider adapter for the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"time"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// DefaultBaseURL is the Anthropic API endpoint.
const DefaultBaseURL = "https://api.anthropic.com"

// APIVersion is the anthropic-version header value.
const APIVersion = "2023-06-01"

// Adapter is the Anthropic provider adapter.
type Adapter struct {
	baseURL string
	client  *providers.Client
}

// Config configures the adapter.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates an Anthropic adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{
		baseURL: baseURL,
		client: providers.NewClient(providers.ClientConfig{
			Provider: "anthropic",
			Timeout:  cfg.Timeout,
		}),
	}
}

// Name returns the provider tag.
func (a *Adapter) Name() string { return "anthropic" }

func (a *Adapter) headers(cred *credential.Credential) map[string]string {
	return map[string]string{
		"x-api-key":         cred.APIKey,
		"anthropic-version": APIVersion,
	}
}

// Complete performs a non-streaming chat completion.
func (a *Adapter) Complete(ctx context.Context, cred *credential.Credential, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	wireReq, err := buildMessagesRequest(req)
	if err != nil {
		return nil, err
	}
	wireReq.Stream = false

	var wireResp messagesResponse
	url := a.baseURL + "/v1/messages"
	if err := a.client.DoJSON(ctx, "POST", url, wireReq, &wireResp, a.headers(cred)); err != nil {
		return nil, err
	}

	return parseMessagesResponse(&wireResp, req.Alias)
}

// Stream opens a streaming chat completion.
func (a *Adapter) Stream(ctx context.Context, cred *credential.Credential, req *providers.ChatRequest) (providers.StreamReader, error) {
	wireReq, err := buildMessagesRequest(req)
	if err != nil {
		return nil, err
	}
	wireReq.Stream = true

	url := a.baseURL + "/v1/messages"
	return newStreamReader(ctx, a.client, url, wireReq, a.headers(cred))
}

// Embed is unsupported: the provider offers no embeddings endpoint.
func (a *Adapter) Embed(ctx context.Context, cred *credential.Credential, req *providers.EmbeddingRequest) (*providers.EmbeddingResponse, error) {
	return nil, &providers.AdapterError{
		Provider: "anthropic",
		Message:  "embeddings are not supported",
	}
}

// GenerateImages is unsupported.
func (a *Adapter) GenerateImages(ctx context.Context, cred *credential.Credential, req *providers.ImageRequest) (*providers.ImageResponse, error) {
	return nil, &providers.AdapterError{
		Provider: "anthropic",
		Message:  "image generation is not supported",
	}
}

// Close releases pooled connections.
func (a *Adapter) Close() {
	a.client.CloseIdleConnections()
}
