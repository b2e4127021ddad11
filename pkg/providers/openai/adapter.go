// Package openai implements the provider adapter for the OpenAI API.
// The gateway's canonical schema is OpenAI's own, so the transforms here
// are near-identity: rewrite the model id, attach auth, and pass
// everything else through unchanged.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Adapter is the OpenAI provider adapter.
type Adapter struct {
	baseURL string
	client  *providers.Client
}

// Config configures the adapter.
type Config struct {
	// BaseURL overrides the API endpoint, e.g. for an Azure-compatible
	// gateway or a mock server in tests.
	BaseURL string

	// Timeout bounds non-streaming upstream calls.
	Timeout time.Duration
}

// New creates an OpenAI adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{
		baseURL: baseURL,
		client: providers.NewClient(providers.ClientConfig{
			Provider: "openai",
			Timeout:  cfg.Timeout,
		}),
	}
}

// Name returns the provider tag.
func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) headers(cred *credential.Credential) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + cred.APIKey,
	}
}

// Complete performs a non-streaming chat completion.
func (a *Adapter) Complete(ctx context.Context, cred *credential.Credential, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	wireReq := buildChatRequest(req)

	var wireResp chatResponse
	url := a.baseURL + "/chat/completions"
	if err := a.client.DoJSON(ctx, "POST", url, wireReq, &wireResp, a.headers(cred)); err != nil {
		return nil, err
	}

	return parseChatResponse(&wireResp, req.Alias)
}

// Stream opens a streaming chat completion.
func (a *Adapter) Stream(ctx context.Context, cred *credential.Credential, req *providers.ChatRequest) (providers.StreamReader, error) {
	wireReq := buildChatRequest(req)
	wireReq.Stream = true
	if req.StreamOptions != nil && req.StreamOptions.IncludeUsage {
		wireReq.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	url := a.baseURL + "/chat/completions"
	return newStreamReader(ctx, a.client, url, wireReq, a.headers(cred))
}

// Embed performs an embeddings request.
func (a *Adapter) Embed(ctx context.Context, cred *credential.Credential, req *providers.EmbeddingRequest) (*providers.EmbeddingResponse, error) {
	wireReq := embeddingRequest{
		Model:          req.Model,
		Input:          req.Input,
		EncodingFormat: req.EncodingFormat,
		User:           req.User,
	}
	if req.Dimensions != nil {
		wireReq.Dimensions = req.Dimensions
	}

	var wireResp embeddingResponse
	url := a.baseURL + "/embeddings"
	if err := a.client.DoJSON(ctx, "POST", url, wireReq, &wireResp, a.headers(cred)); err != nil {
		return nil, err
	}

	out := &providers.EmbeddingResponse{
		Model:      req.Alias,
		Embeddings: make([][]float64, len(wireResp.Data)),
		Usage: providers.Usage{
			PromptTokens: wireResp.Usage.PromptTokens,
			TotalTokens:  wireResp.Usage.TotalTokens,
		},
	}
	for _, d := range wireResp.Data {
		if d.Index < 0 || d.Index >= len(out.Embeddings) {
			return nil, &providers.ParseError{
				Provider: "openai",
				Cause:    fmt.Errorf("embedding index %d out of range", d.Index),
			}
		}
		out.Embeddings[d.Index] = d.Embedding
	}
	return out, nil
}

// GenerateImages performs an image generation request.
func (a *Adapter) GenerateImages(ctx context.Context, cred *credential.Credential, req *providers.ImageRequest) (*providers.ImageResponse, error) {
	wireReq := imageRequest{
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              req.N,
		Size:           req.Size,
		Quality:        req.Quality,
		Style:          req.Style,
		ResponseFormat: req.ResponseFormat,
		User:           req.User,
	}

	var wireResp imageResponse
	url := a.baseURL + "/images/generations"
	if err := a.client.DoJSON(ctx, "POST", url, wireReq, &wireResp, a.headers(cred)); err != nil {
		return nil, err
	}

	out := &providers.ImageResponse{Created: wireResp.Created}
	for _, d := range wireResp.Data {
		out.Images = append(out.Images, providers.GeneratedImage{
			B64JSON: d.B64JSON,
			URL:     d.URL,
		})
	}
	return out, nil
}

// Close releases pooled connections.
func (a *Adapter) Close() {
	a.client.CloseIdleConnections()
}
