// Package vertex implements the provider adapter for Google Vertex AI:
// Gemini chat via generateContent, Imagen image generation and text
// embeddings via predict. Authentication uses Google service-account
// credentials resolved per gateway credential.
package vertex

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Adapter is the Vertex AI provider adapter.
type Adapter struct {
	// baseURLOverride replaces the regional endpoint, used by tests.
	baseURLOverride string
	client          *providers.Client

	mu     sync.Mutex
	tokens map[*credential.Credential]oauth2.TokenSource

	// imageModels marks bindings with the image_modality capability so chat
	// requests opt into IMAGE response modality. Keyed by native model id.
	imageModels map[string]bool
}

// Config configures the adapter.
type Config struct {
	// BaseURL overrides the regional endpoint (tests, private endpoints).
	BaseURL string
	Timeout time.Duration

	// ImageChatModels lists native model ids whose chat responses may carry
	// inline images.
	ImageChatModels []string
}

// New creates a Vertex AI adapter.
func New(cfg Config) *Adapter {
	a := &Adapter{
		baseURLOverride: cfg.BaseURL,
		client: providers.NewClient(providers.ClientConfig{
			Provider: "vertex",
			Timeout:  cfg.Timeout,
		}),
		tokens:      make(map[*credential.Credential]oauth2.TokenSource),
		imageModels: make(map[string]bool),
	}
	for _, m := range cfg.ImageChatModels {
		a.imageModels[m] = true
	}
	return a
}

// Name returns the provider tag.
func (a *Adapter) Name() string { return "vertex" }

// modelURL builds the endpoint for one model method (generateContent,
// streamGenerateContent, predict).
func (a *Adapter) modelURL(cred *credential.Credential, model, method string) string {
	if a.baseURLOverride != "" {
		return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
			a.baseURLOverride, cred.ProjectID, cred.Region, model, method)
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		cred.Region, cred.ProjectID, cred.Region, model, method)
}

// headers resolves an access token for the credential. Token sources are
// cached per credential and refresh themselves.
func (a *Adapter) headers(ctx context.Context, cred *credential.Credential) (map[string]string, error) {
	ts, err := a.tokenSource(ctx, cred)
	if err != nil {
		return nil, err
	}
	token, err := ts.Token()
	if err != nil {
		return nil, &providers.AuthError{
			Provider:   "vertex",
			StatusCode: 401,
			Message:    fmt.Sprintf("failed to obtain access token: %v", err),
		}
	}
	return map[string]string{
		"Authorization": "Bearer " + token.AccessToken,
	}, nil
}

func (a *Adapter) tokenSource(ctx context.Context, cred *credential.Credential) (oauth2.TokenSource, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ts, ok := a.tokens[cred]; ok {
		return ts, nil
	}

	var ts oauth2.TokenSource
	if cred.ServiceAccountFile != "" {
		data, err := os.ReadFile(cred.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account file %q: %w", cred.ServiceAccountFile, err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("invalid service account credentials %q: %w", cred.ServiceAccountFile, err)
		}
		ts = creds.TokenSource
	} else {
		var err error
		ts, err = google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve application default credentials: %w", err)
		}
	}

	ts = oauth2.ReuseTokenSource(nil, ts)
	a.tokens[cred] = ts
	return ts, nil
}

// Complete performs a non-streaming chat completion.
func (a *Adapter) Complete(ctx context.Context, cred *credential.Credential, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	wireReq, err := buildGenerateContentRequest(req, a.wantsImageOutput(req))
	if err != nil {
		return nil, err
	}

	headers, err := a.headers(ctx, cred)
	if err != nil {
		return nil, err
	}

	var wireResp generateContentResponse
	url := a.modelURL(cred, req.Model, "generateContent")
	if err := a.client.DoJSON(ctx, "POST", url, wireReq, &wireResp, headers); err != nil {
		return nil, err
	}

	return parseGenerateContentResponse(&wireResp, req.Alias)
}

// Stream opens a streaming chat completion via streamGenerateContent.
func (a *Adapter) Stream(ctx context.Context, cred *credential.Credential, req *providers.ChatRequest) (providers.StreamReader, error) {
	wireReq, err := buildGenerateContentRequest(req, a.wantsImageOutput(req))
	if err != nil {
		return nil, err
	}

	headers, err := a.headers(ctx, cred)
	if err != nil {
		return nil, err
	}

	url := a.modelURL(cred, req.Model, "streamGenerateContent") + "?alt=sse"
	return newStreamReader(ctx, a.client, url, wireReq, headers)
}

// wantsImageOutput reports whether the chat response should include inline
// images: the binding declares the image modality, or the client asked for
// it explicitly.
func (a *Adapter) wantsImageOutput(req *providers.ChatRequest) bool {
	if a.imageModels[req.Model] {
		return true
	}
	for _, m := range req.Modalities {
		if m == "image" {
			return true
		}
	}
	return false
}

// Close releases pooled connections.
func (a *Adapter) Close() {
	a.client.CloseIdleConnections()
}
