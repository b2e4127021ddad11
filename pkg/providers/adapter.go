package providers

import (
	"context"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
)

// Adapter translates canonical requests into one provider's native wire
// form, performs the upstream call with the given credential, and
// translates the native response back. Implementations are safe for
// concurrent use; per-request state never outlives a call.
type Adapter interface {
	// Name returns the provider tag ("openai", "anthropic", "vertex").
	Name() string

	// Complete performs a non-streaming chat completion.
	Complete(ctx context.Context, cred *credential.Credential, req *ChatRequest) (*ChatResponse, error)

	// Stream opens a streaming chat completion. The returned reader yields
	// canonical chunks until io.EOF; the caller must Close it.
	Stream(ctx context.Context, cred *credential.Credential, req *ChatRequest) (StreamReader, error)

	// Embed performs an embeddings request.
	Embed(ctx context.Context, cred *credential.Credential, req *EmbeddingRequest) (*EmbeddingResponse, error)

	// GenerateImages performs an image generation request.
	GenerateImages(ctx context.Context, cred *credential.Credential, req *ImageRequest) (*ImageResponse, error)
}

// StreamReader yields canonical chunks parsed from a provider's native
// stream. Read returns io.EOF when the stream ends normally.
type StreamReader interface {
	Read(ctx context.Context) (*StreamChunk, error)
	Close() error
}
