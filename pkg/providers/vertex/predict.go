package vertex

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// Imagen image generation and text embeddings share the :predict method.

type predictRequest struct {
	Instances  []map[string]any `json:"instances"`
	Parameters map[string]any   `json:"parameters,omitempty"`
}

type predictResponse struct {
	Predictions []prediction   `json:"predictions"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type prediction struct {
	// Imagen
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	MimeType           string `json:"mimeType,omitempty"`

	// Embeddings
	Embeddings *embeddingPrediction `json:"embeddings,omitempty"`
}

type embeddingPrediction struct {
	Values     []float64            `json:"values"`
	Statistics *embeddingStatistics `json:"statistics,omitempty"`
}

type embeddingStatistics struct {
	TokenCount int `json:"token_count"`
}

// GenerateImages performs an Imagen :predict call.
func (a *Adapter) GenerateImages(ctx context.Context, cred *credential.Credential, req *providers.ImageRequest) (*providers.ImageResponse, error) {
	n := req.N
	if n <= 0 {
		n = 1
	}

	params := map[string]any{"sampleCount": n}
	if ratio := aspectRatioForSize(req.Size); ratio != "" {
		params["aspectRatio"] = ratio
	}

	wireReq := predictRequest{
		Instances:  []map[string]any{{"prompt": req.Prompt}},
		Parameters: params,
	}

	headers, err := a.headers(ctx, cred)
	if err != nil {
		return nil, err
	}

	var wireResp predictResponse
	url := a.modelURL(cred, req.Model, "predict")
	if err := a.client.DoJSON(ctx, "POST", url, wireReq, &wireResp, headers); err != nil {
		return nil, err
	}

	out := &providers.ImageResponse{Created: time.Now().Unix()}
	for _, p := range wireResp.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		out.Images = append(out.Images, providers.GeneratedImage{
			B64JSON:  p.BytesBase64Encoded,
			MimeType: p.MimeType,
		})
	}
	if len(out.Images) == 0 {
		return nil, &providers.ParseError{
			Provider: "vertex",
			Cause:    fmt.Errorf("predict response contained no images"),
		}
	}
	return out, nil
}

// aspectRatioForSize maps an OpenAI WxH size to the closest Imagen aspect
// ratio. Unknown or square sizes map to 1:1; empty input stays empty so the
// model default applies.
func aspectRatioForSize(size string) string {
	if size == "" {
		return ""
	}
	w, h, ok := parseSize(size)
	if !ok || h == 0 {
		return "1:1"
	}
	ratio := float64(w) / float64(h)
	switch {
	case ratio > 1.5:
		return "16:9"
	case ratio > 1.05:
		return "4:3"
	case ratio < 0.67:
		return "9:16"
	case ratio < 0.95:
		return "3:4"
	default:
		return "1:1"
	}
}

func parseSize(size string) (w, h int, ok bool) {
	ws, hs, found := strings.Cut(strings.ToLower(size), "x")
	if !found {
		return 0, 0, false
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return w, h, true
}

// Embed performs a text-embedding :predict call, one instance per input.
func (a *Adapter) Embed(ctx context.Context, cred *credential.Credential, req *providers.EmbeddingRequest) (*providers.EmbeddingResponse, error) {
	instances := make([]map[string]any, len(req.Input))
	for i, text := range req.Input {
		instances[i] = map[string]any{"content": text}
	}

	wireReq := predictRequest{Instances: instances}
	if req.Dimensions != nil {
		wireReq.Parameters = map[string]any{"outputDimensionality": *req.Dimensions}
	}

	headers, err := a.headers(ctx, cred)
	if err != nil {
		return nil, err
	}

	var wireResp predictResponse
	url := a.modelURL(cred, req.Model, "predict")
	if err := a.client.DoJSON(ctx, "POST", url, wireReq, &wireResp, headers); err != nil {
		return nil, err
	}

	if len(wireResp.Predictions) != len(req.Input) {
		return nil, &providers.ParseError{
			Provider: "vertex",
			Cause: fmt.Errorf("expected %d embedding predictions, got %d",
				len(req.Input), len(wireResp.Predictions)),
		}
	}

	out := &providers.EmbeddingResponse{
		Model:      req.Alias,
		Embeddings: make([][]float64, len(wireResp.Predictions)),
	}
	for i, p := range wireResp.Predictions {
		if p.Embeddings == nil {
			return nil, &providers.ParseError{
				Provider: "vertex",
				Cause:    fmt.Errorf("prediction %d carries no embeddings", i),
			}
		}
		out.Embeddings[i] = p.Embeddings.Values
		if p.Embeddings.Statistics != nil {
			out.Usage.PromptTokens += p.Embeddings.Statistics.TokenCount
		}
	}
	out.Usage.TotalTokens = out.Usage.PromptTokens
	return out, nil
}
