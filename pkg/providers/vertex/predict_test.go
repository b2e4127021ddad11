package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"golang.org/x/oauth2"

	"github.com/MiXaiLL76/auto-ai-router/internal/gatewaytest"
	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// testVertex wires an adapter against the mock server with a static token
// so no Google credentials are needed.
func testVertex(t *testing.T, mock *gatewaytest.MockServer) (*Adapter, *credential.Credential) {
	t.Helper()
	adapter := New(Config{BaseURL: mock.URL()})
	t.Cleanup(adapter.Close)

	cred := credential.New("vertex-0", "vertex", "", nil)
	cred.ProjectID = "test-project"
	cred.Region = "us-central1"
	adapter.tokens[cred] = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	return adapter, cred
}

func vertexPath(model, method string) string {
	return fmt.Sprintf("/v1/projects/test-project/locations/us-central1/publishers/google/models/%s:%s", model, method)
}

func TestGenerateImages(t *testing.T) {
	mock := gatewaytest.NewMockServer()
	defer mock.Close()

	path := vertexPath("imagen-3.0-fast-generate-001", "predict")
	mock.SetResponse(path, gatewaytest.MockResponse{
		StatusCode: 200,
		Body: map[string]any{
			"predictions": []map[string]any{
				{"bytesBase64Encoded": "aW1hZ2Ux", "mimeType": "image/png"},
				{"bytesBase64Encoded": "aW1hZ2Uy", "mimeType": "image/png"},
			},
		},
	})

	adapter, cred := testVertex(t, mock)

	resp, err := adapter.GenerateImages(context.Background(), cred, &providers.ImageRequest{
		Alias:  "imagen-3.0-fast-generate-001",
		Model:  "imagen-3.0-fast-generate-001",
		Prompt: "sunset",
		N:      2,
		Size:   "1024x1024",
	})
	if err != nil {
		t.Fatalf("GenerateImages failed: %v", err)
	}
	if len(resp.Images) != 2 {
		t.Fatalf("images = %d, want 2", len(resp.Images))
	}

	var sent predictRequest
	if err := json.Unmarshal(mock.LastBody(path), &sent); err != nil {
		t.Fatalf("failed to decode predict body: %v", err)
	}
	if sent.Instances[0]["prompt"] != "sunset" {
		t.Errorf("instances = %v", sent.Instances)
	}
	if sent.Parameters["sampleCount"] != float64(2) {
		t.Errorf("sampleCount = %v", sent.Parameters["sampleCount"])
	}
	if sent.Parameters["aspectRatio"] != "1:1" {
		t.Errorf("aspectRatio = %v", sent.Parameters["aspectRatio"])
	}
}

func TestEmbed(t *testing.T) {
	mock := gatewaytest.NewMockServer()
	defer mock.Close()

	path := vertexPath("text-embedding-005", "predict")
	mock.SetResponse(path, gatewaytest.MockResponse{
		StatusCode: 200,
		Body: map[string]any{
			"predictions": []map[string]any{
				{"embeddings": map[string]any{
					"values":     []float64{0.1, 0.2, 0.3},
					"statistics": map[string]any{"token_count": 4},
				}},
				{"embeddings": map[string]any{
					"values":     []float64{0.4, 0.5, 0.6},
					"statistics": map[string]any{"token_count": 3},
				}},
			},
		},
	})

	adapter, cred := testVertex(t, mock)

	resp, err := adapter.Embed(context.Background(), cred, &providers.EmbeddingRequest{
		Alias: "text-embedding-005",
		Model: "text-embedding-005",
		Input: []string{"hello", "world"},
	})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(resp.Embeddings) != 2 || len(resp.Embeddings[0]) != 3 {
		t.Fatalf("embeddings = %v", resp.Embeddings)
	}
	if resp.Usage.PromptTokens != 7 || resp.Usage.TotalTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	mock := gatewaytest.NewMockServer()
	defer mock.Close()

	path := vertexPath("text-embedding-005", "predict")
	mock.SetResponse(path, gatewaytest.MockResponse{
		StatusCode: 200,
		Body:       map[string]any{"predictions": []map[string]any{}},
	})

	adapter, cred := testVertex(t, mock)

	_, err := adapter.Embed(context.Background(), cred, &providers.EmbeddingRequest{
		Model: "text-embedding-005",
		Input: []string{"hello"},
	})
	if err == nil {
		t.Fatal("expected error on prediction count mismatch")
	}
}

func TestAspectRatioForSize(t *testing.T) {
	tests := []struct {
		size string
		want string
	}{
		{"", ""},
		{"1024x1024", "1:1"},
		{"512x512", "1:1"},
		{"1792x1024", "16:9"},
		{"1024x1792", "9:16"},
		{"1280x896", "4:3"},
		{"896x1280", "3:4"},
		{"garbage", "1:1"},
	}
	for _, tt := range tests {
		if got := aspectRatioForSize(tt.size); got != tt.want {
			t.Errorf("aspectRatioForSize(%q) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestComplete_EndToEnd(t *testing.T) {
	mock := gatewaytest.NewMockServer()
	defer mock.Close()

	path := vertexPath("gemini-2.5-flash", "generateContent")
	mock.SetResponse(path, gatewaytest.MockResponse{
		StatusCode: 200,
		Body:       gatewaytest.VertexGenerateContentResponse("Hello from Gemini"),
	})

	adapter, cred := testVertex(t, mock)

	resp, err := adapter.Complete(context.Background(), cred, &providers.ChatRequest{
		Alias:    "gemini-2.5-flash",
		Model:    "gemini-2.5-flash",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "Hello from Gemini" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.Usage.TotalTokens != 18 {
		t.Errorf("total = %d", resp.Usage.TotalTokens)
	}
}
