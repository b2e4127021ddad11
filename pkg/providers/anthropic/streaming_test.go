package anthropic

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/MiXaiLL76/auto-ai-router/internal/gatewaytest"
	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

func streamFromMock(t *testing.T, chunks []string) providers.StreamReader {
	t.Helper()

	mock := gatewaytest.NewMockServer()
	t.Cleanup(mock.Close)
	mock.SetResponse("/v1/messages", gatewaytest.MockResponse{
		StatusCode:   200,
		StreamChunks: chunks,
	})

	adapter := New(Config{BaseURL: mock.URL()})
	t.Cleanup(adapter.Close)

	cred := credential.New("anthropic-0", "anthropic", "sk-ant", nil)
	reader, err := adapter.Stream(context.Background(), cred, &providers.ChatRequest{
		Alias:    "claude-opus-4-1",
		Model:    "claude-opus-4-1",
		Stream:   true,
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "count 1 to 5"}},
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	t.Cleanup(func() { reader.Close() })
	return reader
}

func drain(t *testing.T, reader providers.StreamReader) []*providers.StreamChunk {
	t.Helper()
	var chunks []*providers.StreamChunk
	for {
		chunk, err := reader.Read(context.Background())
		if err == io.EOF {
			return chunks
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		chunks = append(chunks, chunk)
	}
}

func TestStream_TextDeltas(t *testing.T) {
	reader := streamFromMock(t, gatewaytest.AnthropicStreamEvents("1 2 ", "3 4 ", "5"))
	chunks := drain(t, reader)

	var content strings.Builder
	var finish string
	var usage *providers.Usage
	for _, c := range chunks {
		content.WriteString(c.Content)
		if c.FinishReason != "" {
			finish = c.FinishReason
		}
		if c.Usage != nil {
			usage = c.Usage
		}
	}

	if content.String() != "1 2 3 4 5" {
		t.Errorf("content = %q", content.String())
	}
	if finish != providers.FinishReasonStop {
		t.Errorf("finish = %q", finish)
	}
	if usage == nil {
		t.Fatal("no usage chunk")
	}
	// input from message_start, output from message_delta.
	if usage.PromptTokens != 10 || usage.CompletionTokens != 15 || usage.TotalTokens != 25 {
		t.Errorf("usage = %+v", usage)
	}

	// The first chunk announces the assistant role.
	if len(chunks) == 0 || chunks[0].Role != providers.RoleAssistant {
		t.Error("first chunk missing assistant role")
	}
}

func TestStream_ToolUseFragments(t *testing.T) {
	events := []string{
		"event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_01\",\"usage\":{\"input_tokens\":40,\"output_tokens\":0}}}\n\n",
		"event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Checking.\"}}\n\n",
		"event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":0}\n\n",
		"event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":1,\"content_block\":{\"type\":\"tool_use\",\"id\":\"toolu_5\",\"name\":\"get_weather\"}}\n\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":1,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\\\"city\\\":\"}}\n\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":1,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"\\\"Tokyo\\\"}\"}}\n\n",
		"event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":1}\n\n",
		"event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"tool_use\"},\"usage\":{\"output_tokens\":22}}\n\n",
		"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n",
	}

	reader := streamFromMock(t, events)
	chunks := drain(t, reader)

	var args strings.Builder
	var sawStart bool
	var finish string
	for _, c := range chunks {
		for _, tc := range c.ToolCalls {
			if tc.Index != 0 {
				t.Errorf("tool index = %d, want 0", tc.Index)
			}
			if tc.ID != "" {
				sawStart = true
				if tc.ID != "toolu_5" || tc.Name != "get_weather" {
					t.Errorf("tool start = %+v", tc)
				}
			}
			args.WriteString(tc.Arguments)
		}
		if c.FinishReason != "" {
			finish = c.FinishReason
		}
	}

	if !sawStart {
		t.Error("no tool-call start chunk")
	}
	// Fragments concatenate into the full JSON object.
	if args.String() != `{"city":"Tokyo"}` {
		t.Errorf("arguments = %q", args.String())
	}
	if finish != providers.FinishReasonToolCalls {
		t.Errorf("finish = %q", finish)
	}
}

func TestStream_ErrorEvent(t *testing.T) {
	events := []string{
		"event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_01\",\"usage\":{\"input_tokens\":5,\"output_tokens\":0}}}\n\n",
		"event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n",
	}

	reader := streamFromMock(t, events)

	// Skip the role chunk, then expect the stream error.
	if _, err := reader.Read(context.Background()); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	_, err := reader.Read(context.Background())
	if err == nil || err == io.EOF {
		t.Fatalf("expected stream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Overloaded") {
		t.Errorf("error = %v", err)
	}
}
