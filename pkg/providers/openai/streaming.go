package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// OpenAI streams chat completions as SSE `data:` frames carrying chunk
// objects, terminated by `data: [DONE]`. The gateway re-frames them, so the
// reader only parses each chunk into the canonical delta form.

type streamChunkWire struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []streamChoiceWire `json:"choices"`
	Usage   *wireUsage         `json:"usage,omitempty"`
}

type streamChoiceWire struct {
	Index        int             `json:"index"`
	Delta        streamDeltaWire `json:"delta"`
	FinishReason *string         `json:"finish_reason"`
}

type streamDeltaWire struct {
	Role      string              `json:"role,omitempty"`
	Content   string              `json:"content,omitempty"`
	ToolCalls []streamToolCallWire `json:"tool_calls,omitempty"`
}

type streamToolCallWire struct {
	Index    int               `json:"index"`
	ID       string            `json:"id,omitempty"`
	Type     string            `json:"type,omitempty"`
	Function *wireFunctionCall `json:"function,omitempty"`
}

// streamReader reads OpenAI's SSE stream.
type streamReader struct {
	client  *providers.Client
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

func newStreamReader(ctx context.Context, client *providers.Client, url string, req *chatRequest, headers map[string]string) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Do(ctx, "POST", url, bodyBytes, headers, true)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &streamReader{
		client:  client,
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

// Read returns the next canonical chunk, io.EOF at [DONE] or stream end.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, &providers.StreamError{
					Provider: "openai",
					Message:  "failed to read stream",
					Cause:    err,
				}
			}
			return nil, io.EOF
		}

		line := s.scanner.Text()
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil, io.EOF
		}

		var wire streamChunkWire
		if err := json.Unmarshal([]byte(data), &wire); err != nil {
			return nil, &providers.ParseError{
				Provider:    "openai",
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
			}
		}

		return convertStreamChunk(&wire), nil
	}
}

func convertStreamChunk(wire *streamChunkWire) *providers.StreamChunk {
	chunk := &providers.StreamChunk{}

	if wire.Usage != nil {
		u := parseUsage(*wire.Usage)
		chunk.Usage = &u
	}

	if len(wire.Choices) == 0 {
		return chunk
	}
	choice := wire.Choices[0]
	chunk.Role = choice.Delta.Role
	chunk.Content = choice.Delta.Content
	if choice.FinishReason != nil {
		chunk.FinishReason = *choice.FinishReason
	}
	for _, tc := range choice.Delta.ToolCalls {
		delta := providers.ToolCallDelta{
			Index: tc.Index,
			ID:    tc.ID,
		}
		if tc.Function != nil {
			delta.Name = tc.Function.Name
			delta.Arguments = tc.Function.Arguments
		}
		chunk.ToolCalls = append(chunk.ToolCalls, delta)
	}
	return chunk
}

// Close closes the upstream body.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
