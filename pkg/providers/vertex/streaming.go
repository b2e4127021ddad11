package vertex

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// streamGenerateContent with alt=sse frames each partial
// generateContentResponse as an SSE data line. Without alt=sse the API
// returns a JSON array; the reader handles bare JSON lines too so tests
// can feed newline-delimited chunks.
type streamReader struct {
	client  *providers.Client
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool

	sentRole      bool
	nextToolIndex int
	finished      bool

	// usage arrives cumulatively; the last observed value wins.
	usage *providers.Usage
}

func newStreamReader(ctx context.Context, client *providers.Client, url string, req *generateContentRequest, headers map[string]string) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Do(ctx, "POST", url, bodyBytes, headers, true)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	return &streamReader{
		client:  client,
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

// Read returns the next canonical chunk, io.EOF at stream end.
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
					Provider: "vertex",
					Message:  "failed to read stream",
					Cause:    err,
				}
			}
			return s.finalChunk()
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		if after, ok := strings.CutPrefix(line, "data: "); ok {
			line = after
		}
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var wire generateContentResponse
		if err := json.Unmarshal([]byte(line), &wire); err != nil {
			return nil, &providers.ParseError{
				Provider:    "vertex",
				RawResponse: line,
				Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
			}
		}

		chunk := s.convertChunk(&wire)
		if chunk != nil {
			return chunk, nil
		}
	}
}

// convertChunk maps one partial response to a canonical chunk. Text parts
// within a chunk aggregate into a single content delta; function calls are
// emitted whole, with synthesized IDs.
func (s *streamReader) convertChunk(wire *generateContentResponse) *providers.StreamChunk {
	chunk := &providers.StreamChunk{}

	if wire.UsageMetadata != nil {
		u := providers.UsageFromVertex(
			wire.UsageMetadata.PromptTokenCount,
			wire.UsageMetadata.CandidatesTokenCount,
			wire.UsageMetadata.ThoughtsTokenCount,
		)
		s.usage = &u
	}

	if !s.sentRole {
		s.sentRole = true
		chunk.Role = providers.RoleAssistant
	}

	hasToolCalls := false
	if len(wire.Candidates) > 0 {
		cand := wire.Candidates[0]
		if cand.Content != nil {
			for _, p := range cand.Content.Parts {
				switch {
				case p.FunctionCall != nil:
					args, err := json.Marshal(p.FunctionCall.Args)
					if err != nil {
						continue
					}
					chunk.ToolCalls = append(chunk.ToolCalls, providers.ToolCallDelta{
						Index:     s.nextToolIndex,
						ID:        "call_" + uuid.NewString(),
						Name:      p.FunctionCall.Name,
						Arguments: string(args),
					})
					s.nextToolIndex++
					hasToolCalls = true

				case p.Thought:
					// Reasoning traces are not forwarded.

				case p.Text != "":
					chunk.Content += p.Text
				}
			}
		}
		if cand.FinishReason != "" {
			chunk.FinishReason = normalizeFinishReason(cand.FinishReason, hasToolCalls || s.nextToolIndex > 0)
			s.finished = true
		}
	}

	if chunk.Role == "" && chunk.Content == "" && len(chunk.ToolCalls) == 0 && chunk.FinishReason == "" {
		return nil
	}
	return chunk
}

// finalChunk flushes trailing usage once the upstream body is exhausted.
func (s *streamReader) finalChunk() (*providers.StreamChunk, error) {
	if s.usage != nil {
		chunk := &providers.StreamChunk{Usage: s.usage}
		if !s.finished {
			chunk.FinishReason = providers.FinishReasonStop
			s.finished = true
		}
		s.usage = nil
		return chunk, nil
	}
	return nil, io.EOF
}

// Close closes the upstream body.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
