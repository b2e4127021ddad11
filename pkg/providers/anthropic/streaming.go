package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// Anthropic streams messages as a typed SSE event sequence:
// message_start, content_block_start/delta/stop per block, message_delta
// with the stop reason and output token count, then message_stop.

type streamEvent struct {
	Type string `json:"type"`

	Message *messagesResponse `json:"message,omitempty"`

	Index        int           `json:"index"`
	ContentBlock *contentBlock `json:"content_block,omitempty"`

	Delta *eventDelta `json:"delta,omitempty"`
	Usage *wireUsage  `json:"usage,omitempty"`

	Error *streamErrorDetail `json:"error,omitempty"`
}

type streamErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// eventDelta merges the delta payloads of content_block_delta
// (text_delta / input_json_delta) and message_delta (stop_reason).
type eventDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

// streamReader parses Anthropic's event stream into canonical chunks.
type streamReader struct {
	client  *providers.Client
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool

	// inputTokens arrives in message_start; the completion count arrives in
	// message_delta. Both are needed for the final usage chunk.
	inputTokens int

	// blockToolIndex maps a provider content-block index to the OpenAI
	// tool-call index for fragment reassembly.
	blockToolIndex map[int]int
	nextToolIndex  int

	sentRole bool
}

func newStreamReader(ctx context.Context, client *providers.Client, url string, req *messagesRequest, headers map[string]string) (*streamReader, error) {
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
		client:         client,
		body:           resp.Body,
		scanner:        scanner,
		blockToolIndex: make(map[int]int),
	}, nil
}

// Read returns the next canonical chunk, io.EOF at message_stop.
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

		event, err := s.readEvent()
		if err != nil {
			return nil, err
		}
		if event == nil {
			return nil, io.EOF
		}

		if event.Type == "error" {
			msg := "upstream stream error"
			if event.Error != nil {
				msg = event.Error.Message
			}
			return nil, &providers.StreamError{Provider: "anthropic", Message: msg}
		}

		chunk, done := s.convertEvent(event)
		if done {
			return nil, io.EOF
		}
		if chunk != nil {
			return chunk, nil
		}
	}
}

// readEvent reads one SSE event (event:/data: lines up to a blank line).
// Returns nil when the stream is exhausted.
func (s *streamReader) readEvent() (*streamEvent, error) {
	var eventType string
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			if eventType != "" || len(dataLines) > 0 {
				break
			}
			continue
		}
		if after, ok := strings.CutPrefix(line, "event: "); ok {
			eventType = after
		} else if after, ok := strings.CutPrefix(line, "data: "); ok {
			dataLines = append(dataLines, after)
		}
		// id: and retry: fields are ignored.
	}
	if err := s.scanner.Err(); err != nil {
		return nil, &providers.StreamError{
			Provider: "anthropic",
			Message:  "failed to read stream",
			Cause:    err,
		}
	}
	if eventType == "" && len(dataLines) == 0 {
		return nil, nil
	}

	var event streamEvent
	if len(dataLines) > 0 {
		data := strings.Join(dataLines, "\n")
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return nil, &providers.ParseError{
				Provider:    "anthropic",
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream event: %w", err),
			}
		}
	}
	if event.Type == "" {
		event.Type = eventType
	}
	return &event, nil
}

// convertEvent maps one provider event to zero or one canonical chunks.
// done is true at message_stop.
func (s *streamReader) convertEvent(event *streamEvent) (chunk *providers.StreamChunk, done bool) {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			s.inputTokens = event.Message.Usage.InputTokens
		}
		if !s.sentRole {
			s.sentRole = true
			return &providers.StreamChunk{Role: providers.RoleAssistant}, false
		}
		return nil, false

	case "content_block_start":
		if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
			toolIdx := s.nextToolIndex
			s.nextToolIndex++
			s.blockToolIndex[event.Index] = toolIdx
			return &providers.StreamChunk{
				ToolCalls: []providers.ToolCallDelta{{
					Index: toolIdx,
					ID:    event.ContentBlock.ID,
					Name:  event.ContentBlock.Name,
				}},
			}, false
		}
		return nil, false

	case "content_block_delta":
		if event.Delta == nil {
			return nil, false
		}
		switch event.Delta.Type {
		case "text_delta":
			if event.Delta.Text == "" {
				return nil, false
			}
			return &providers.StreamChunk{Content: event.Delta.Text}, false
		case "input_json_delta":
			toolIdx, ok := s.blockToolIndex[event.Index]
			if !ok {
				return nil, false
			}
			return &providers.StreamChunk{
				ToolCalls: []providers.ToolCallDelta{{
					Index:     toolIdx,
					Arguments: event.Delta.PartialJSON,
				}},
			}, false
		}
		return nil, false

	case "content_block_stop":
		return nil, false

	case "message_delta":
		out := &providers.StreamChunk{}
		if event.Delta != nil {
			out.FinishReason = normalizeStopReason(event.Delta.StopReason)
		}
		if event.Usage != nil {
			u := providers.UsageFromAnthropic(s.inputTokens, event.Usage.OutputTokens)
			out.Usage = &u
		}
		return out, false

	case "message_stop":
		return nil, true

	case "ping":
		return nil, false

	default:
		return nil, false
	}
}

// Close closes the upstream body.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
