package gatewaytest

import "fmt"

// OpenAIChatResponse builds a canned OpenAI chat completion body.
func OpenAIChatResponse(content, model string) map[string]any {
	return map[string]any{
		"id":      "resp-123",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   model,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     9,
			"completion_tokens": 12,
			"total_tokens":      21,
		},
	}
}

// AnthropicMessagesResponse builds a canned Anthropic messages body.
func AnthropicMessagesResponse(text, model string) map[string]any {
	return map[string]any{
		"id":          "msg_01",
		"type":        "message",
		"role":        "assistant",
		"model":       model,
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

// VertexGenerateContentResponse builds a canned generateContent body.
func VertexGenerateContentResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     7,
			"candidatesTokenCount": 11,
			"totalTokenCount":      18,
		},
	}
}

// OpenAIStreamChunks builds a minimal OpenAI SSE stream for the given
// content fragments.
func OpenAIStreamChunks(model string, fragments ...string) []string {
	chunks := []string{
		fmt.Sprintf(`data: {"id":"resp-1","object":"chat.completion.chunk","model":%q,"choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`+"\n\n", model),
	}
	for _, f := range fragments {
		chunks = append(chunks,
			fmt.Sprintf(`data: {"id":"resp-1","object":"chat.completion.chunk","model":%q,"choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`+"\n\n", model, f))
	}
	chunks = append(chunks,
		fmt.Sprintf(`data: {"id":"resp-1","object":"chat.completion.chunk","model":%q,"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`+"\n\n", model),
		"data: [DONE]\n\n",
	)
	return chunks
}

// AnthropicStreamEvents builds a minimal Anthropic event stream with the
// given text fragments.
func AnthropicStreamEvents(fragments ...string) []string {
	events := []string{
		"event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_01\",\"model\":\"claude\",\"usage\":{\"input_tokens\":10,\"output_tokens\":0}}}\n\n",
		"event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n",
	}
	for _, f := range fragments {
		events = append(events,
			fmt.Sprintf("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", f))
	}
	events = append(events,
		"event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":0}\n\n",
		"event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\"},\"usage\":{\"output_tokens\":15}}\n\n",
		"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n",
	)
	return events
}
