package types

import "encoding/json"

// ChatCompletionRequest is the OpenAI-compatible chat completion request.
// It matches the OpenAI Chat Completions API format so existing OpenAI
// SDKs work against the gateway unchanged.
type ChatCompletionRequest struct {
	// Model is the client-visible model alias.
	Model string `json:"model"`

	// Messages is the ordered conversation history.
	Messages []Message `json:"messages"`

	// Temperature controls randomness (0.0 to 2.0).
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens bounds the completion length.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0).
	TopP *float64 `json:"top_p,omitempty"`

	// N is the number of completions; only 1 is supported.
	N *int `json:"n,omitempty"`

	// Stream enables server-sent events streaming.
	Stream bool `json:"stream,omitempty"`

	// StreamOptions tunes streaming behavior.
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`

	// Stop lists sequences that halt generation.
	Stop StopSequences `json:"stop,omitempty"`

	// PresencePenalty penalizes repeated topics (-2.0 to 2.0).
	PresencePenalty *float64 `json:"presence_penalty,omitempty"`

	// FrequencyPenalty penalizes repeated tokens (-2.0 to 2.0).
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`

	// Seed enables deterministic sampling where supported.
	Seed *int `json:"seed,omitempty"`

	// User is an end-user identifier for abuse monitoring.
	User string `json:"user,omitempty"`

	// Tools lists functions the model may call.
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice is "none", "auto", "required", or a specific function
	// selector object.
	ToolChoice json.RawMessage `json:"tool_choice,omitempty"`

	// ResponseFormat selects plain text, JSON mode, or a JSON schema.
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Modalities requests additional output modalities (e.g. ["text",
	// "image"] for image-capable chat models).
	Modalities []string `json:"modalities,omitempty"`
}

// StreamOptions mirrors OpenAI's stream_options object.
type StreamOptions struct {
	// IncludeUsage adds a final chunk carrying token usage.
	IncludeUsage bool `json:"include_usage"`
}

// StopSequences accepts both the single-string and list forms of "stop".
type StopSequences []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StopSequences) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// Message is one turn of the conversation. Content is either a string or
// an ordered array of content parts.
type Message struct {
	// Role is "system", "user", "assistant" or "tool".
	Role string `json:"role"`

	// Content is a string or an array of ContentPart objects.
	Content json.RawMessage `json:"content,omitempty"`

	// Name optionally identifies the author.
	Name string `json:"name,omitempty"`

	// ToolCalls carries assistant-side tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message to its originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ContentPart is one element of a multipart message.
type ContentPart struct {
	// Type is "text", "image_url" or "file".
	Type string `json:"type"`

	Text     string        `json:"text,omitempty"`
	ImageURL *ImageURLPart `json:"image_url,omitempty"`
	File     *FilePart     `json:"file,omitempty"`
}

// ImageURLPart references an image by https or data URL.
type ImageURLPart struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// FilePart references a file by id, with an optional explicit format.
type FilePart struct {
	FileID string `json:"file_id"`
	Format string `json:"format,omitempty"`
}

// Tool is a function definition offered to the model.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a callable function.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall is a structured function invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ResponseFormat selects the output format.
type ResponseFormat struct {
	// Type is "text", "json_object" or "json_schema".
	Type string `json:"type"`

	// JSONSchema is required when Type is "json_schema".
	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

// JSONSchemaFormat is the json_schema response format payload.
type JSONSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict,omitempty"`
	Schema map[string]any `json:"schema"`
}

// Validate checks required fields.
func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "messages must contain at least one message"}
	}
	if r.N != nil && *r.N != 1 {
		return &ValidationError{Field: "n", Message: "only n=1 is supported"}
	}
	return nil
}

// EmbeddingRequest is the OpenAI-compatible embeddings request.
type EmbeddingRequest struct {
	Model string `json:"model"`

	// Input is a string or an array of strings.
	Input json.RawMessage `json:"input"`

	Dimensions     *int   `json:"dimensions,omitempty"`
	EncodingFormat string `json:"encoding_format,omitempty"`
	User           string `json:"user,omitempty"`
}

// InputStrings decodes Input into a list of strings.
func (r *EmbeddingRequest) InputStrings() ([]string, error) {
	var single string
	if err := json.Unmarshal(r.Input, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(r.Input, &many); err != nil {
		return nil, &ValidationError{Field: "input", Message: "input must be a string or an array of strings"}
	}
	return many, nil
}

// Validate checks required fields.
func (r *EmbeddingRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if len(r.Input) == 0 {
		return &ValidationError{Field: "input", Message: "input is required"}
	}
	return nil
}

// ImageGenerationRequest is the OpenAI-compatible image generation request.
type ImageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	User           string `json:"user,omitempty"`
}

// Validate checks required fields.
func (r *ImageGenerationRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if r.Prompt == "" {
		return &ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	return nil
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
