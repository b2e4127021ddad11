package providers

// Canonical request/response types. The gateway speaks OpenAI's schema as
// its lingua franca; adapters translate these into each provider's native
// form and back.

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reason constants.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// Tool type constants.
const (
	ToolTypeFunction = "function"
)

// ChatRequest is a canonical chat completion request. Model carries the
// provider-native id; Alias keeps the client-facing name for response
// rewriting.
type ChatRequest struct {
	Model string
	Alias string

	Messages []Message

	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	Stop             []string
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Seed             *int

	Tools      []Tool
	ToolChoice *ToolChoice

	ResponseFormat *ResponseFormat

	Stream        bool
	StreamOptions *StreamOptions

	// Modalities requests additional output modalities (e.g. "image" for
	// Gemini image chat).
	Modalities []string

	User string
}

// Message is one turn of the conversation. Content holds plain text; Parts
// holds multimodal content and takes precedence when non-empty.
type Message struct {
	Role       string
	Content    string
	Parts      []ContentPart
	Name       string
	ToolCalls  []ToolCall
	ToolCallID string
}

// Text returns the textual content of the message, concatenating text parts
// for multipart messages.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// Content part type constants.
const (
	PartText     = "text"
	PartImageURL = "image_url"
	PartFile     = "file"
)

// ContentPart is one element of a multipart message.
type ContentPart struct {
	Type string

	// Text for PartText parts.
	Text string

	// ImageURL for PartImageURL parts; either an https URL or a data URL.
	ImageURL *ImageURLPart

	// File for PartFile parts.
	File *FilePart
}

// ImageURLPart carries an image reference.
type ImageURLPart struct {
	URL    string
	Detail string
}

// FilePart references an uploaded or addressable file.
type FilePart struct {
	FileID string
	// Format is the MIME type when the binding requires an explicit one.
	Format string
}

// Tool is a function definition offered to the model.
type Tool struct {
	Type     string
	Function FunctionDefinition
}

// FunctionDefinition defines a callable function.
type FunctionDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Tool choice mode constants.
const (
	ToolChoiceAuto     = "auto"
	ToolChoiceNone     = "none"
	ToolChoiceRequired = "required"
	ToolChoiceFunction = "function"
)

// ToolChoice is the parsed form of OpenAI's tool_choice field: either one
// of the mode strings, or a specific function name.
type ToolChoice struct {
	Mode string
	// FunctionName is set when Mode is ToolChoiceFunction.
	FunctionName string
}

// ResponseFormat controls structured output.
type ResponseFormat struct {
	// Type is "text", "json_object" or "json_schema".
	Type string

	// JSONSchema is set for "json_schema".
	JSONSchema *JSONSchemaFormat
}

// JSONSchemaFormat is the OpenAI json_schema response format payload.
type JSONSchemaFormat struct {
	Name   string
	Strict bool
	Schema map[string]any
}

// StreamOptions mirrors OpenAI's stream_options.
type StreamOptions struct {
	IncludeUsage bool
}

// ToolCall is a structured function invocation emitted by the model.
type ToolCall struct {
	ID       string
	Type     string
	Function FunctionCall
}

// FunctionCall carries the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string
	Arguments string
}

// ChatResponse is a canonical chat completion response.
type ChatResponse struct {
	ID           string
	Model        string
	Created      int64
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage

	// Images carries inline image outputs from image-modality chat models,
	// base64-encoded without a data-URL prefix.
	Images []GeneratedImage
}

// GeneratedImage is one image output, carried either inline as base64 or
// as a provider-hosted URL.
type GeneratedImage struct {
	B64JSON  string
	URL      string
	MimeType string
}

// StreamChunk is one canonical streaming delta.
type StreamChunk struct {
	// Role is set on the first chunk of a message.
	Role string

	// Content is an incremental text fragment.
	Content string

	// ToolCalls carries incremental tool-call fragments.
	ToolCalls []ToolCallDelta

	// FinishReason is set on the terminating chunk.
	FinishReason string

	// Usage is set on the final chunk when the provider reports it.
	Usage *Usage
}

// ToolCallDelta is an incremental tool-call fragment. Index identifies the
// tool call being assembled; ID and Name are present on the first fragment;
// Arguments fragments concatenate into the full JSON string.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// EmbeddingRequest is a canonical embeddings request. Input entries are
// plain strings.
type EmbeddingRequest struct {
	Model string
	Alias string
	Input []string

	Dimensions     *int
	EncodingFormat string
	User           string
}

// EmbeddingResponse carries one vector per input, in order.
type EmbeddingResponse struct {
	Model      string
	Embeddings [][]float64
	Usage      Usage
}

// ImageRequest is a canonical image generation request.
type ImageRequest struct {
	Model  string
	Alias  string
	Prompt string
	N      int
	Size   string
	// Quality and Style pass through to providers that understand them.
	Quality        string
	Style          string
	ResponseFormat string
	User           string
}

// ImageResponse carries generated images.
type ImageResponse struct {
	Created int64
	Images  []GeneratedImage
	Usage   Usage
}
