package vertex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

// Vertex AI generateContent wire types.

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []wireTool        `json:"tools,omitempty"`
	ToolConfig        *toolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *inlineData       `json:"inlineData,omitempty"`
	FileData         *fileData         `json:"fileData,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type wireTool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations,omitempty"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type toolConfig struct {
	FunctionCallingConfig functionCallingConfig `json:"functionCallingConfig"`
}

type functionCallingConfig struct {
	Mode                 string   `json:"mode"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

type generationConfig struct {
	Temperature        *float64 `json:"temperature,omitempty"`
	TopP               *float64 `json:"topP,omitempty"`
	MaxOutputTokens    *int     `json:"maxOutputTokens,omitempty"`
	StopSequences      []string `json:"stopSequences,omitempty"`
	Seed               *int     `json:"seed,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseSchema     any      `json:"responseSchema,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateContentResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
}

type candidate struct {
	Content      *content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// buildGenerateContentRequest converts a canonical chat request into the
// generateContent form. imageModality adds IMAGE to the response
// modalities for image-output chat models.
func buildGenerateContentRequest(req *providers.ChatRequest, imageModality bool) (*generateContentRequest, error) {
	out := &generateContentRequest{}

	// System messages concatenate into the system instruction.
	var systemParts []string
	for _, msg := range req.Messages {
		if msg.Role == providers.RoleSystem {
			if text := msg.Text(); text != "" {
				systemParts = append(systemParts, text)
			}
		}
	}
	if len(systemParts) > 0 {
		out.SystemInstruction = &content{
			Parts: []part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}

	// Tool responses need the function name, which only the originating
	// assistant tool call carries.
	callNames := make(map[string]string)
	for _, msg := range req.Messages {
		for _, tc := range msg.ToolCalls {
			callNames[tc.ID] = tc.Function.Name
		}
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			continue

		case providers.RoleUser:
			parts, err := buildUserParts(msg)
			if err != nil {
				return nil, err
			}
			out.Contents = append(out.Contents, content{Role: "user", Parts: parts})

		case providers.RoleAssistant:
			parts := []part{}
			if text := msg.Text(); text != "" {
				parts = append(parts, part{Text: text})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				if tc.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
						return nil, &providers.AdapterError{
							Provider: "vertex",
							Message:  fmt.Sprintf("tool call %q has non-object arguments", tc.ID),
							Cause:    err,
						}
					}
				}
				parts = append(parts, part{
					FunctionCall: &functionCall{Name: tc.Function.Name, Args: args},
				})
			}
			if len(parts) > 0 {
				out.Contents = append(out.Contents, content{Role: "model", Parts: parts})
			}

		case providers.RoleTool:
			name := callNames[msg.ToolCallID]
			if name == "" {
				return nil, &providers.AdapterError{
					Provider: "vertex",
					Message:  fmt.Sprintf("tool message references unknown tool call %q", msg.ToolCallID),
				}
			}
			out.Contents = append(out.Contents, content{
				Role: "user",
				Parts: []part{{
					FunctionResponse: &functionResponse{
						Name:     name,
						Response: map[string]any{"result": msg.Text()},
					},
				}},
			})

		default:
			return nil, &providers.AdapterError{
				Provider: "vertex",
				Message:  fmt.Sprintf("unsupported message role %q", msg.Role),
			}
		}
	}

	if err := applyTools(out, req); err != nil {
		return nil, err
	}
	applyGenerationConfig(out, req, imageModality)

	return out, nil
}

// buildUserParts converts user content into native parts.
func buildUserParts(msg providers.Message) ([]part, error) {
	if len(msg.Parts) == 0 {
		return []part{{Text: msg.Content}}, nil
	}

	parts := make([]part, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Type {
		case providers.PartText:
			parts = append(parts, part{Text: p.Text})

		case providers.PartImageURL:
			url := p.ImageURL.URL
			switch {
			case providers.IsHTTPURL(url):
				parts = append(parts, part{
					FileData: &fileData{MimeType: mimeTypeForURL(url), FileURI: url},
				})
			case providers.IsDataURL(url):
				mediaType, data, err := providers.ParseDataURL(url)
				if err != nil {
					return nil, &providers.AdapterError{
						Provider: "vertex",
						Message:  "invalid image data URL",
						Cause:    err,
					}
				}
				parts = append(parts, part{
					InlineData: &inlineData{MimeType: mediaType, Data: data},
				})
			default:
				return nil, &providers.AdapterError{
					Provider: "vertex",
					Message:  fmt.Sprintf("unsupported image URL scheme in %q", url),
				}
			}

		case providers.PartFile:
			if p.File.Format == "" {
				return nil, &providers.AdapterError{
					Provider: "vertex",
					Message:  "file parts require an explicit format",
				}
			}
			parts = append(parts, part{
				FileData: &fileData{MimeType: p.File.Format, FileURI: p.File.FileID},
			})

		default:
			return nil, &providers.AdapterError{
				Provider: "vertex",
				Message:  fmt.Sprintf("unsupported content part type %q", p.Type),
			}
		}
	}
	return parts, nil
}

// mimeTypeForURL guesses an image MIME type from the URL path extension.
func mimeTypeForURL(url string) string {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	switch {
	case strings.HasSuffix(trimmed, ".png"):
		return "image/png"
	case strings.HasSuffix(trimmed, ".gif"):
		return "image/gif"
	case strings.HasSuffix(trimmed, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// applyTools emits function declarations and the calling-mode config.
func applyTools(out *generateContentRequest, req *providers.ChatRequest) error {
	if len(req.Tools) == 0 {
		return nil
	}

	decls := make([]functionDeclaration, 0, len(req.Tools))
	for _, t := range req.Tools {
		decl := functionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}
		if t.Function.Parameters != nil {
			decl.Parameters = sanitizeSchema(t.Function.Parameters)
		}
		decls = append(decls, decl)
	}
	out.Tools = []wireTool{{FunctionDeclarations: decls}}

	if req.ToolChoice == nil {
		return nil
	}
	switch req.ToolChoice.Mode {
	case providers.ToolChoiceAuto:
		out.ToolConfig = &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: "AUTO"}}
	case providers.ToolChoiceRequired:
		out.ToolConfig = &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: "ANY"}}
	case providers.ToolChoiceNone:
		out.ToolConfig = &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: "NONE"}}
	case providers.ToolChoiceFunction:
		out.ToolConfig = &toolConfig{FunctionCallingConfig: functionCallingConfig{
			Mode:                 "ANY",
			AllowedFunctionNames: []string{req.ToolChoice.FunctionName},
		}}
	default:
		return &providers.AdapterError{
			Provider: "vertex",
			Message:  fmt.Sprintf("unsupported tool_choice %q", req.ToolChoice.Mode),
		}
	}
	return nil
}

// applyGenerationConfig maps sampling knobs and structured output.
func applyGenerationConfig(out *generateContentRequest, req *providers.ChatRequest, imageModality bool) {
	gc := &generationConfig{
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
		StopSequences:   req.Stop,
		Seed:            req.Seed,
	}

	if rf := req.ResponseFormat; rf != nil {
		switch rf.Type {
		case "json_object":
			gc.ResponseMimeType = "application/json"
		case "json_schema":
			gc.ResponseMimeType = "application/json"
			if rf.JSONSchema != nil && rf.JSONSchema.Schema != nil {
				gc.ResponseSchema = sanitizeSchema(rf.JSONSchema.Schema)
			}
		}
	}

	if imageModality {
		gc.ResponseModalities = []string{"TEXT", "IMAGE"}
	}

	if gc.Temperature != nil || gc.TopP != nil || gc.MaxOutputTokens != nil ||
		len(gc.StopSequences) > 0 || gc.Seed != nil || gc.ResponseMimeType != "" ||
		len(gc.ResponseModalities) > 0 {
		out.GenerationConfig = gc
	}
}

// parseGenerateContentResponse converts a native response to canonical
// form. Tool-call IDs are synthesized: the API carries none.
func parseGenerateContentResponse(resp *generateContentResponse, alias string) (*providers.ChatResponse, error) {
	out := &providers.ChatResponse{
		ID:    resp.ResponseID,
		Model: alias,
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}

	if resp.UsageMetadata != nil {
		out.Usage = providers.UsageFromVertex(
			resp.UsageMetadata.PromptTokenCount,
			resp.UsageMetadata.CandidatesTokenCount,
			resp.UsageMetadata.ThoughtsTokenCount,
		)
	}

	if len(resp.Candidates) == 0 {
		return out, nil
	}
	cand := resp.Candidates[0]

	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			switch {
			case p.FunctionCall != nil:
				args, err := json.Marshal(p.FunctionCall.Args)
				if err != nil {
					return nil, &providers.ParseError{
						Provider: "vertex",
						Cause:    fmt.Errorf("failed to marshal function call args: %w", err),
					}
				}
				out.ToolCalls = append(out.ToolCalls, providers.ToolCall{
					ID:   "call_" + uuid.NewString(),
					Type: providers.ToolTypeFunction,
					Function: providers.FunctionCall{
						Name:      p.FunctionCall.Name,
						Arguments: string(args),
					},
				})

			case p.InlineData != nil && strings.HasPrefix(p.InlineData.MimeType, "image/"):
				out.Images = append(out.Images, providers.GeneratedImage{
					B64JSON:  p.InlineData.Data,
					MimeType: p.InlineData.MimeType,
				})

			case p.Thought:
				// Reasoning traces are not surfaced.

			case p.Text != "":
				out.Content += p.Text
			}
		}
	}

	out.FinishReason = normalizeFinishReason(cand.FinishReason, len(out.ToolCalls) > 0)
	return out, nil
}

// normalizeFinishReason maps Vertex finish reasons, preferring tool_calls
// when function calls were emitted.
func normalizeFinishReason(reason string, hasToolCalls bool) string {
	if hasToolCalls {
		return providers.FinishReasonToolCalls
	}
	switch reason {
	case "STOP":
		return providers.FinishReasonStop
	case "MAX_TOKENS":
		return providers.FinishReasonLength
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST":
		return providers.FinishReasonContentFilter
	case "":
		return ""
	default:
		return providers.FinishReasonStop
	}
}
