// Package proxy converts between the OpenAI wire schema and the canonical
// provider schema, and orchestrates upstream dispatch with failover.
package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/types"
)

// maxBodyBytes bounds request bodies; multimodal payloads carry inline
// base64 images.
const maxBodyBytes = 50 << 20

// RequestError wraps a request parsing or validation failure.
type RequestError struct {
	Message string
	Param   string
	Code    string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse renders the error in OpenAI form.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}

// decodeJSONBody decodes a request body into dst.
func decodeJSONBody(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return &RequestError{
			Message: fmt.Sprintf("Invalid JSON in request body: %v", err),
			Code:    types.CodeInvalidJSON,
		}
	}
	return nil
}

// ParseChatCompletionRequest decodes and validates a chat completion
// request body.
func ParseChatCompletionRequest(r *http.Request) (*types.ChatCompletionRequest, error) {
	var req types.ChatCompletionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		var vErr *types.ValidationError
		if ok := asValidationError(err, &vErr); ok {
			return nil, &RequestError{Message: vErr.Message, Param: vErr.Field, Code: types.CodeInvalidValue}
		}
		return nil, err
	}
	return &req, nil
}

// ParseEmbeddingRequest decodes and validates an embeddings request body.
func ParseEmbeddingRequest(r *http.Request) (*types.EmbeddingRequest, error) {
	var req types.EmbeddingRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		var vErr *types.ValidationError
		if ok := asValidationError(err, &vErr); ok {
			return nil, &RequestError{Message: vErr.Message, Param: vErr.Field, Code: types.CodeInvalidValue}
		}
		return nil, err
	}
	return &req, nil
}

// ParseImageGenerationRequest decodes and validates an image generation
// request body.
func ParseImageGenerationRequest(r *http.Request) (*types.ImageGenerationRequest, error) {
	var req types.ImageGenerationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		var vErr *types.ValidationError
		if ok := asValidationError(err, &vErr); ok {
			return nil, &RequestError{Message: vErr.Message, Param: vErr.Field, Code: types.CodeInvalidValue}
		}
		return nil, err
	}
	return &req, nil
}

// ToCanonicalChat converts an OpenAI wire request into the canonical form.
func ToCanonicalChat(req *types.ChatCompletionRequest) (*providers.ChatRequest, error) {
	out := &providers.ChatRequest{
		Alias:            req.Model,
		Model:            req.Model,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		Stop:             req.Stop,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Seed:             req.Seed,
		Stream:           req.Stream,
		Modalities:       req.Modalities,
		User:             req.User,
	}

	if req.StreamOptions != nil {
		out.StreamOptions = &providers.StreamOptions{IncludeUsage: req.StreamOptions.IncludeUsage}
	}

	for i, msg := range req.Messages {
		converted, err := toCanonicalMessage(msg, i)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, converted)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, providers.Tool{
			Type: t.Type,
			Function: providers.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}

	if len(req.ToolChoice) > 0 {
		tc, err := parseToolChoice(req.ToolChoice)
		if err != nil {
			return nil, err
		}
		out.ToolChoice = tc
	}

	if req.ResponseFormat != nil {
		out.ResponseFormat = &providers.ResponseFormat{Type: req.ResponseFormat.Type}
		if req.ResponseFormat.JSONSchema != nil {
			out.ResponseFormat.JSONSchema = &providers.JSONSchemaFormat{
				Name:   req.ResponseFormat.JSONSchema.Name,
				Strict: req.ResponseFormat.JSONSchema.Strict,
				Schema: req.ResponseFormat.JSONSchema.Schema,
			}
		}
	}

	return out, nil
}

func toCanonicalMessage(msg types.Message, index int) (providers.Message, error) {
	out := providers.Message{
		Role:       msg.Role,
		Name:       msg.Name,
		ToolCallID: msg.ToolCallID,
	}

	if len(msg.Content) > 0 {
		var text string
		if err := json.Unmarshal(msg.Content, &text); err == nil {
			out.Content = text
		} else {
			var parts []types.ContentPart
			if err := json.Unmarshal(msg.Content, &parts); err != nil {
				return providers.Message{}, &RequestError{
					Message: fmt.Sprintf("messages[%d].content must be a string or an array of content parts", index),
					Param:   "messages",
					Code:    types.CodeInvalidValue,
				}
			}
			for _, p := range parts {
				converted, err := toCanonicalPart(p, index)
				if err != nil {
					return providers.Message{}, err
				}
				out.Parts = append(out.Parts, converted)
			}
		}
	}

	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, providers.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: providers.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return out, nil
}

func toCanonicalPart(p types.ContentPart, msgIndex int) (providers.ContentPart, error) {
	switch p.Type {
	case "text":
		return providers.ContentPart{Type: providers.PartText, Text: p.Text}, nil

	case "image_url":
		if p.ImageURL == nil || p.ImageURL.URL == "" {
			return providers.ContentPart{}, &RequestError{
				Message: fmt.Sprintf("messages[%d]: image_url part requires a url", msgIndex),
				Param:   "messages",
				Code:    types.CodeInvalidValue,
			}
		}
		return providers.ContentPart{
			Type:     providers.PartImageURL,
			ImageURL: &providers.ImageURLPart{URL: p.ImageURL.URL, Detail: p.ImageURL.Detail},
		}, nil

	case "file":
		if p.File == nil || p.File.FileID == "" {
			return providers.ContentPart{}, &RequestError{
				Message: fmt.Sprintf("messages[%d]: file part requires a file_id", msgIndex),
				Param:   "messages",
				Code:    types.CodeInvalidValue,
			}
		}
		return providers.ContentPart{
			Type: providers.PartFile,
			File: &providers.FilePart{FileID: p.File.FileID, Format: p.File.Format},
		}, nil

	default:
		return providers.ContentPart{}, &RequestError{
			Message: fmt.Sprintf("messages[%d]: unsupported content part type %q", msgIndex, p.Type),
			Param:   "messages",
			Code:    types.CodeInvalidValue,
		}
	}
}

// parseToolChoice decodes OpenAI's polymorphic tool_choice field.
func parseToolChoice(raw json.RawMessage) (*providers.ToolChoice, error) {
	var mode string
	if err := json.Unmarshal(raw, &mode); err == nil {
		switch mode {
		case providers.ToolChoiceAuto, providers.ToolChoiceNone, providers.ToolChoiceRequired:
			return &providers.ToolChoice{Mode: mode}, nil
		default:
			return nil, &RequestError{
				Message: fmt.Sprintf("unsupported tool_choice %q", mode),
				Param:   "tool_choice",
				Code:    types.CodeInvalidValue,
			}
		}
	}

	var selector struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &selector); err != nil || selector.Function.Name == "" {
		return nil, &RequestError{
			Message: "tool_choice must be a mode string or a function selector",
			Param:   "tool_choice",
			Code:    types.CodeInvalidValue,
		}
	}
	return &providers.ToolChoice{
		Mode:         providers.ToolChoiceFunction,
		FunctionName: selector.Function.Name,
	}, nil
}

// ToCanonicalEmbedding converts an embeddings wire request.
func ToCanonicalEmbedding(req *types.EmbeddingRequest) (*providers.EmbeddingRequest, error) {
	input, err := req.InputStrings()
	if err != nil {
		var vErr *types.ValidationError
		if ok := asValidationError(err, &vErr); ok {
			return nil, &RequestError{Message: vErr.Message, Param: vErr.Field, Code: types.CodeInvalidValue}
		}
		return nil, err
	}
	return &providers.EmbeddingRequest{
		Alias:          req.Model,
		Model:          req.Model,
		Input:          input,
		Dimensions:     req.Dimensions,
		EncodingFormat: req.EncodingFormat,
		User:           req.User,
	}, nil
}

// ToCanonicalImage converts an image generation wire request.
func ToCanonicalImage(req *types.ImageGenerationRequest) *providers.ImageRequest {
	n := req.N
	if n <= 0 {
		n = 1
	}
	return &providers.ImageRequest{
		Alias:          req.Model,
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              n,
		Size:           req.Size,
		Quality:        req.Quality,
		Style:          req.Style,
		ResponseFormat: req.ResponseFormat,
		User:           req.User,
	}
}
