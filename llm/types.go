// Copyright 2025 TCG Assistant
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package llm provides a unified interface and types for LLM providers.
// It defines the common abstractions used by the agent runtime, including
// tool-use content blocks for model-driven tool selection.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProviderType identifies the type of LLM provider.
type ProviderType string

const (
	// ProviderTypeBedrock represents AWS Bedrock managed models.
	ProviderTypeBedrock ProviderType = "bedrock"

	// ProviderTypeAnthropic represents Anthropic's Claude models via the
	// direct API.
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types.
const (
	ContentTypeText       = "text"
	ContentTypeToolUse    = "tool_use"
	ContentTypeToolResult = "tool_result"
)

// Stop reasons reported by providers.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonToolUse   = "tool_use"
	StopReasonMaxTokens = "max_tokens"
)

// ContentBlock is a single piece of message content. A block is either
// text, a tool_use request from the model, or a tool_result supplied by
// the caller.
type ContentBlock struct {
	// Type identifies the block: "text", "tool_use", or "tool_result".
	Type string `json:"type"`

	// Text is the text content (Type == "text").
	Text string `json:"text,omitempty"`

	// ID is the tool-use identifier assigned by the model (Type == "tool_use").
	ID string `json:"id,omitempty"`

	// Name is the tool name requested by the model (Type == "tool_use").
	Name string `json:"name,omitempty"`

	// Input is the tool input as raw JSON (Type == "tool_use").
	Input json.RawMessage `json:"input,omitempty"`

	// ToolUseID references the tool_use block a result answers
	// (Type == "tool_result").
	ToolUseID string `json:"tool_use_id,omitempty"`

	// Content is the tool result payload (Type == "tool_result").
	Content string `json:"content,omitempty"`

	// IsError marks a failed tool execution (Type == "tool_result").
	IsError bool `json:"is_error,omitempty"`
}

// Message is a single conversation turn.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserMessage builds a user message with a single text block.
func UserMessage(text string) Message {
	return Message{
		Role:    RoleUser,
		Content: []ContentBlock{{Type: ContentTypeText, Text: text}},
	}
}

// AssistantMessage builds an assistant message from response content.
func AssistantMessage(content []ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResultMessage builds a user message carrying tool results back to
// the model.
func ToolResultMessage(results []ContentBlock) Message {
	return Message{Role: RoleUser, Content: results}
}

// ToolSpec describes a tool the model may request during completion.
type ToolSpec struct {
	// Name is the tool identifier the model uses in tool_use blocks.
	Name string `json:"name"`

	// Description tells the model what the tool does and when to use it.
	Description string `json:"description"`

	// InputSchema is the JSON Schema for the tool input.
	InputSchema json.RawMessage `json:"input_schema"`
}

// CompletionRequest encapsulates all parameters for an LLM completion request.
type CompletionRequest struct {
	// Messages is the conversation so far, oldest first.
	Messages []Message `json:"messages"`

	// SystemPrompt is an optional system message that sets context/behavior.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// MaxTokens limits the maximum number of tokens in the response.
	// If 0, provider defaults are used.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64 `json:"temperature,omitempty"`

	// TopP is nucleus sampling parameter (alternative to temperature).
	TopP float64 `json:"top_p,omitempty"`

	// Model overrides the provider's default model.
	Model string `json:"model,omitempty"`

	// StopSequences are strings that cause generation to stop.
	StopSequences []string `json:"stop_sequences,omitempty"`

	// Tools lists the tools the model may request.
	Tools []ToolSpec `json:"tools,omitempty"`

	// Stream enables streaming response mode.
	// When true, use CompleteStream instead of Complete.
	Stream bool `json:"stream,omitempty"`
}

// CompletionResponse contains the result of an LLM completion.
type CompletionResponse struct {
	// Content is the generated content blocks, in model order.
	Content []ContentBlock `json:"content"`

	// Model is the actual model used (may differ from requested).
	Model string `json:"model"`

	// StopReason indicates why generation stopped
	// ("end_turn", "tool_use", "max_tokens").
	StopReason string `json:"stop_reason,omitempty"`

	// Usage contains token usage statistics.
	Usage UsageStats `json:"usage"`

	// Latency is the time taken to generate the response.
	Latency time.Duration `json:"latency"`
}

// Text concatenates all text blocks in the response.
func (r *CompletionResponse) Text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == ContentTypeText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// ToolUses returns the tool_use blocks in the response, in model order.
func (r *CompletionResponse) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, block := range r.Content {
		if block.Type == ContentTypeToolUse {
			uses = append(uses, block)
		}
	}
	return uses
}

// HasToolUse reports whether the model requested any tool executions.
func (r *CompletionResponse) HasToolUse() bool {
	return r.StopReason == StopReasonToolUse || len(r.ToolUses()) > 0
}

// UsageStats tracks token usage for billing and monitoring.
type UsageStats struct {
	// PromptTokens is the number of tokens in the input.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens generated.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the sum of prompt and completion tokens.
	TotalTokens int `json:"total_tokens"`
}

// Stream chunk types.
const (
	ChunkTypeContent = "content"
	ChunkTypeToolUse = "tool_use"
	ChunkTypeDone    = "done"
	ChunkTypeError   = "error"
)

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	// Type identifies the chunk type: "content", "tool_use", "done", "error".
	Type string `json:"type"`

	// Content is the text content of this chunk (Type == "content").
	Content string `json:"content,omitempty"`

	// ToolName is the tool the model started requesting (Type == "tool_use").
	ToolName string `json:"tool_name,omitempty"`

	// Done indicates this is the final chunk.
	Done bool `json:"done"`

	// Error contains error information if Type is "error".
	Error string `json:"error,omitempty"`
}

// StreamHandler is a callback function for processing streaming chunks.
// Return an error to abort the stream.
type StreamHandler func(chunk StreamChunk) error

// ProviderError represents an error from an LLM provider.
type ProviderError struct {
	// Provider is the name of the provider that returned the error.
	Provider string `json:"provider"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// StatusCode is the HTTP status code (if applicable).
	StatusCode int `json:"status_code,omitempty"`

	// Retryable indicates if the request can be retried.
	Retryable bool `json:"retryable"`

	// Cause is the underlying error (if any).
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Common error codes.
const (
	// ErrCodeRateLimit indicates rate limiting.
	ErrCodeRateLimit = "rate_limit"

	// ErrCodeAuth indicates authentication failure.
	ErrCodeAuth = "authentication_error"

	// ErrCodeInvalidRequest indicates malformed request.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeServerError indicates provider server error.
	ErrCodeServerError = "server_error"

	// ErrCodeTimeout indicates request timeout.
	ErrCodeTimeout = "timeout"

	// ErrCodeUnavailable indicates provider is unavailable.
	ErrCodeUnavailable = "unavailable"
)

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, code, message string) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Retryable: isRetryableCode(code),
	}
}

// isRetryableCode determines if an error code is retryable.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeRateLimit, ErrCodeServerError, ErrCodeTimeout, ErrCodeUnavailable:
		return true
	default:
		return false
	}
}
