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

// Package bedrock provides an LLM provider implementation backed by AWS
// Bedrock Runtime. It speaks the Anthropic messages wire format (including
// tool use) and uses AWS Signature V4 authentication via IAM roles, so no
// API key is required.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"tcg-agent/platform/llm"
)

const (
	// DefaultRegion matches the Bedrock inference profile deployment region.
	DefaultRegion = "us-east-1"

	// DefaultModel is the default Claude model ID on Bedrock.
	DefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"

	// DefaultMaxTokens is the default max tokens for completions.
	DefaultMaxTokens = 4096

	// DefaultTemperature is the default temperature for completions.
	DefaultTemperature = 0.7

	// anthropicVersion is the required version marker for the Anthropic
	// messages format on Bedrock.
	anthropicVersion = "bedrock-2023-05-31"
)

// API is the subset of the Bedrock Runtime client used by the provider.
// *bedrockruntime.Client satisfies this interface; tests supply mocks.
type API interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// Config contains configuration for the Bedrock provider
type Config struct {
	Region string // Optional: AWS region (default: us-east-1)
	Model  string // Optional: default model ID
}

// Provider implements llm.StreamingProvider for AWS Bedrock
type Provider struct {
	client  API
	region  string
	model   string
	healthy bool
	mu      sync.RWMutex
}

// NewProvider creates a Bedrock provider using the default AWS credential
// chain (IAM role on Fargate, shared config locally).
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewProviderWithClient(bedrockruntime.NewFromConfig(awsCfg), cfg)
}

// NewProviderWithClient creates a provider with an explicit Bedrock client.
func NewProviderWithClient(client API, cfg Config) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("bedrock client is required")
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &Provider{
		client:  client,
		region:  cfg.Region,
		model:   cfg.Model,
		healthy: true,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "bedrock"
}

// Type returns the provider type
func (p *Provider) Type() llm.ProviderType {
	return llm.ProviderTypeBedrock
}

// SupportsStreaming indicates if the provider supports streaming
func (p *Provider) SupportsStreaming() bool {
	return true
}

// IsHealthy returns whether the last Bedrock call succeeded
func (p *Provider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy
}

func (p *Provider) setHealthy(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = healthy
}

// Complete generates a completion for the given request
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()

	model, body, err := p.buildRequestBody(req)
	if err != nil {
		return nil, err
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		p.setHealthy(false)
		log.Printf("[Bedrock] InvokeModel failed: %v", err)
		return nil, wrapInvokeError(err)
	}

	p.setHealthy(true)

	var apiResp anthropicResponse
	if err := json.Unmarshal(output.Body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	resp := apiResp.toCompletionResponse(model)
	resp.Latency = time.Since(start)
	return resp, nil
}

// CompleteStream generates a streaming completion for the given request.
// The handler is invoked for each content delta and each tool_use block
// start, in upstream order.
func (p *Provider) CompleteStream(ctx context.Context, req llm.CompletionRequest, handler llm.StreamHandler) (*llm.CompletionResponse, error) {
	start := time.Now()

	model, body, err := p.buildRequestBody(req)
	if err != nil {
		return nil, err
	}

	output, err := p.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		p.setHealthy(false)
		log.Printf("[Bedrock] InvokeModelWithResponseStream failed: %v", err)
		return nil, wrapInvokeError(err)
	}

	p.setHealthy(true)

	stream := output.GetStream()
	defer func() {
		if err := stream.Close(); err != nil {
			log.Printf("[Bedrock] Error closing response stream: %v", err)
		}
	}()

	st := newStreamState(model)
	for event := range stream.Events() {
		chunk, ok := event.(*brtypes.ResponseStreamMemberChunk)
		if !ok {
			continue
		}
		if err := st.apply(chunk.Value.Bytes, handler); err != nil {
			return nil, err
		}
	}

	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("stream read error: %w", err)
	}

	resp := st.finalize()
	resp.Latency = time.Since(start)
	return resp, nil
}

// wrapInvokeError maps a Bedrock SDK failure onto the provider error
// taxonomy so callers can branch on error code and retryability.
func wrapInvokeError(err error) error {
	code := llm.ErrCodeUnavailable
	message := err.Error()

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorMessage() != "" {
			message = apiErr.ErrorMessage()
		}
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			code = llm.ErrCodeRateLimit
		case "AccessDeniedException", "UnrecognizedClientException":
			code = llm.ErrCodeAuth
		case "ValidationException", "ResourceNotFoundException":
			code = llm.ErrCodeInvalidRequest
		case "ModelTimeoutException":
			code = llm.ErrCodeTimeout
		case "ServiceUnavailableException", "ModelNotReadyException":
			code = llm.ErrCodeUnavailable
		default:
			code = llm.ErrCodeServerError
		}
	}

	perr := llm.NewProviderError("bedrock", code, message)
	perr.Cause = err
	return perr
}

// buildRequestBody resolves the model and marshals the Anthropic messages
// request body.
func (p *Provider) buildRequestBody(req llm.CompletionRequest) (string, []byte, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	// Temperature: 0.0 is valid (deterministic), negative means unset
	temperature := req.Temperature
	if temperature < 0 {
		temperature = DefaultTemperature
	}

	apiReq := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		System:           req.SystemPrompt,
		Messages:         toWireMessages(req.Messages),
		StopSequences:    req.StopSequences,
	}

	if temperature >= 0 {
		apiReq.Temperature = &temperature
	}
	if req.TopP > 0 {
		apiReq.TopP = &req.TopP
	}
	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return model, body, nil
}

// Internal wire types (Anthropic messages format on Bedrock)

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	StopSequences    []string           `json:"stop_sequences,omitempty"`
	Tools            []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Role       string `json:"role"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		ID    string          `json:"id,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r *anthropicResponse) toCompletionResponse(requestedModel string) *llm.CompletionResponse {
	model := r.Model
	if model == "" {
		model = requestedModel
	}

	var content []llm.ContentBlock
	for _, block := range r.Content {
		switch block.Type {
		case "text":
			content = append(content, llm.ContentBlock{Type: llm.ContentTypeText, Text: block.Text})
		case "tool_use":
			content = append(content, llm.ContentBlock{
				Type:  llm.ContentTypeToolUse,
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}

	return &llm.CompletionResponse{
		Content:    content,
		Model:      model,
		StopReason: r.StopReason,
		Usage: llm.UsageStats{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		},
	}
}

func toWireMessages(messages []llm.Message) []anthropicMessage {
	wire := make([]anthropicMessage, 0, len(messages))
	for _, msg := range messages {
		wm := anthropicMessage{Role: msg.Role}
		for _, block := range msg.Content {
			wm.Content = append(wm.Content, anthropicContent{
				Type:      block.Type,
				Text:      block.Text,
				ID:        block.ID,
				Name:      block.Name,
				Input:     block.Input,
				ToolUseID: block.ToolUseID,
				Content:   block.Content,
				IsError:   block.IsError,
			})
		}
		wire = append(wire, wm)
	}
	return wire
}
