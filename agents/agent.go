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

// Package agents implements the LLM agents behind the gateway endpoints:
// a weather agent, a card research agent, and a coordinator that routes
// between deck lookup, research, and storefront tools. Each agent is an
// iterative model/tool loop over an llm.StreamingProvider.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tcg-agent/platform/llm"
	"tcg-agent/platform/shared/logger"
)

const (
	// DefaultMaxIterations bounds the model/tool loop
	DefaultMaxIterations = 10

	// DefaultMaxTokens is the per-turn completion budget
	DefaultMaxTokens = 4096
)

// Tool is a capability the model can invoke during a run
type Tool interface {
	// Name is the tool identifier presented to the model
	Name() string

	// Description tells the model when to use the tool
	Description() string

	// InputSchema is the JSON Schema for the tool's input
	InputSchema() json.RawMessage

	// Call executes the tool with the model-provided input
	Call(ctx context.Context, input json.RawMessage) (string, error)
}

// FuncTool adapts a function to the Tool interface
type FuncTool struct {
	name        string
	description string
	schema      json.RawMessage
	fn          func(ctx context.Context, input json.RawMessage) (string, error)
}

// NewFuncTool creates a Tool from a function
func NewFuncTool(name, description string, schema json.RawMessage, fn func(ctx context.Context, input json.RawMessage) (string, error)) *FuncTool {
	return &FuncTool{name: name, description: description, schema: schema, fn: fn}
}

func (t *FuncTool) Name() string                 { return t.name }
func (t *FuncTool) Description() string          { return t.description }
func (t *FuncTool) InputSchema() json.RawMessage { return t.schema }
func (t *FuncTool) Call(ctx context.Context, input json.RawMessage) (string, error) {
	return t.fn(ctx, input)
}

// CompletionObserver receives the outcome of every model invocation an
// agent makes, one call per completion, e.g. for usage metering.
type CompletionObserver func(ctx context.Context, agent, model string, usage llm.UsageStats, latency time.Duration)

// Options configures an Agent
type Options struct {
	MaxIterations int
	MaxTokens     int
	Temperature   float64
	Model         string
	Logger        *logger.Logger
	Observer      CompletionObserver
}

// Agent runs an iterative model/tool loop against an LLM provider
type Agent struct {
	name          string
	systemPrompt  string
	provider      llm.StreamingProvider
	tools         []Tool
	toolIndex     map[string]Tool
	maxIterations int
	maxTokens     int
	temperature   float64
	model         string
	logger        *logger.Logger
	observer      CompletionObserver
}

// New creates an agent with the given provider and tools
func New(name, systemPrompt string, provider llm.StreamingProvider, tools []Tool, opts Options) *Agent {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = logger.New(name)
	}

	toolIndex := make(map[string]Tool, len(tools))
	for _, tool := range tools {
		toolIndex[tool.Name()] = tool
	}

	return &Agent{
		name:          name,
		systemPrompt:  systemPrompt,
		provider:      provider,
		tools:         tools,
		toolIndex:     toolIndex,
		maxIterations: opts.MaxIterations,
		maxTokens:     opts.MaxTokens,
		temperature:   opts.Temperature,
		model:         opts.Model,
		logger:        opts.Logger,
		observer:      opts.Observer,
	}
}

// Name returns the agent name
func (a *Agent) Name() string {
	return a.name
}

func (a *Agent) toolSpecs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(a.tools))
	for _, tool := range a.tools {
		specs = append(specs, llm.ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return specs
}

func (a *Agent) completionRequest(messages []llm.Message) llm.CompletionRequest {
	return llm.CompletionRequest{
		Messages:     messages,
		SystemPrompt: a.systemPrompt,
		MaxTokens:    a.maxTokens,
		Temperature:  a.temperature,
		Model:        a.model,
		Tools:        a.toolSpecs(),
	}
}

// Run executes the agent loop and returns the final text answer.
func (a *Agent) Run(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	messages := []llm.Message{llm.UserMessage(prompt)}

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		resp, err := a.provider.Complete(ctx, a.completionRequest(messages))
		if err != nil {
			return "", fmt.Errorf("agent %s completion failed: %w", a.name, err)
		}
		a.observe(ctx, resp)

		if !resp.HasToolUse() {
			a.logger.InfoWithDuration("", fmt.Sprintf("Agent %s completed", a.name), float64(time.Since(start).Milliseconds()), map[string]interface{}{
				"iterations": iteration + 1,
				"tokens":     resp.Usage.TotalTokens,
			})
			return resp.Text(), nil
		}

		messages = append(messages, llm.AssistantMessage(resp.Content))
		messages = append(messages, a.executeTools(ctx, resp.ToolUses()))
	}

	return "", fmt.Errorf("agent %s exceeded %d iterations without a final answer", a.name, a.maxIterations)
}

// observe reports a completed model invocation to the configured observer
func (a *Agent) observe(ctx context.Context, resp *llm.CompletionResponse) {
	if a.observer == nil {
		return
	}
	model := resp.Model
	if model == "" {
		model = a.model
	}
	a.observer(ctx, a.name, model, resp.Usage, resp.Latency)
}

// executeTools runs each requested tool and packs the results into a
// single user message of tool_result blocks.
func (a *Agent) executeTools(ctx context.Context, uses []llm.ContentBlock) llm.Message {
	results := make([]llm.ContentBlock, 0, len(uses))

	for _, use := range uses {
		tool, ok := a.toolIndex[use.Name]
		if !ok {
			log.Printf("⚠️ Agent %s: model requested unknown tool %q", a.name, use.Name)
			results = append(results, llm.ContentBlock{
				Type:      llm.ContentTypeToolResult,
				ToolUseID: use.ID,
				Content:   fmt.Sprintf("unknown tool: %s", use.Name),
				IsError:   true,
			})
			continue
		}

		output, err := tool.Call(ctx, use.Input)
		if err != nil {
			a.logger.Error("", fmt.Sprintf("Tool %s failed", use.Name), map[string]interface{}{
				"agent": a.name,
				"error": err.Error(),
			})
			results = append(results, llm.ContentBlock{
				Type:      llm.ContentTypeToolResult,
				ToolUseID: use.ID,
				Content:   fmt.Sprintf("tool error: %v", err),
				IsError:   true,
			})
			continue
		}

		results = append(results, llm.ContentBlock{
			Type:      llm.ContentTypeToolResult,
			ToolUseID: use.ID,
			Content:   output,
		})
	}

	return llm.ToolResultMessage(results)
}

// Stream executes the agent loop, forwarding text deltas and tool_use
// notifications to emit as they arrive. The final aggregated answer is
// returned as well.
func (a *Agent) Stream(ctx context.Context, prompt string, emit EventHandler) (string, error) {
	messages := []llm.Message{llm.UserMessage(prompt)}

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		handler := func(chunk llm.StreamChunk) error {
			switch chunk.Type {
			case llm.ChunkTypeContent:
				return emit(Event{Type: EventTypeData, Data: chunk.Content})
			case llm.ChunkTypeToolUse:
				return emit(Event{Type: EventTypeToolUse, Tool: chunk.ToolName})
			}
			return nil
		}

		resp, err := a.provider.CompleteStream(ctx, a.completionRequest(messages), handler)
		if err != nil {
			return "", fmt.Errorf("agent %s streaming failed: %w", a.name, err)
		}
		a.observe(ctx, resp)

		if !resp.HasToolUse() {
			return resp.Text(), nil
		}

		messages = append(messages, llm.AssistantMessage(resp.Content))
		messages = append(messages, a.executeTools(ctx, resp.ToolUses()))
	}

	return "", fmt.Errorf("agent %s exceeded %d iterations without a final answer", a.name, a.maxIterations)
}

// StreamWithCallback runs Stream in a goroutine, delivering events on the
// returned channel. The channel always ends with a complete or error
// sentinel event and is then closed.
func (a *Agent) StreamWithCallback(ctx context.Context, prompt string) <-chan Event {
	events := make(chan Event, 64)

	go func() {
		defer close(events)

		send := func(ev Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		_, err := a.Stream(ctx, prompt, send)
		if err != nil {
			// Best effort: the consumer may already be gone
			select {
			case events <- Event{Type: EventTypeError, Message: err.Error()}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case events <- Event{Type: EventTypeComplete}:
		case <-ctx.Done():
		}
	}()

	return events
}
