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

package bedrock

import (
	"encoding/json"
	"fmt"
	"strings"

	"tcg-agent/platform/llm"
)

// streamState accumulates the Anthropic streaming events carried in Bedrock
// response stream chunks into a final CompletionResponse. Events arrive as
// JSON payloads: message_start, content_block_start, content_block_delta,
// content_block_stop, message_delta, message_stop.
type streamState struct {
	model         string
	responseModel string
	content       []llm.ContentBlock
	current       *llm.ContentBlock
	inputJSON     strings.Builder
	usage         llm.UsageStats
	stopReason    string
}

func newStreamState(model string) *streamState {
	return &streamState{model: model}
}

// streamEvent is the wire shape of a single streaming event payload
type streamEvent struct {
	Type    string `json:"type"`
	Index   int    `json:"index,omitempty"`
	Message *struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage *struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage,omitempty"`
	} `json:"message,omitempty"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"content_block,omitempty"`
	Delta *struct {
		Type        string `json:"type,omitempty"`
		Text        string `json:"text,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

// apply processes one event payload, forwarding chunks to the handler.
func (s *streamState) apply(payload []byte, handler llm.StreamHandler) error {
	var event streamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// Skip malformed events
		return nil
	}

	switch event.Type {
	case "message_start":
		if event.Message != nil {
			s.responseModel = event.Message.Model
			if event.Message.Usage != nil {
				s.usage.PromptTokens = event.Message.Usage.InputTokens
			}
		}

	case "content_block_start":
		if event.ContentBlock == nil {
			return nil
		}
		s.inputJSON.Reset()
		switch event.ContentBlock.Type {
		case "text":
			s.current = &llm.ContentBlock{Type: llm.ContentTypeText, Text: event.ContentBlock.Text}
		case "tool_use":
			s.current = &llm.ContentBlock{
				Type: llm.ContentTypeToolUse,
				ID:   event.ContentBlock.ID,
				Name: event.ContentBlock.Name,
			}
			if handler != nil {
				if err := handler(llm.StreamChunk{
					Type:     llm.ChunkTypeToolUse,
					ToolName: event.ContentBlock.Name,
				}); err != nil {
					return fmt.Errorf("handler error: %w", err)
				}
			}
		}

	case "content_block_delta":
		if event.Delta == nil || s.current == nil {
			return nil
		}
		switch event.Delta.Type {
		case "text_delta":
			s.current.Text += event.Delta.Text
			if handler != nil {
				if err := handler(llm.StreamChunk{
					Type:    llm.ChunkTypeContent,
					Content: event.Delta.Text,
				}); err != nil {
					return fmt.Errorf("handler error: %w", err)
				}
			}
		case "input_json_delta":
			s.inputJSON.WriteString(event.Delta.PartialJSON)
		}

	case "content_block_stop":
		if s.current == nil {
			return nil
		}
		if s.current.Type == llm.ContentTypeToolUse {
			input := s.inputJSON.String()
			if input == "" {
				input = "{}"
			}
			s.current.Input = json.RawMessage(input)
		}
		s.content = append(s.content, *s.current)
		s.current = nil
		s.inputJSON.Reset()

	case "message_delta":
		if event.Delta != nil && event.Delta.StopReason != "" {
			s.stopReason = event.Delta.StopReason
		}
		if event.Usage != nil {
			s.usage.CompletionTokens = event.Usage.OutputTokens
		}

	case "message_stop":
		if handler != nil {
			if err := handler(llm.StreamChunk{Type: llm.ChunkTypeDone, Done: true}); err != nil {
				return fmt.Errorf("handler error: %w", err)
			}
		}
	}

	return nil
}

// finalize builds the aggregated response once the stream has ended.
func (s *streamState) finalize() *llm.CompletionResponse {
	// An unterminated block still counts toward the response
	if s.current != nil {
		s.content = append(s.content, *s.current)
		s.current = nil
	}

	model := s.responseModel
	if model == "" {
		model = s.model
	}

	s.usage.TotalTokens = s.usage.PromptTokens + s.usage.CompletionTokens

	return &llm.CompletionResponse{
		Content:    s.content,
		Model:      model,
		StopReason: s.stopReason,
		Usage:      s.usage,
	}
}
