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

package agents

// Event types emitted during agent streaming
const (
	// EventTypeData carries a text fragment of the response
	EventTypeData = "data"

	// EventTypeToolUse signals that the agent invoked a tool
	EventTypeToolUse = "tool_use"

	// EventTypeComplete signals that the stream finished successfully
	EventTypeComplete = "complete"

	// EventTypeError signals that the stream failed
	EventTypeError = "error"
)

// Event is a single streaming event from an agent run
type Event struct {
	Type    string `json:"type"`
	Data    string `json:"data,omitempty"`
	Tool    string `json:"tool,omitempty"`
	Message string `json:"message,omitempty"`
}

// EventHandler receives streaming events in order. Returning an error
// aborts the stream.
type EventHandler func(Event) error
