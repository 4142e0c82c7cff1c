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

package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tcg-agent/platform/agents"
)

// streamChunkSize is the fixed chunk width for re-emitted answers
const streamChunkSize = 50

// streamPlainSummary streams an agent run as plain text. Text before the
// agent calls ready_to_summarize is working narration and is suppressed;
// only the final summary reaches the client.
func (s *Server) streamPlainSummary(w http.ResponseWriter, r *http.Request, requestID string, agent AgentRunner, prompt string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendError(w, requestID, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	summarizing := false
	wrote := false

	_, err := agent.Stream(r.Context(), prompt, func(ev agents.Event) error {
		switch ev.Type {
		case agents.EventTypeToolUse:
			if ev.Tool == agents.ToolReadyToSummarize {
				summarizing = true
			}
		case agents.EventTypeData:
			if !summarizing || ev.Data == "" {
				return nil
			}
			if _, err := fmt.Fprint(w, ev.Data); err != nil {
				return err
			}
			promStreamChunks.WithLabelValues(r.URL.Path).Inc()
			flusher.Flush()
			wrote = true
		}
		return nil
	})

	if err != nil {
		// Headers are already out; report the failure in-band
		s.log.ErrorWithCode(requestID, "Streaming failed", http.StatusOK, err, nil)
		if wrote {
			fmt.Fprintf(w, "\n\nError: %v", err)
		} else {
			fmt.Fprintf(w, "Error: %v", err)
		}
		flusher.Flush()
	}
}

// streamChunkedText writes text in fixed-size chunks with a flush after
// each, giving whole answers a streaming shape.
func (s *Server) streamChunkedText(w http.ResponseWriter, r *http.Request, text string) {
	flusher, _ := w.(http.Flusher)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for _, chunk := range chunkString(text, streamChunkSize) {
		if _, err := fmt.Fprint(w, chunk); err != nil {
			return
		}
		promStreamChunks.WithLabelValues(r.URL.Path).Inc()
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// chunkString splits s into size-rune chunks, preserving multi-byte
// characters.
func chunkString(s string, size int) []string {
	if size <= 0 || s == "" {
		return nil
	}

	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// streamJSONEvents streams coordinator events as NDJSON, one event per
// line, ending with a complete event.
func (s *Server) streamJSONEvents(w http.ResponseWriter, r *http.Request, requestID, prompt string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendError(w, requestID, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)

	_, err := s.coordinator.Stream(r.Context(), prompt, func(ev agents.Event) error {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		promStreamChunks.WithLabelValues(r.URL.Path).Inc()
		flusher.Flush()
		return nil
	})

	if err != nil {
		s.log.ErrorWithCode(requestID, "Coordinator streaming failed", http.StatusOK, err, nil)
		_ = enc.Encode(agents.Event{Type: agents.EventTypeError, Message: err.Error()})
		flusher.Flush()
		return
	}

	_ = enc.Encode(agents.Event{Type: agents.EventTypeComplete})
	flusher.Flush()
}

// streamCallbackEvents drains the agent's event channel to the client.
// The channel contract guarantees a trailing complete or error sentinel.
func (s *Server) streamCallbackEvents(w http.ResponseWriter, r *http.Request, prompt string) {
	flusher, _ := w.(http.Flusher)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)

	for ev := range s.coordinator.StreamWithCallback(r.Context(), prompt) {
		var line interface{}
		switch ev.Type {
		case agents.EventTypeComplete:
			line = map[string]interface{}{"complete": true}
		case agents.EventTypeError:
			line = map[string]interface{}{"error": true, "message": ev.Message}
		default:
			line = ev
		}

		if err := enc.Encode(line); err != nil {
			return
		}
		promStreamChunks.WithLabelValues(r.URL.Path).Inc()
		if flusher != nil {
			flusher.Flush()
		}
	}
}
