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

package usage

import (
	"database/sql"
	"log"
)

// Recorder handles recording usage events to the database. A nil
// Recorder (or one with no database) silently discards events so the
// gateway can run without Postgres.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a usage recorder with a database connection
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// APICallEvent represents a gateway API call to be recorded
type APICallEvent struct {
	RequestID      string
	Endpoint       string
	HTTPMethod     string
	HTTPStatusCode int
	LatencyMs      int64
}

// RecordAPICall records an API call event to the database.
// Errors are logged but don't block responses.
func (r *Recorder) RecordAPICall(event APICallEvent) error {
	if r == nil || r.db == nil {
		return nil
	}

	_, err := r.db.Exec(`
		INSERT INTO usage_events (
			request_id, event_type, endpoint, http_method,
			http_status_code, latency_ms
		) VALUES ($1, 'api_call', $2, $3, $4, $5)
	`, nullString(event.RequestID), event.Endpoint, event.HTTPMethod,
		event.HTTPStatusCode, event.LatencyMs)

	if err != nil {
		log.Printf("[USAGE] Failed to record API call: %v", err)
	}

	return err
}

// LLMRequestEvent represents a model invocation to be recorded
type LLMRequestEvent struct {
	RequestID        string
	Agent            string
	LLMProvider      string // "bedrock"
	LLMModel         string // Bedrock model ID
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	LatencyMs        int64
}

// RecordLLMRequest records a model invocation with token usage and cost.
// Errors are logged but don't block responses.
func (r *Recorder) RecordLLMRequest(event LLMRequestEvent) error {
	if r == nil || r.db == nil {
		return nil
	}

	costCents := CalculateCost(event.LLMProvider, event.LLMModel,
		event.PromptTokens, event.CompletionTokens)

	_, err := r.db.Exec(`
		INSERT INTO usage_events (
			request_id, event_type, agent, llm_provider, llm_model,
			prompt_tokens, completion_tokens, total_tokens,
			estimated_cost_cents, latency_ms
		) VALUES ($1, 'llm_request', $2, $3, $4, $5, $6, $7, $8, $9)
	`, nullString(event.RequestID), event.Agent, event.LLMProvider,
		event.LLMModel, event.PromptTokens, event.CompletionTokens,
		event.TotalTokens, costCents, event.LatencyMs)

	if err != nil {
		log.Printf("[USAGE] Failed to record LLM request: %v", err)
	}

	return err
}

// nullString converts an empty string to NULL for database insertion
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
