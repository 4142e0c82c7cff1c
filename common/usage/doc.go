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

/*
Package usage provides usage metering for the gateway.

# Overview

The usage package records usage events to PostgreSQL for cost tracking
and analytics. It supports two event types:

  - API calls: HTTP request metrics per gateway endpoint
  - LLM requests: Token usage and estimated cost per model invocation

# Usage Recording

Create a recorder with a database connection:

	recorder := usage.NewRecorder(db)

Record API calls:

	err := recorder.RecordAPICall(usage.APICallEvent{
	    RequestID:      "req-123",
	    Endpoint:       "/weather",
	    HTTPMethod:     "POST",
	    HTTPStatusCode: 200,
	    LatencyMs:      45,
	})

Record model invocations with automatic cost calculation:

	err := recorder.RecordLLMRequest(usage.LLMRequestEvent{
	    RequestID:        "req-123",
	    Agent:            "coordinator",
	    LLMProvider:      "bedrock",
	    LLMModel:         "anthropic.claude-3-5-sonnet-20241022-v2:0",
	    PromptTokens:     150,
	    CompletionTokens: 200,
	    TotalTokens:      350,
	    LatencyMs:        1200,
	})

A nil database makes every method a no-op, so the gateway runs without
Postgres in development.

# Thread Safety

Recorder is safe for concurrent use. Recording methods can be called
from multiple goroutines simultaneously.

Record usage asynchronously to avoid blocking request processing:

	go func() {
	    if err := recorder.RecordAPICall(event); err != nil {
	        log.Printf("Failed to record usage: %v", err)
	    }
	}()
*/
package usage
