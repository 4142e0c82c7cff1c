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

package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"strings"
	"testing"
	"time"
)

// captureEntry runs fn while capturing log output and returns the parsed entry
func captureEntry(t *testing.T, fn func()) LogEntry {
	t.Helper()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	fn()

	output := buf.String()
	jsonStart := strings.Index(output, "{")
	if jsonStart == -1 {
		t.Fatalf("No JSON found in log output: %s", output)
	}
	jsonStr := strings.TrimSpace(output[jsonStart:])

	var entry LogEntry
	if err := json.Unmarshal([]byte(jsonStr), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v\nOutput: %s", err, output)
	}
	return entry
}

// TestNew tests logger initialization
func TestNew(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	logger := New("gateway")

	if logger.Component != "gateway" {
		t.Errorf("Expected component 'gateway', got '%s'", logger.Component)
	}
	if logger.Environment != "production" {
		t.Errorf("Expected environment 'production', got '%s'", logger.Environment)
	}
	if logger.Container == "" {
		t.Error("Expected container name to be set")
	}
}

// TestNewDefaultsEnvironment verifies the development default
func TestNewDefaultsEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")

	logger := New("gateway")
	if logger.Environment != "development" {
		t.Errorf("Expected environment 'development', got '%s'", logger.Environment)
	}
}

// TestLogLevels verifies each level helper produces a well-formed entry
func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		logFunc   func(*Logger, string, string, map[string]interface{})
		level     LogLevel
		message   string
		requestID string
		fields    map[string]interface{}
	}{
		{
			name:      "Info log",
			logFunc:   (*Logger).Info,
			level:     INFO,
			message:   "Processing request",
			requestID: "req-123",
			fields:    map[string]interface{}{"endpoint": "/weather"},
		},
		{
			name:      "Warn log",
			logFunc:   (*Logger).Warn,
			level:     WARN,
			message:   "Rate limit approaching",
			requestID: "req-456",
			fields:    nil,
		},
		{
			name:      "Error log",
			logFunc:   (*Logger).Error,
			level:     ERROR,
			message:   "Upstream call failed",
			requestID: "req-789",
			fields:    map[string]interface{}{"error": "timeout"},
		},
		{
			name:      "Debug log",
			logFunc:   (*Logger).Debug,
			level:     DEBUG,
			message:   "Tool invocation",
			requestID: "req-abc",
			fields:    map[string]interface{}{"tool": "shopify_search"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := captureEntry(t, func() {
				logger := New("test-component")
				tt.logFunc(logger, tt.requestID, tt.message, tt.fields)
			})

			if entry.Level != tt.level {
				t.Errorf("Expected level %s, got %s", tt.level, entry.Level)
			}
			if entry.Message != tt.message {
				t.Errorf("Expected message '%s', got '%s'", tt.message, entry.Message)
			}
			if entry.RequestID != tt.requestID {
				t.Errorf("Expected request ID '%s', got '%s'", tt.requestID, entry.RequestID)
			}
			if entry.Component != "test-component" {
				t.Errorf("Expected component 'test-component', got '%s'", entry.Component)
			}
			if _, err := time.Parse(time.RFC3339Nano, entry.Timestamp); err != nil {
				t.Errorf("Invalid timestamp format: %s", entry.Timestamp)
			}

			for key, expectedValue := range tt.fields {
				if actualValue, ok := entry.Fields[key]; !ok {
					t.Errorf("Expected field '%s' not found", key)
				} else if actualValue != expectedValue {
					t.Errorf("Field '%s': expected %v, got %v", key, expectedValue, actualValue)
				}
			}
		})
	}
}

// TestInfoWithDuration tests the InfoWithDuration helper method
func TestInfoWithDuration(t *testing.T) {
	entry := captureEntry(t, func() {
		logger := New("test-component")
		logger.InfoWithDuration("req-456", "Request completed", 123.45, map[string]interface{}{
			"endpoint": "/coordinator",
		})
	})

	durationMS, ok := entry.Fields["duration_ms"]
	if !ok {
		t.Error("Expected duration_ms field not found")
	}
	if durationMS != 123.45 {
		t.Errorf("Expected duration_ms 123.45, got %v", durationMS)
	}

	endpoint, ok := entry.Fields["endpoint"]
	if !ok {
		t.Error("Expected endpoint field not found")
	}
	if endpoint != "/coordinator" {
		t.Errorf("Expected endpoint '/coordinator', got %v", endpoint)
	}

	if entry.Level != INFO {
		t.Errorf("Expected INFO level, got %s", entry.Level)
	}
}

// TestErrorWithCode verifies status code and error fields are attached
func TestErrorWithCode(t *testing.T) {
	entry := captureEntry(t, func() {
		logger := New("test-component")
		logger.ErrorWithCode("req-9", "Agent call failed", 500, os.ErrDeadlineExceeded, nil)
	})

	if entry.Level != ERROR {
		t.Errorf("Expected ERROR level, got %s", entry.Level)
	}

	statusCode, ok := entry.Fields["status_code"]
	if !ok {
		t.Fatal("Expected status_code field not found")
	}
	// JSON numbers unmarshal as float64
	if statusCode != float64(500) {
		t.Errorf("Expected status_code 500, got %v", statusCode)
	}

	if _, ok := entry.Fields["error"]; !ok {
		t.Error("Expected error field not found")
	}
}
