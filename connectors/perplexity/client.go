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

// Package perplexity provides a client for the Perplexity chat completions
// API, used for web-grounded card research. Calls are metered by a
// configurable counter so test runs cannot burn through the API quota.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Perplexity API endpoint
	DefaultBaseURL = "https://api.perplexity.ai"

	// DefaultModel is the web-search grounded model used for research
	DefaultModel = "sonar-pro"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 60 * time.Second
)

// ErrCallLimitReached is returned when the API call counter has hit its
// configured limit. Callers surface this to the model rather than failing
// the whole request.
var ErrCallLimitReached = errors.New("perplexity API call limit reached")

// HTTPClient is an interface for HTTP client operations (enables testing)
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config contains configuration for the Perplexity client
type Config struct {
	APIKey       string        // Required: Perplexity API key
	BaseURL      string        // Optional: API base URL
	Model        string        // Optional: model (default: sonar-pro)
	Timeout      time.Duration // Optional: HTTP timeout (default: 60s)
	CallLimit    int           // Optional: max API calls (default: 10)
	LimitEnabled bool          // Whether the call limit is enforced
	HTTPClient   HTTPClient    // Optional: custom HTTP client (tests)
}

// Client calls the Perplexity chat completions API
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  HTTPClient
	counter *CallCounter
}

// NewClient creates a new Perplexity API client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("perplexity API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CallLimit <= 0 {
		cfg.CallLimit = 10
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  client,
		counter: NewCallCounter(cfg.CallLimit, cfg.LimitEnabled),
	}, nil
}

// Counter returns the client's API call counter
func (c *Client) Counter() *CallCounter {
	return c.counter
}

// Research sends the query to the chat completions endpoint and returns
// the answer with citations appended as a numbered list. Returns
// ErrCallLimitReached without calling the API when the counter is
// exhausted.
func (c *Client) Research(ctx context.Context, query string) (string, error) {
	if !c.counter.Allow() {
		snap := c.counter.Snapshot()
		log.Printf("[Perplexity] API call limit reached (%d/%d), skipping call", snap.Count, snap.Limit)
		return "", ErrCallLimitReached
	}

	apiReq := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: query},
		},
	}

	reqBody, err := json.Marshal(apiReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("perplexity API error: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", parseAPIError(resp.StatusCode, body)
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("perplexity response has no choices")
	}

	c.counter.Increment()
	snap := c.counter.Snapshot()
	log.Printf("[Perplexity] Request successful, call count: %d/%d", snap.Count, snap.Limit)

	content := apiResp.Choices[0].Message.Content
	if len(apiResp.Citations) > 0 {
		var b strings.Builder
		b.WriteString(content)
		b.WriteString("\n\nCitations:\n")
		for i, citation := range apiResp.Citations {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, citation)
		}
		content = b.String()
	}

	return content, nil
}

// parseAPIError parses an API error response
func parseAPIError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return &APIError{StatusCode: statusCode, Message: string(body)}
	}

	return &APIError{
		StatusCode: statusCode,
		Type:       errResp.Error.Type,
		Message:    errResp.Error.Message,
	}
}

// APIError represents a Perplexity API error
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("perplexity API error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimitError returns true if this is a rate limit error
func (e *APIError) IsRateLimitError() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsAuthError returns true if this is an authentication error
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Internal API types

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations,omitempty"`
}
