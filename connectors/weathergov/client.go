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

// Package weathergov provides a client for the National Weather Service API
// (api.weather.gov). The weather agent drives the points -> forecast URL
// chain itself via the Get method.
package weathergov

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the National Weather Service API endpoint
	DefaultBaseURL = "https://api.weather.gov"

	// maxResponseBytes caps forecast payloads fed back to the model
	maxResponseBytes = 256 * 1024
)

// Client handles API calls to the National Weather Service
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a new NWS API client
func NewClient() *Client {
	return NewClientWithBaseURL(DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against an explicit endpoint
// (used in tests)
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// api.weather.gov requires a User-Agent identifying the caller
		userAgent:  "tcg-agent-platform (weather gateway)",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Get fetches the given NWS URL and returns the response body as a string.
// Only URLs on the client's API host are allowed; this is the backing call
// for the weather agent's http_request tool.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}

	if target.Host != base.Host {
		return "", fmt.Errorf("host %q not allowed: only %s may be queried", target.Host, base.Host)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/geo+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("NWS request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return string(body), nil
}
