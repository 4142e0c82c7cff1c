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

// Package shopify provides a Storefront GraphQL API client for product
// search and cart management against the store's public storefront.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// DefaultAPIVersion is the Storefront API version used when none is
// configured.
const DefaultAPIVersion = "2024-07"

// Config contains configuration for the Storefront client
type Config struct {
	StoreDomain string // Required: e.g. "my-store.myshopify.com"
	Token       string // Required: Storefront access token
	APIVersion  string // Optional: API version (default: 2024-07)
	Endpoint    string // Optional: full endpoint override (tests)
}

// Client calls the Shopify Storefront GraphQL API
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Storefront API client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		if cfg.StoreDomain == "" {
			return nil, fmt.Errorf("shopify store domain is required")
		}
		version := cfg.APIVersion
		if version == "" {
			version = DefaultAPIVersion
		}
		cfg.Endpoint = fmt.Sprintf("https://%s/api/%s/graphql.json", cfg.StoreDomain, version)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("shopify storefront token is required")
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// graphql executes a query and decodes the "data" object into out.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	reqBody, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storefront request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("storefront request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		return fmt.Errorf("storefront GraphQL error: %s", envelope.Errors[0].Message)
	}

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}

	return nil
}
