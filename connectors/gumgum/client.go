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

// Package gumgum provides a client for the GumGum.gg competitive deck
// endpoint. The endpoint URL and shared secret are operator-provisioned
// and come from config, not hardcoded here.
package gumgum

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

// DeckCard is a single card entry in a decklist
type DeckCard struct {
	CardID   string `json:"card_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Type     string `json:"type,omitempty"`
}

// Deck is a competitive tournament deck
type Deck struct {
	Name       string     `json:"name"`
	Set        string     `json:"set,omitempty"`
	Region     string     `json:"region,omitempty"`
	Leader     string     `json:"leader,omitempty"`
	Author     string     `json:"author,omitempty"`
	Tournament string     `json:"tournament,omitempty"`
	Event      string     `json:"event,omitempty"`
	Decklist   []DeckCard `json:"decklist,omitempty"`
	TotalCards int        `json:"total_cards,omitempty"`
}

// DeckResult is the endpoint's response envelope
type DeckResult struct {
	Success  bool            `json:"success"`
	Source   string          `json:"source,omitempty"`
	Message  string          `json:"message,omitempty"`
	Deck     *Deck           `json:"deck,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Client calls the GumGum.gg competitive deck endpoint
type Client struct {
	endpoint   string
	secret     string
	httpClient *http.Client
}

// NewClient creates a new GumGum client
func NewClient(endpoint, secret string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("gumgum endpoint is required")
	}

	return &Client{
		endpoint:   endpoint,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// CompetitiveDecks sends the user's deck request to the endpoint and
// returns the parsed result.
func (c *Client) CompetitiveDecks(ctx context.Context, userInput string) (*DeckResult, error) {
	reqBody, err := json.Marshal(map[string]string{"query": userInput})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Api-Secret", c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gumgum request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gumgum request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result DeckResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
