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

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tcg-agent/platform/connectors/perplexity"
)

// cardQueryTemplate shapes raw card searches into a research question that
// yields structured card details.
const cardQueryTemplate = "Please identify this One Piece Trading Card Game card: %s. Include the card ID, name, type, color, cost, power, counter, effect text, set information, and rarity."

// CardResearcher answers card identification queries via Perplexity.
type CardResearcher struct {
	client *perplexity.Client
}

// NewCardResearcher creates a card researcher over the given client.
func NewCardResearcher(client *perplexity.Client) *CardResearcher {
	return &CardResearcher{client: client}
}

// Research identifies a card by free-text query. When the API call limit
// is exhausted the returned text explains the limit instead of failing.
func (r *CardResearcher) Research(ctx context.Context, query string) (string, error) {
	formatted := fmt.Sprintf(cardQueryTemplate, query)

	answer, err := r.client.Research(ctx, formatted)
	if errors.Is(err, perplexity.ErrCallLimitReached) {
		snap := r.client.Counter().Snapshot()
		return fmt.Sprintf("API call limit reached (%d/%d). The card research service is temporarily unavailable. Please try again later or contact support to increase the limit.", snap.Count, snap.Limit), nil
	}
	if err != nil {
		return "", fmt.Errorf("card research failed: %w", err)
	}

	return answer, nil
}

// Counter exposes the underlying API call counter.
func (r *CardResearcher) Counter() *perplexity.CallCounter {
	return r.client.Counter()
}

var cardResearchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "The card name, ID, or description to research"
		}
	},
	"required": ["query"]
}`)

// Tool wraps the researcher as an agent tool for the coordinator.
func (r *CardResearcher) Tool() Tool {
	return NewFuncTool(
		"card_research_agent",
		"Research a One Piece TCG card by name, ID, or description. Returns card details with citations.",
		cardResearchSchema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var args struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid card research input: %w", err)
			}
			if args.Query == "" {
				return "", fmt.Errorf("card research requires a query")
			}
			return r.Research(ctx, args.Query)
		},
	)
}
