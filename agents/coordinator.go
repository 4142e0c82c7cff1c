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
	"fmt"

	"tcg-agent/platform/connectors/gumgum"
	"tcg-agent/platform/connectors/perplexity"
	"tcg-agent/platform/connectors/shopify"
	"tcg-agent/platform/llm"
)

// DeckService fetches competitive tournament decks.
type DeckService interface {
	CompetitiveDecks(ctx context.Context, userInput string) (*gumgum.DeckResult, error)
}

// Researcher answers card research queries and exposes itself as an
// agent tool.
type Researcher interface {
	Research(ctx context.Context, query string) (string, error)
	Counter() *perplexity.CallCounter
	Tool() Tool
}

// Storefront exposes the shop operations the coordinator can drive.
type Storefront interface {
	SearchProducts(ctx context.Context, query string, limit int) (*shopify.SearchResult, error)
	CreateCart(ctx context.Context, items []shopify.CartItem) (*shopify.Cart, error)
	GetCart(ctx context.Context, cartID string) (*shopify.Cart, error)
	UpdateCart(ctx context.Context, cartID string, items []shopify.CartItem) (*shopify.Cart, error)
}

// coordinatorSystemPrompt routes user requests across decks, research,
// and the store.
const coordinatorSystemPrompt = `You are the coordinator for a One Piece Trading Card Game assistant. You help users with competitive decks, card research, and shopping in the store.

Route each request to the right tool:
- get_competitive_decks: the user wants a tournament-winning or competitive deck.
- card_research_agent: the user wants details about a specific card.
- shopify_search: the user wants to find products in the store.
- shopify_cart: the user wants to create a cart, view a cart, or add items to one.
- manage_perplexity_api_counter: an operator asks about or resets the research API usage counter.

When you have everything you need, call ready_to_summarize and then write the final answer for the user. Only text produced after calling ready_to_summarize is shown to the user, so the answer must be complete on its own.

Present deck lists clearly with card names and quantities. Include prices and availability when presenting products. If a tool fails, tell the user what went wrong and suggest what to try instead.`

var competitiveDecksSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "The user's deck request, e.g. a leader, set, or region"
		}
	},
	"required": ["query"]
}`)

var shopifySearchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "Product search terms"
		},
		"limit": {
			"type": "integer",
			"description": "Maximum number of products to return (default 10)"
		}
	},
	"required": ["query"]
}`)

var shopifyCartSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"action": {
			"type": "string",
			"enum": ["create", "get", "add"],
			"description": "Cart operation to perform"
		},
		"cart_id": {
			"type": "string",
			"description": "Cart ID (required for get and add)"
		},
		"items": {
			"type": "array",
			"description": "Line items for create and add",
			"items": {
				"type": "object",
				"properties": {
					"merchandise_id": {"type": "string"},
					"quantity": {"type": "integer"}
				},
				"required": ["merchandise_id", "quantity"]
			}
		}
	},
	"required": ["action"]
}`)

var counterSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"action": {
			"type": "string",
			"enum": ["status", "reset"],
			"description": "Counter operation to perform"
		}
	},
	"required": ["action"]
}`)

// marshalResult renders a tool result as JSON for the model.
func marshalResult(v interface{}) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(out), nil
}

// NewCoordinatorAgent wires the coordinator with its tool set. Nil
// services are allowed; their tools report unavailability to the model.
func NewCoordinatorAgent(provider llm.StreamingProvider, decks DeckService, researcher Researcher, store Storefront, opts Options) *Agent {
	deckTool := NewFuncTool(
		"get_competitive_decks",
		"Fetch a competitive One Piece TCG tournament deck matching the user's request.",
		competitiveDecksSchema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			if decks == nil {
				return "", fmt.Errorf("deck service is not configured")
			}
			var args struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid deck request input: %w", err)
			}
			result, err := decks.CompetitiveDecks(ctx, args.Query)
			if err != nil {
				return "", err
			}
			return marshalResult(result)
		},
	)

	var researchTool Tool = NewFuncTool(
		"card_research_agent",
		"Research a One Piece TCG card by name, ID, or description. Returns card details with citations.",
		cardResearchSchema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			return "", fmt.Errorf("card research is not configured")
		},
	)
	if researcher != nil {
		researchTool = researcher.Tool()
	}

	searchTool := NewFuncTool(
		"shopify_search",
		"Search the store catalog for products. Returns titles, prices, and availability.",
		shopifySearchSchema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			if store == nil {
				return "", fmt.Errorf("storefront is not configured")
			}
			var args struct {
				Query string `json:"query"`
				Limit int    `json:"limit"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid search input: %w", err)
			}
			result, err := store.SearchProducts(ctx, args.Query, args.Limit)
			if err != nil {
				return "", err
			}
			return marshalResult(result)
		},
	)

	cartTool := NewFuncTool(
		"shopify_cart",
		"Create a cart, fetch a cart by ID, or add items to an existing cart.",
		shopifyCartSchema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			if store == nil {
				return "", fmt.Errorf("storefront is not configured")
			}
			var args struct {
				Action string             `json:"action"`
				CartID string             `json:"cart_id"`
				Items  []shopify.CartItem `json:"items"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid cart input: %w", err)
			}

			var (
				cart *shopify.Cart
				err  error
			)
			switch args.Action {
			case "create":
				cart, err = store.CreateCart(ctx, args.Items)
			case "get":
				if args.CartID == "" {
					return "", fmt.Errorf("cart_id is required for get")
				}
				cart, err = store.GetCart(ctx, args.CartID)
			case "add":
				if args.CartID == "" {
					return "", fmt.Errorf("cart_id is required for add")
				}
				cart, err = store.UpdateCart(ctx, args.CartID, args.Items)
			default:
				return "", fmt.Errorf("unknown cart action %q", args.Action)
			}
			if err != nil {
				return "", err
			}
			return marshalResult(cart)
		},
	)

	counterTool := NewFuncTool(
		"manage_perplexity_api_counter",
		"Report or reset the card research API usage counter.",
		counterSchema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			if researcher == nil {
				return "", fmt.Errorf("card research is not configured")
			}
			var args struct {
				Action string `json:"action"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid counter input: %w", err)
			}

			counter := researcher.Counter()
			switch args.Action {
			case "status":
				return marshalResult(counter.Snapshot())
			case "reset":
				counter.Reset()
				return marshalResult(counter.Snapshot())
			default:
				return "", fmt.Errorf("unknown counter action %q", args.Action)
			}
		},
	)

	tools := []Tool{
		deckTool,
		researchTool,
		searchTool,
		cartTool,
		counterTool,
		NewReadyToSummarizeTool(),
	}

	return New("coordinator", coordinatorSystemPrompt, provider, tools, opts)
}
