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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcg-agent/platform/connectors/gumgum"
	"tcg-agent/platform/connectors/perplexity"
	"tcg-agent/platform/connectors/shopify"
	"tcg-agent/platform/llm"
)

type fakeDeckService struct {
	lastQuery string
	result    *gumgum.DeckResult
	err       error
}

func (f *fakeDeckService) CompetitiveDecks(ctx context.Context, userInput string) (*gumgum.DeckResult, error) {
	f.lastQuery = userInput
	return f.result, f.err
}

type fakeResearcher struct {
	answer    string
	lastQuery string
	counter   *perplexity.CallCounter
}

func (f *fakeResearcher) Research(ctx context.Context, query string) (string, error) {
	f.lastQuery = query
	return f.answer, nil
}

func (f *fakeResearcher) Counter() *perplexity.CallCounter {
	return f.counter
}

func (f *fakeResearcher) Tool() Tool {
	return NewFuncTool("card_research_agent", "card research", cardResearchSchema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var args struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", err
			}
			return f.Research(ctx, args.Query)
		})
}

type fakeStorefront struct {
	searched string
	carts    map[string]*shopify.Cart
}

func (f *fakeStorefront) SearchProducts(ctx context.Context, query string, limit int) (*shopify.SearchResult, error) {
	f.searched = query
	return &shopify.SearchResult{
		Products: []shopify.Product{
			{Title: "OP-01 Booster Box", Price: "89.99", Currency: "USD", Available: true},
		},
		TotalResults: 1,
		Source:       "shopify",
	}, nil
}

func (f *fakeStorefront) CreateCart(ctx context.Context, items []shopify.CartItem) (*shopify.Cart, error) {
	cart := &shopify.Cart{ID: "gid://shopify/Cart/1", CheckoutURL: "https://shop.test/checkout"}
	for i, item := range items {
		cart.Lines = append(cart.Lines, shopify.CartLine{
			ID:            fmt.Sprintf("line-%d", i),
			MerchandiseID: item.MerchandiseID,
			Quantity:      item.Quantity,
		})
	}
	if f.carts == nil {
		f.carts = make(map[string]*shopify.Cart)
	}
	f.carts[cart.ID] = cart
	return cart, nil
}

func (f *fakeStorefront) GetCart(ctx context.Context, cartID string) (*shopify.Cart, error) {
	cart, ok := f.carts[cartID]
	if !ok {
		return nil, fmt.Errorf("cart %s not found", cartID)
	}
	return cart, nil
}

func (f *fakeStorefront) UpdateCart(ctx context.Context, cartID string, items []shopify.CartItem) (*shopify.Cart, error) {
	cart, err := f.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		cart.Lines = append(cart.Lines, shopify.CartLine{
			ID:            fmt.Sprintf("line-new-%d", i),
			MerchandiseID: item.MerchandiseID,
			Quantity:      item.Quantity,
		})
	}
	return cart, nil
}

func TestCoordinatorDeckLookup(t *testing.T) {
	decks := &fakeDeckService{
		result: &gumgum.DeckResult{
			Success: true,
			Source:  "gumgum.gg",
			Deck: &gumgum.Deck{
				Name:   "Red Shanks Aggro",
				Leader: "Shanks",
				Decklist: []gumgum.DeckCard{
					{CardID: "OP01-001", Name: "Shanks", Quantity: 1, Type: "Leader"},
				},
				TotalCards: 51,
			},
		},
	}

	provider := &fakeProvider{responses: []*llm.CompletionResponse{
		toolUseResponse("t1", "get_competitive_decks", `{"query":"winning Shanks deck"}`),
		textResponse("Here is the Red Shanks Aggro deck."),
	}}

	agent := NewCoordinatorAgent(provider, decks, nil, nil, Options{})

	answer, err := agent.Run(context.Background(), "Show me a winning Shanks deck")
	require.NoError(t, err)
	assert.Equal(t, "Here is the Red Shanks Aggro deck.", answer)
	assert.Equal(t, "winning Shanks deck", decks.lastQuery)

	// The deck result reaches the model as JSON
	result := provider.requests[1].Messages[2].Content[0]
	assert.Contains(t, result.Content, "Red Shanks Aggro")
	assert.Contains(t, result.Content, "OP01-001")
}

func TestCoordinatorShopifySearch(t *testing.T) {
	store := &fakeStorefront{}
	provider := &fakeProvider{responses: []*llm.CompletionResponse{
		toolUseResponse("t1", "shopify_search", `{"query":"booster box","limit":5}`),
		textResponse("Found one product."),
	}}

	agent := NewCoordinatorAgent(provider, nil, nil, store, Options{})

	answer, err := agent.Run(context.Background(), "find booster boxes")
	require.NoError(t, err)
	assert.Equal(t, "Found one product.", answer)
	assert.Equal(t, "booster box", store.searched)

	result := provider.requests[1].Messages[2].Content[0]
	assert.Contains(t, result.Content, "OP-01 Booster Box")
}

func TestCoordinatorCartLifecycle(t *testing.T) {
	store := &fakeStorefront{}
	provider := &fakeProvider{responses: []*llm.CompletionResponse{
		toolUseResponse("t1", "shopify_cart", `{"action":"create","items":[{"merchandise_id":"gid://shopify/ProductVariant/9","quantity":2}]}`),
		toolUseResponse("t2", "shopify_cart", `{"action":"add","cart_id":"gid://shopify/Cart/1","items":[{"merchandise_id":"gid://shopify/ProductVariant/10","quantity":1}]}`),
		textResponse("Cart updated."),
	}}

	agent := NewCoordinatorAgent(provider, nil, nil, store, Options{})

	answer, err := agent.Run(context.Background(), "add to cart")
	require.NoError(t, err)
	assert.Equal(t, "Cart updated.", answer)

	cart := store.carts["gid://shopify/Cart/1"]
	require.NotNil(t, cart)
	assert.Len(t, cart.Lines, 2)
}

func TestCoordinatorCartUnknownAction(t *testing.T) {
	store := &fakeStorefront{}
	provider := &fakeProvider{responses: []*llm.CompletionResponse{
		toolUseResponse("t1", "shopify_cart", `{"action":"destroy"}`),
		textResponse("Sorry, I can't do that."),
	}}

	agent := NewCoordinatorAgent(provider, nil, nil, store, Options{})

	_, err := agent.Run(context.Background(), "destroy the cart")
	require.NoError(t, err)

	result := provider.requests[1].Messages[2].Content[0]
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "unknown cart action")
}

func TestCoordinatorCardResearch(t *testing.T) {
	researcher := &fakeResearcher{answer: "OP01-001 Shanks, Leader, Red, power 5000."}
	provider := &fakeProvider{responses: []*llm.CompletionResponse{
		toolUseResponse("t1", "card_research_agent", `{"query":"Shanks OP01-001"}`),
		textResponse("It's the Shanks leader card."),
	}}

	agent := NewCoordinatorAgent(provider, nil, researcher, nil, Options{})

	answer, err := agent.Run(context.Background(), "what card is OP01-001?")
	require.NoError(t, err)
	assert.Equal(t, "It's the Shanks leader card.", answer)

	// The coordinator routes through the researcher's own tool
	assert.Equal(t, "Shanks OP01-001", researcher.lastQuery)
	result := provider.requests[1].Messages[2].Content[0]
	assert.Contains(t, result.Content, "OP01-001 Shanks")
}

func TestCoordinatorCardResearchUnconfigured(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.CompletionResponse{
		toolUseResponse("t1", "card_research_agent", `{"query":"x"}`),
		textResponse("Research is unavailable."),
	}}

	agent := NewCoordinatorAgent(provider, nil, nil, nil, Options{})

	_, err := agent.Run(context.Background(), "card?")
	require.NoError(t, err)

	result := provider.requests[1].Messages[2].Content[0]
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "not configured")
}

func TestCoordinatorCounterManagement(t *testing.T) {
	researcher := &fakeResearcher{counter: perplexity.NewCallCounter(10, true)}
	researcher.counter.Increment()
	researcher.counter.Increment()

	provider := &fakeProvider{responses: []*llm.CompletionResponse{
		toolUseResponse("t1", "manage_perplexity_api_counter", `{"action":"status"}`),
		toolUseResponse("t2", "manage_perplexity_api_counter", `{"action":"reset"}`),
		textResponse("Counter reset."),
	}}

	agent := NewCoordinatorAgent(provider, nil, researcher, nil, Options{})

	answer, err := agent.Run(context.Background(), "reset the research counter")
	require.NoError(t, err)
	assert.Equal(t, "Counter reset.", answer)

	// Status saw count=2, and the reset took effect
	status := provider.requests[1].Messages[2].Content[0]
	assert.Contains(t, status.Content, `"count":2`)
	assert.Equal(t, 0, researcher.Counter().Snapshot().Count)
}

func TestCoordinatorUnconfiguredServices(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.CompletionResponse{
		toolUseResponse("t1", "get_competitive_decks", `{"query":"x"}`),
		textResponse("Deck lookup is unavailable."),
	}}

	agent := NewCoordinatorAgent(provider, nil, nil, nil, Options{})

	_, err := agent.Run(context.Background(), "deck please")
	require.NoError(t, err)

	result := provider.requests[1].Messages[2].Content[0]
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "not configured")
}

func TestWeatherPrompt(t *testing.T) {
	assert.Equal(t, "What is the weather like in Denver today?", WeatherPrompt("Denver"))
}

func TestReadyToSummarizeTool(t *testing.T) {
	tool := NewReadyToSummarizeTool()
	assert.Equal(t, ToolReadyToSummarize, tool.Name())

	out, err := tool.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Ok - continue providing the summary!", out)
}
