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

package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// graphqlHandler asserts auth and dispatches on the query text
func graphqlHandler(t *testing.T, respond func(query string, variables map[string]interface{}) string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Shopify-Storefront-Access-Token"); got != "tok" {
			t.Errorf("token header = %q", got)
		}

		var body struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		fmt.Fprint(w, respond(body.Query, body.Variables))
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{Endpoint: server.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientEndpoint(t *testing.T) {
	client, err := NewClient(Config{StoreDomain: "my-store.myshopify.com", Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	want := "https://my-store.myshopify.com/api/2024-07/graphql.json"
	if client.endpoint != want {
		t.Errorf("endpoint = %q, want %q", client.endpoint, want)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{Token: "tok"}); err == nil {
		t.Error("expected error for missing domain")
	}
	if _, err := NewClient(Config{StoreDomain: "x.myshopify.com"}); err == nil {
		t.Error("expected error for missing token")
	}
}

func TestSearchProducts(t *testing.T) {
	client := newTestClient(t, graphqlHandler(t, func(query string, variables map[string]interface{}) string {
		if variables["query"] != "booster box" {
			t.Errorf("query variable = %v", variables["query"])
		}
		return `{"data":{"products":{"edges":[
			{"node":{
				"title":"OP-01 Booster Box",
				"onlineStoreUrl":"https://shop.test/products/op01",
				"availableForSale":true,
				"featuredImage":{"url":"https://cdn.test/op01.png"},
				"variants":{"edges":[{"node":{
					"id":"gid://shopify/ProductVariant/9",
					"availableForSale":true,
					"price":{"amount":"89.99","currencyCode":"USD"}
				}}]}
			}}
		]}}}`
	}))

	result, err := client.SearchProducts(context.Background(), "booster box", 10)
	if err != nil {
		t.Fatalf("SearchProducts() error = %v", err)
	}

	if result.Source != "shopify" {
		t.Errorf("source = %q", result.Source)
	}
	if result.TotalResults != 1 {
		t.Fatalf("total = %d", result.TotalResults)
	}

	p := result.Products[0]
	if p.Title != "OP-01 Booster Box" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Price != "89.99" || p.Currency != "USD" {
		t.Errorf("price = %s %s", p.Price, p.Currency)
	}
	if !p.Available {
		t.Error("expected available")
	}
	if p.VariantID != "gid://shopify/ProductVariant/9" {
		t.Errorf("variant = %q", p.VariantID)
	}
	if p.ImageURL != "https://cdn.test/op01.png" {
		t.Errorf("image = %q", p.ImageURL)
	}
}

func TestCreateCart(t *testing.T) {
	client := newTestClient(t, graphqlHandler(t, func(query string, variables map[string]interface{}) string {
		if !strings.Contains(query, "cartCreate") {
			t.Errorf("expected cartCreate mutation, got: %s", query)
		}
		return `{"data":{"cartCreate":{"cart":{
			"id":"gid://shopify/Cart/1",
			"checkoutUrl":"https://shop.test/checkout/1",
			"cost":{"totalAmount":{"amount":"179.98","currencyCode":"USD"}},
			"lines":{"edges":[{"node":{
				"id":"gid://shopify/CartLine/1",
				"quantity":2,
				"merchandise":{"id":"gid://shopify/ProductVariant/9","product":{"title":"OP-01 Booster Box"}}
			}}]}
		},"userErrors":[]}}}`
	}))

	cart, err := client.CreateCart(context.Background(), []CartItem{
		{MerchandiseID: "gid://shopify/ProductVariant/9", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("CreateCart() error = %v", err)
	}

	if cart.ID != "gid://shopify/Cart/1" {
		t.Errorf("id = %q", cart.ID)
	}
	if cart.CheckoutURL != "https://shop.test/checkout/1" {
		t.Errorf("checkout = %q", cart.CheckoutURL)
	}
	if cart.TotalPrice != "179.98" || cart.Currency != "USD" {
		t.Errorf("total = %s %s", cart.TotalPrice, cart.Currency)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 2 {
		t.Errorf("lines = %+v", cart.Lines)
	}
	if cart.Lines[0].Title != "OP-01 Booster Box" {
		t.Errorf("line title = %q", cart.Lines[0].Title)
	}
}

func TestCreateCartUserError(t *testing.T) {
	client := newTestClient(t, graphqlHandler(t, func(query string, variables map[string]interface{}) string {
		return `{"data":{"cartCreate":{"cart":null,"userErrors":[{"field":["lines"],"message":"variant not found"}]}}}`
	}))

	_, err := client.CreateCart(context.Background(), []CartItem{{MerchandiseID: "bad", Quantity: 1}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "variant not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetCartNotFound(t *testing.T) {
	client := newTestClient(t, graphqlHandler(t, func(query string, variables map[string]interface{}) string {
		return `{"data":{"cart":null}}`
	}))

	_, err := client.GetCart(context.Background(), "gid://shopify/Cart/missing")
	if err == nil {
		t.Fatal("expected error for missing cart")
	}
}

func TestUpdateCart(t *testing.T) {
	client := newTestClient(t, graphqlHandler(t, func(query string, variables map[string]interface{}) string {
		if !strings.Contains(query, "cartLinesAdd") {
			t.Errorf("expected cartLinesAdd mutation, got: %s", query)
		}
		if variables["cartId"] != "gid://shopify/Cart/1" {
			t.Errorf("cartId = %v", variables["cartId"])
		}
		return `{"data":{"cartLinesAdd":{"cart":{
			"id":"gid://shopify/Cart/1",
			"checkoutUrl":"https://shop.test/checkout/1",
			"cost":{"totalAmount":{"amount":"200.00","currencyCode":"USD"}},
			"lines":{"edges":[]}
		},"userErrors":[]}}}`
	}))

	cart, err := client.UpdateCart(context.Background(), "gid://shopify/Cart/1", []CartItem{
		{MerchandiseID: "gid://shopify/ProductVariant/10", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("UpdateCart() error = %v", err)
	}
	if cart.TotalPrice != "200.00" {
		t.Errorf("total = %q", cart.TotalPrice)
	}
}

func TestGraphQLErrorEnvelope(t *testing.T) {
	client := newTestClient(t, graphqlHandler(t, func(query string, variables map[string]interface{}) string {
		return `{"errors":[{"message":"syntax error"}]}`
	}))

	_, err := client.SearchProducts(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "syntax error") {
		t.Errorf("unexpected error: %v", err)
	}
}
