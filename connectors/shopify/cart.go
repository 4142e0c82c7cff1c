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
	"fmt"
)

// CartItem is a line item to add to a cart
type CartItem struct {
	MerchandiseID string `json:"merchandise_id"`
	Quantity      int    `json:"quantity"`
}

// CartLine is a line item in an existing cart
type CartLine struct {
	ID            string `json:"id"`
	MerchandiseID string `json:"merchandise_id"`
	Title         string `json:"title,omitempty"`
	Quantity      int    `json:"quantity"`
}

// Cart is the cart state returned by the Storefront API
type Cart struct {
	ID          string     `json:"id"`
	Lines       []CartLine `json:"lines"`
	CheckoutURL string     `json:"checkout_url,omitempty"`
	TotalPrice  string     `json:"total_price,omitempty"`
	Currency    string     `json:"currency,omitempty"`
}

// cartFields is the shared selection set for cart mutations and queries
const cartFields = `
    id
    checkoutUrl
    cost { totalAmount { amount currencyCode } }
    lines(first: 50) {
      edges {
        node {
          id
          quantity
          merchandise {
            ... on ProductVariant {
              id
              product { title }
            }
          }
        }
      }
    }`

type cartPayload struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkoutUrl"`
	Cost        struct {
		TotalAmount struct {
			Amount       string `json:"amount"`
			CurrencyCode string `json:"currencyCode"`
		} `json:"totalAmount"`
	} `json:"cost"`
	Lines struct {
		Edges []struct {
			Node struct {
				ID          string `json:"id"`
				Quantity    int    `json:"quantity"`
				Merchandise struct {
					ID      string `json:"id"`
					Product struct {
						Title string `json:"title"`
					} `json:"product"`
				} `json:"merchandise"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"lines"`
}

func (p *cartPayload) toCart() *Cart {
	cart := &Cart{
		ID:          p.ID,
		CheckoutURL: p.CheckoutURL,
		TotalPrice:  p.Cost.TotalAmount.Amount,
		Currency:    p.Cost.TotalAmount.CurrencyCode,
	}
	for _, edge := range p.Lines.Edges {
		cart.Lines = append(cart.Lines, CartLine{
			ID:            edge.Node.ID,
			MerchandiseID: edge.Node.Merchandise.ID,
			Title:         edge.Node.Merchandise.Product.Title,
			Quantity:      edge.Node.Quantity,
		})
	}
	return cart
}

func toLineInputs(items []CartItem) []map[string]interface{} {
	lines := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		lines = append(lines, map[string]interface{}{
			"merchandiseId": item.MerchandiseID,
			"quantity":      item.Quantity,
		})
	}
	return lines
}

// CreateCart creates a new cart with the given items
func (c *Client) CreateCart(ctx context.Context, items []CartItem) (*Cart, error) {
	query := fmt.Sprintf(`
mutation cartCreate($input: CartInput!) {
  cartCreate(input: $input) {
    cart {%s
    }
    userErrors { field message }
  }
}`, cartFields)

	var data struct {
		CartCreate struct {
			Cart       *cartPayload `json:"cart"`
			UserErrors []struct {
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"cartCreate"`
	}

	err := c.graphql(ctx, query, map[string]interface{}{
		"input": map[string]interface{}{"lines": toLineInputs(items)},
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("cart create failed: %w", err)
	}

	if len(data.CartCreate.UserErrors) > 0 {
		return nil, fmt.Errorf("cart create rejected: %s", data.CartCreate.UserErrors[0].Message)
	}
	if data.CartCreate.Cart == nil {
		return nil, fmt.Errorf("cart create returned no cart")
	}

	return data.CartCreate.Cart.toCart(), nil
}

// GetCart fetches an existing cart by ID
func (c *Client) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	query := fmt.Sprintf(`
query getCart($id: ID!) {
  cart(id: $id) {%s
  }
}`, cartFields)

	var data struct {
		Cart *cartPayload `json:"cart"`
	}

	err := c.graphql(ctx, query, map[string]interface{}{"id": cartID}, &data)
	if err != nil {
		return nil, fmt.Errorf("cart fetch failed: %w", err)
	}
	if data.Cart == nil {
		return nil, fmt.Errorf("cart %s not found", cartID)
	}

	return data.Cart.toCart(), nil
}

// UpdateCart adds items to an existing cart
func (c *Client) UpdateCart(ctx context.Context, cartID string, items []CartItem) (*Cart, error) {
	query := fmt.Sprintf(`
mutation cartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) {
    cart {%s
    }
    userErrors { field message }
  }
}`, cartFields)

	var data struct {
		CartLinesAdd struct {
			Cart       *cartPayload `json:"cart"`
			UserErrors []struct {
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"cartLinesAdd"`
	}

	err := c.graphql(ctx, query, map[string]interface{}{
		"cartId": cartID,
		"lines":  toLineInputs(items),
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("cart update failed: %w", err)
	}

	if len(data.CartLinesAdd.UserErrors) > 0 {
		return nil, fmt.Errorf("cart update rejected: %s", data.CartLinesAdd.UserErrors[0].Message)
	}
	if data.CartLinesAdd.Cart == nil {
		return nil, fmt.Errorf("cart update returned no cart")
	}

	return data.CartLinesAdd.Cart.toCart(), nil
}
