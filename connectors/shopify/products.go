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

// Product is a single product in search results
type Product struct {
	Title     string `json:"title"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	Available bool   `json:"available"`
	URL       string `json:"url,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	VariantID string `json:"variant_id,omitempty"`
}

// SearchResult is the product search response
type SearchResult struct {
	Products     []Product `json:"products"`
	TotalResults int       `json:"total_results"`
	Source       string    `json:"source"`
}

const productSearchQuery = `
query searchProducts($query: String!, $first: Int!) {
  products(query: $query, first: $first) {
    edges {
      node {
        title
        onlineStoreUrl
        availableForSale
        featuredImage { url }
        variants(first: 1) {
          edges {
            node {
              id
              availableForSale
              price { amount currencyCode }
            }
          }
        }
      }
    }
  }
}`

// SearchProducts searches the storefront catalog
func (c *Client) SearchProducts(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	var data struct {
		Products struct {
			Edges []struct {
				Node struct {
					Title            string `json:"title"`
					OnlineStoreURL   string `json:"onlineStoreUrl"`
					AvailableForSale bool   `json:"availableForSale"`
					FeaturedImage    *struct {
						URL string `json:"url"`
					} `json:"featuredImage"`
					Variants struct {
						Edges []struct {
							Node struct {
								ID               string `json:"id"`
								AvailableForSale bool   `json:"availableForSale"`
								Price            struct {
									Amount       string `json:"amount"`
									CurrencyCode string `json:"currencyCode"`
								} `json:"price"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"variants"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}

	err := c.graphql(ctx, productSearchQuery, map[string]interface{}{
		"query": query,
		"first": limit,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("product search failed: %w", err)
	}

	result := &SearchResult{Source: "shopify"}
	for _, edge := range data.Products.Edges {
		product := Product{
			Title:     edge.Node.Title,
			Available: edge.Node.AvailableForSale,
			URL:       edge.Node.OnlineStoreURL,
		}
		if edge.Node.FeaturedImage != nil {
			product.ImageURL = edge.Node.FeaturedImage.URL
		}
		if len(edge.Node.Variants.Edges) > 0 {
			variant := edge.Node.Variants.Edges[0].Node
			product.VariantID = variant.ID
			product.Price = variant.Price.Amount
			product.Currency = variant.Price.CurrencyCode
		}
		result.Products = append(result.Products, product)
	}
	result.TotalResults = len(result.Products)

	return result, nil
}
