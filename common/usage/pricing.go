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

package usage

import "fmt"

// Bedrock on-demand pricing as of mid-2025.
// Prices stored in cents per 1K tokens to avoid floating point issues.
// All prices are USD.

// ProviderPricing contains pricing for a specific model
type ProviderPricing struct {
	PromptCostPer1K     int // thousandths of a cent per 1K prompt tokens
	CompletionCostPer1K int // thousandths of a cent per 1K completion tokens
}

// providerPricing maps provider-model combinations to pricing.
// Thousandths of a cent keep Haiku-class prices integral.
var providerPricing = map[string]ProviderPricing{
	// Claude on Bedrock
	"bedrock-anthropic.claude-3-5-sonnet-20241022-v2:0": {300, 1500}, // $0.003/$0.015 per 1K tokens
	"bedrock-anthropic.claude-3-5-sonnet-20240620-v1:0": {300, 1500},
	"bedrock-anthropic.claude-3-5-haiku-20241022-v1:0":  {80, 400}, // $0.0008/$0.004 per 1K tokens
	"bedrock-anthropic.claude-3-haiku-20240307-v1:0":    {25, 125},
	"bedrock-anthropic.claude-3-opus-20240229-v1:0":     {1500, 7500},

	// Default fallback pricing (conservative estimate)
	"default": {1000, 3000},
}

// CalculateCost calculates the cost in thousandths of a cent for a model
// invocation. Integer math avoids floating point precision issues.
func CalculateCost(provider, model string, promptTokens, completionTokens int) int {
	key := provider + "-" + model

	pricing, ok := providerPricing[key]
	if !ok {
		pricing = providerPricing["default"]
	}

	promptCost := (promptTokens * pricing.PromptCostPer1K) / 1000
	completionCost := (completionTokens * pricing.CompletionCostPer1K) / 1000

	return promptCost + completionCost
}

// GetProviderPricing returns the pricing for a provider-model combination
func GetProviderPricing(provider, model string) (ProviderPricing, bool) {
	key := provider + "-" + model
	pricing, ok := providerPricing[key]
	return pricing, ok
}

// FormatCostToDollars converts cents to a dollar string (135 -> "$1.35")
func FormatCostToDollars(cents int) string {
	dollars := float64(cents) / 100.0
	return fmt.Sprintf("$%.2f", dollars)
}
