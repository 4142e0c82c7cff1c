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

// Package main is the entry point for the TCG assistant gateway.
//
// The gateway fronts three Bedrock-backed agents:
// - Weather: forecasts via the National Weather Service API
// - Card search: One Piece TCG card research via Perplexity
// - Coordinator: decks, research, and store operations behind one prompt
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8000)
//	ENVIRONMENT - deployment environment (default: development)
//	AWS_REGION - region for Bedrock and Parameter Store (default: us-east-1)
//	BEDROCK_MODEL_ID - Claude model ID on Bedrock
//	PERPLEXITY_API_KEY - card research API key
//	COMPETITIVE_DECK_ENDPOINT - GumGum.gg deck endpoint URL
//	SHOPIFY_STORE_DOMAIN - storefront domain
//	DATABASE_URL - PostgreSQL connection string for usage metering
//	REDIS_URL - Redis connection string for rate limiting
//
// Secrets missing from the environment are read from SSM Parameter Store
// under /tcg-agent/<environment>/<service>/<key>.
package main

import (
	"tcg-agent/platform/gateway"
)

func main() {
	gateway.Run()
}
