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

// Package config loads gateway configuration from environment variables,
// an optional YAML file, and AWS SSM Parameter Store. Environment
// variables win; Parameter Store fills in missing secrets under
// /tcg-agent/<environment>/<service>/<key>.
package config

import (
	"context"
	"log"
	"os"
	"strconv"
)

// SecretResolver fetches a secret by Parameter Store path. ParameterStore
// implements it; tests use fakes.
type SecretResolver interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Config holds all gateway configuration
type Config struct {
	// Server
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`

	// AWS / Bedrock
	AWSRegion      string `yaml:"aws_region"`
	BedrockModelID string `yaml:"bedrock_model_id"`

	// Perplexity
	PerplexityAPIKey       string `yaml:"perplexity_api_key"`
	PerplexityCallLimit    int    `yaml:"perplexity_call_limit"`
	PerplexityLimitEnabled bool   `yaml:"perplexity_limit_enabled"`

	// GumGum.gg competitive decks
	CompetitiveDeckEndpoint string `yaml:"competitive_deck_endpoint"`
	CompetitiveDeckSecret   string `yaml:"competitive_deck_secret"`

	// Shopify storefront
	ShopifyStoreDomain     string `yaml:"shopify_store_domain"`
	ShopifyStorefrontToken string `yaml:"shopify_storefront_token"`

	// Infrastructure
	RedisURL           string `yaml:"redis_url"`
	DatabaseURL        string `yaml:"database_url"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// Load builds the configuration. params may be nil, in which case only
// environment variables and the optional config file are consulted.
func Load(ctx context.Context, params SecretResolver) (*Config, error) {
	cfg := &Config{
		Port:                    getEnv("PORT", "8000"),
		Environment:             getEnv("ENVIRONMENT", "development"),
		AWSRegion:               getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID:          os.Getenv("BEDROCK_MODEL_ID"),
		PerplexityAPIKey:        os.Getenv("PERPLEXITY_API_KEY"),
		PerplexityCallLimit:     getEnvInt("PERPLEXITY_API_CALL_LIMIT", 10),
		PerplexityLimitEnabled:  getEnvBool("PERPLEXITY_API_LIMIT_ENABLED", true),
		CompetitiveDeckEndpoint: os.Getenv("COMPETITIVE_DECK_ENDPOINT"),
		CompetitiveDeckSecret:   os.Getenv("COMPETITIVE_DECK_SECRET"),
		ShopifyStoreDomain:      os.Getenv("SHOPIFY_STORE_DOMAIN"),
		ShopifyStorefrontToken:  os.Getenv("SHOPIFY_STOREFRONT_TOKEN"),
		RedisURL:                os.Getenv("REDIS_URL"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RateLimitPerMinute:      getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if params != nil {
		cfg.resolveSecrets(ctx, params)
	}

	return cfg, nil
}

// resolveSecrets fills missing secrets from Parameter Store. Misses are
// logged, not fatal: the affected agent simply stays unconfigured.
func (c *Config) resolveSecrets(ctx context.Context, params SecretResolver) {
	type lookup struct {
		target  *string
		service string
		key     string
	}

	lookups := []lookup{
		{&c.PerplexityAPIKey, "perplexity", "api-key"},
		{&c.CompetitiveDeckEndpoint, "gumgum", "endpoint"},
		{&c.CompetitiveDeckSecret, "gumgum", "secret"},
		{&c.ShopifyStoreDomain, "shopify", "store-domain"},
		{&c.ShopifyStorefrontToken, "shopify", "storefront-token"},
	}

	for _, l := range lookups {
		if *l.target != "" {
			continue
		}
		path := ParameterPath(c.Environment, l.service, l.key)
		value, err := params.GetParameter(ctx, path)
		if err != nil {
			log.Printf("⚠️ Parameter %s unavailable: %v", path, err)
			continue
		}
		*l.target = value
	}
}

// HasPerplexity reports whether card research is configured
func (c *Config) HasPerplexity() bool {
	return c.PerplexityAPIKey != ""
}

// HasGumGum reports whether the deck endpoint is configured
func (c *Config) HasGumGum() bool {
	return c.CompetitiveDeckEndpoint != ""
}

// HasShopify reports whether the storefront is configured
func (c *Config) HasShopify() bool {
	return c.ShopifyStoreDomain != "" && c.ShopifyStorefrontToken != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️ Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("⚠️ Invalid %s=%q, using %t", key, value, fallback)
		return fallback
	}
	return parsed
}
