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

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// applyFile overlays values from a YAML config file onto cfg. Only keys
// present in the file are applied, so environment defaults survive.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyString(&cfg.Port, overlay.Port)
	applyString(&cfg.Environment, overlay.Environment)
	applyString(&cfg.AWSRegion, overlay.AWSRegion)
	applyString(&cfg.BedrockModelID, overlay.BedrockModelID)
	applyString(&cfg.PerplexityAPIKey, overlay.PerplexityAPIKey)
	applyString(&cfg.CompetitiveDeckEndpoint, overlay.CompetitiveDeckEndpoint)
	applyString(&cfg.CompetitiveDeckSecret, overlay.CompetitiveDeckSecret)
	applyString(&cfg.ShopifyStoreDomain, overlay.ShopifyStoreDomain)
	applyString(&cfg.ShopifyStorefrontToken, overlay.ShopifyStorefrontToken)
	applyString(&cfg.RedisURL, overlay.RedisURL)
	applyString(&cfg.DatabaseURL, overlay.DatabaseURL)

	if overlay.PerplexityCallLimit > 0 {
		cfg.PerplexityCallLimit = overlay.PerplexityCallLimit
	}
	if overlay.RateLimitPerMinute > 0 {
		cfg.RateLimitPerMinute = overlay.RateLimitPerMinute
	}

	return nil
}

func applyString(target *string, value string) {
	if value != "" {
		*target = value
	}
}
