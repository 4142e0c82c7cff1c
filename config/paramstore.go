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
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// secretPathPrefix is the Parameter Store namespace for this platform
const secretPathPrefix = "/tcg-agent"

// DefaultCacheTTL is how long fetched parameters stay cached
const DefaultCacheTTL = 5 * time.Minute

// ssmAPI is the subset of the SSM client used by ParameterStore.
// *ssm.Client satisfies this interface; tests supply fakes.
type ssmAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// cachedParameter is a parameter value with its fetch time
type cachedParameter struct {
	value     string
	fetchedAt time.Time
}

// ParameterStore fetches secrets from AWS SSM Parameter Store with
// decryption and an in-memory TTL cache.
type ParameterStore struct {
	api      ssmAPI
	cache    map[string]cachedParameter
	cacheTTL time.Duration
	mu       sync.RWMutex
}

// NewParameterStore creates a store using the default AWS credential chain.
func NewParameterStore(ctx context.Context, region string) (*ParameterStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewParameterStoreWithClient(ssm.NewFromConfig(awsCfg)), nil
}

// NewParameterStoreWithClient creates a store with an explicit SSM client.
func NewParameterStoreWithClient(api ssmAPI) *ParameterStore {
	return &ParameterStore{
		api:      api,
		cache:    make(map[string]cachedParameter),
		cacheTTL: DefaultCacheTTL,
	}
}

// ParameterPath builds the conventional path for a service secret:
// /tcg-agent/<environment>/<service>/<key>
func ParameterPath(environment, service, key string) string {
	return fmt.Sprintf("%s/%s/%s/%s", secretPathPrefix, environment, service, key)
}

// GetParameter fetches a decrypted parameter, serving from cache when the
// entry is still fresh.
func (p *ParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	p.mu.RLock()
	if cached, ok := p.cache[name]; ok && time.Since(cached.fetchedAt) < p.cacheTTL {
		p.mu.RUnlock()
		return cached.value, nil
	}
	p.mu.RUnlock()

	output, err := p.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}

	if output.Parameter == nil || output.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}

	value := *output.Parameter.Value

	p.mu.Lock()
	p.cache[name] = cachedParameter{value: value, fetchedAt: time.Now()}
	p.mu.Unlock()

	// Log the fetch, never the value
	log.Printf("🔑 Fetched parameter %s (%d bytes)", name, len(value))

	return value, nil
}

// Invalidate removes one parameter from the cache
func (p *ParameterStore) Invalidate(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, name)
}

// InvalidateAll clears the cache
func (p *ParameterStore) InvalidateAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]cachedParameter)
}
