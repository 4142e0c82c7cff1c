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

package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter enforces a per-client sliding window over Redis. Without
// Redis (or on Redis errors) it falls back to an in-memory window, so a
// cache outage never takes the gateway down with it.
type RateLimiter struct {
	client         *redis.Client
	limitPerMinute int

	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewRateLimiter creates a limiter. redisURL may be empty for the
// in-memory fallback only.
func NewRateLimiter(redisURL string, limitPerMinute int) (*RateLimiter, error) {
	rl := &RateLimiter{
		limitPerMinute: limitPerMinute,
		windows:        make(map[string][]time.Time),
	}

	if redisURL == "" {
		return rl, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	fmt.Printf("✅ Redis connected: %s\n", redisURL)
	rl.client = client
	return rl, nil
}

// NewRateLimiterWithClient creates a limiter over an existing Redis client
// (used in tests).
func NewRateLimiterWithClient(client *redis.Client, limitPerMinute int) *RateLimiter {
	return &RateLimiter{
		client:         client,
		limitPerMinute: limitPerMinute,
		windows:        make(map[string][]time.Time),
	}
}

// Allow checks the rate limit for a client. Returns an error describing
// the violation when the limit is exceeded, nil when within limit.
func (rl *RateLimiter) Allow(ctx context.Context, clientID string) error {
	if rl == nil || rl.limitPerMinute <= 0 {
		return nil
	}
	if rl.client == nil {
		return rl.allowInMemory(clientID)
	}

	now := time.Now()
	key := fmt.Sprintf("ratelimit:%s", clientID)

	pipe := rl.client.Pipeline()

	// Sliding window: drop timestamps older than one minute
	minScore := now.Add(-time.Minute).Unix()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", minScore))
	pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.Unix()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, 2*time.Minute)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		// On Redis error, fail open (allow request) and log
		fmt.Printf("Warning: Redis rate limit check failed for %s: %v (failing open)\n", clientID, err)
		return nil
	}

	count := cmds[1].(*redis.IntCmd).Val()
	if count >= int64(rl.limitPerMinute) {
		return fmt.Errorf("rate limit exceeded: %d requests/minute (limit: %d)", count+1, rl.limitPerMinute)
	}

	return nil
}

// allowInMemory is the single-instance fallback window
func (rl *RateLimiter) allowInMemory(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	window := rl.windows[clientID]
	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rl.limitPerMinute {
		rl.windows[clientID] = kept
		return fmt.Errorf("rate limit exceeded: %d requests/minute (limit: %d)", len(kept)+1, rl.limitPerMinute)
	}

	rl.windows[clientID] = append(kept, now)
	return nil
}

// Status returns the request count in the current window and when the
// window resets.
func (rl *RateLimiter) Status(ctx context.Context, clientID string) (int, time.Time, error) {
	now := time.Now()
	resetTime := now.Truncate(time.Minute).Add(time.Minute)

	if rl.client == nil {
		rl.mu.Lock()
		defer rl.mu.Unlock()

		cutoff := now.Add(-time.Minute)
		count := 0
		for _, ts := range rl.windows[clientID] {
			if ts.After(cutoff) {
				count++
			}
		}
		return count, resetTime, nil
	}

	key := fmt.Sprintf("ratelimit:%s", clientID)
	minScore := now.Add(-time.Minute).Unix()
	count, err := rl.client.ZCount(ctx, key, fmt.Sprintf("%d", minScore), "+inf").Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to get rate limit status: %w", err)
	}

	return int(count), resetTime, nil
}

// Close releases the Redis connection
func (rl *RateLimiter) Close() error {
	if rl != nil && rl.client != nil {
		return rl.client.Close()
	}
	return nil
}
