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

package perplexity

import "sync"

// CallCounter meters Perplexity API calls. When enabled, Allow reports
// false once the count reaches the limit; Reset starts a fresh window.
type CallCounter struct {
	mu      sync.Mutex
	count   int
	limit   int
	enabled bool
}

// CounterSnapshot is a point-in-time view of the counter state
type CounterSnapshot struct {
	Count   int  `json:"count"`
	Limit   int  `json:"limit"`
	Enabled bool `json:"enabled"`
}

// NewCallCounter creates a counter with the given limit
func NewCallCounter(limit int, enabled bool) *CallCounter {
	return &CallCounter{limit: limit, enabled: enabled}
}

// Allow reports whether another API call may be made
func (c *CallCounter) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return true
	}
	return c.count < c.limit
}

// Increment records a successful API call
func (c *CallCounter) Increment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

// Reset zeroes the counter
func (c *CallCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
}

// Snapshot returns the current counter state
func (c *CallCounter) Snapshot() CounterSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CounterSnapshot{Count: c.count, Limit: c.limit, Enabled: c.enabled}
}
