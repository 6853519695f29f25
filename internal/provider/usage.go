package provider

import (
	"sort"
	"sync"
)

// Usage is the process-wide call and cost accounting shared by all jobs.
// Created at process start, reset only by explicit operator action. All
// mutation goes through Record's single serialization point so concurrent
// jobs never lose updates.
type Usage struct {
	mu       sync.Mutex
	counters map[string]*Counter
}

// Counter accumulates calls and estimated cost for one provider/role pair.
type Counter struct {
	Calls   int64   `json:"calls"`
	CostUSD float64 `json:"cost_usd"`
}

func NewUsage() *Usage {
	return &Usage{counters: make(map[string]*Counter)}
}

func usageKey(provider, role string) string { return provider + "/" + role }

// Record counts one call attempt for a provider/role pair.
func (u *Usage) Record(provider, role string, costUSD float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	c := u.counters[usageKey(provider, role)]
	if c == nil {
		c = &Counter{}
		u.counters[usageKey(provider, role)] = c
	}
	c.Calls++
	c.CostUSD += costUSD
}

// Count returns the number of recorded calls for a provider/role pair.
func (u *Usage) Count(provider, role string) int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	if c := u.counters[usageKey(provider, role)]; c != nil {
		return c.Calls
	}
	return 0
}

// Snapshot returns a copy of all counters keyed "provider/role".
func (u *Usage) Snapshot() map[string]Counter {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]Counter, len(u.counters))
	for k, v := range u.counters {
		out[k] = *v
	}
	return out
}

// Keys returns the counter keys in sorted order, for stable reporting.
func (u *Usage) Keys() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	keys := make([]string, 0, len(u.counters))
	for k := range u.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset clears all counters. Operator action only.
func (u *Usage) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.counters = make(map[string]*Counter)
}
