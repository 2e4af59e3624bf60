package gateway

import (
	"sync"
	"time"
)

const (
	// maxTrackedKeys caps the number of tracked rate-limit keys to
	// prevent memory exhaustion from attackers rotating source IPs.
	maxTrackedKeys = 4096

	rateLimitWindow = 60 * time.Second
)

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// RateLimiter bounds webhook requests per source key over a sliding
// window. Safe for concurrent use.
type RateLimiter struct {
	mu      sync.Mutex
	maxHits int
	entries map[string]*rateLimitEntry
}

// NewRateLimiter builds a limiter allowing maxHits requests per key
// per minute. maxHits <= 0 disables limiting.
func NewRateLimiter(maxHits int) *RateLimiter {
	return &RateLimiter{
		maxHits: maxHits,
		entries: make(map[string]*rateLimitEntry),
	}
}

// Enabled reports whether limiting is active.
func (r *RateLimiter) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxHits > 0
}

// SetMaxHits adjusts the per-key budget, for config reloads. A value
// <= 0 disables limiting.
func (r *RateLimiter) SetMaxHits(maxHits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxHits = maxHits
}

// Allow returns true if the key is within rate limits. Stale entries
// are pruned as the tracked-key cap approaches, with hard eviction as
// the backstop.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxHits <= 0 {
		return true
	}

	now := time.Now()

	if len(r.entries) >= maxTrackedKeys {
		for k, e := range r.entries {
			if now.Sub(e.windowStart) >= rateLimitWindow {
				delete(r.entries, k)
			}
		}
		for len(r.entries) >= maxTrackedKeys {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[key]
	if !ok || now.Sub(e.windowStart) >= rateLimitWindow {
		r.entries[key] = &rateLimitEntry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= r.maxHits
}
