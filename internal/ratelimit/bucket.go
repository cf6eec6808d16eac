// Package ratelimit caps how often a chat session may call the LLM.
// It combines a token bucket (short bursts) with a sliding window (daily cap).
package ratelimit

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests replace it to step time manually.
type Clock func() time.Time

// Bucket implements a token bucket rate limiter.
// It is safe for concurrent use.
//
// Tokens are added at refillRate per second up to capacity.
// Each allowed request consumes one token.
type Bucket struct {
	mu         sync.Mutex
	now        Clock
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
}

// NewBucket creates a full bucket.
//
// Example:
//
//	// 20-call burst, refilled at 6 calls per minute
//	b := ratelimit.NewBucket(20, 6.0/60, time.Now)
func NewBucket(capacity, refillRate float64, now Clock) *Bucket {
	if now == nil {
		now = time.Now
	}
	return &Bucket{
		now:        now,
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillRate,
		lastRefill: now(),
	}
}

// refill must be called with mu held.
func (b *Bucket) refill() {
	t := b.now()
	if elapsed := t.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	}
	b.lastRefill = t
}

// Check reports whether a token is available without consuming it.
func (b *Bucket) Check() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.tokens >= 1
}

// Consume takes one token if one is available.
func (b *Bucket) Consume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens >= 1 {
		b.tokens--
	}
}

// Allow consumes a token and reports whether one was available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Available returns the current number of tokens.
func (b *Bucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.tokens
}
