// Package ratelimit implements a global token-bucket admission controller
// shared across all fetch workers.
package ratelimit

import (
	"sync"
	"time"
)

// fastPathRate is the sentinel above which Acquire is treated as
// effectively unlimited and skips locking entirely.
const fastPathRate = 1000.0

// Limiter is a capacity-R, refill-rate-R token bucket. One token is
// deducted per Acquire call.
type Limiter struct {
	rate float64 // R, tokens per second; also bucket capacity

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// New creates a Limiter with the given rate. A rate >= 1000 disables
// locking on the hot path entirely. The bucket starts empty, so the first
// token becomes available 1/R seconds after construction.
func New(rate float64) *Limiter {
	return &Limiter{
		rate:       rate,
		tokens:     0,
		lastRefill: time.Now(),
	}
}

// Acquire blocks until at least one token is available, then deducts one.
func (l *Limiter) Acquire() {
	if l.rate >= fastPathRate {
		return
	}

	for {
		l.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(l.lastRefill).Seconds()
		l.tokens += elapsed * l.rate
		if l.tokens > l.rate {
			l.tokens = l.rate
		}
		l.lastRefill = now

		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return
		}

		wait := (1 - l.tokens) / l.rate
		l.mu.Unlock()
		time.Sleep(time.Duration(wait * float64(time.Second)))
	}
}
