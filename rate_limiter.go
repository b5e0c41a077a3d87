package edgo

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket gating every outbound request. Tokens accrue
// continuously at refillPerSec up to capacity; each admitted request consumes
// exactly one. All accounting happens under a single mutex that is never held
// across a sleep.
type RateLimiter struct {
	mu           sync.Mutex
	tokens       float64
	capacity     float64
	refillPerSec float64
	lastRefill   time.Time
	unlimited    bool
}

// NewRateLimiter creates a token bucket admitting rps requests per second
// with the given burst capacity. A non-positive rate or burst is a
// construction error, not a silent no-op.
func NewRateLimiter(rps float64, burst int) (*RateLimiter, error) {
	if rps <= 0 {
		return nil, validationError("rate limiter refill rate must be positive", nil)
	}
	if burst <= 0 {
		return nil, validationError("rate limiter burst must be positive", nil)
	}
	return &RateLimiter{
		tokens:       float64(burst),
		capacity:     float64(burst),
		refillPerSec: rps,
		lastRefill:   time.Now(),
	}, nil
}

// NewUnlimitedRateLimiter returns a limiter that admits everything
// immediately. Meant for offline or externally throttled use; the default
// client configuration never constructs one.
func NewUnlimitedRateLimiter() *RateLimiter {
	return &RateLimiter{unlimited: true}
}

// refillLocked adds tokens for the time elapsed since the last refill,
// capped at capacity. Caller must hold mu.
func (rl *RateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed * rl.refillPerSec
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastRefill = now
}

// Wait blocks until a token is available, then consumes it. The accounting
// loops because concurrent waiters may drain tokens accrued during the
// sleep; bucket state only improves over time, so admission is eventual.
// Returns early with the context error if ctx is cancelled while waiting.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.unlimited {
		return nil
	}

	for {
		rl.mu.Lock()
		now := time.Now()
		rl.refillLocked(now)

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}

		deficit := 1 - rl.tokens
		wait := time.Duration(deficit / rl.refillPerSec * float64(time.Second))
		rl.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire consumes a token if one is available, without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	if rl.unlimited {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Tokens reports the current token level, for metrics and tests.
func (rl *RateLimiter) Tokens() float64 {
	if rl.unlimited {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked(time.Now())
	return rl.tokens
}
