// Package backoff computes retry delays: capped exponential growth with
// optional proportional jitter.
package backoff

import (
	"math/rand"
	"time"
)

// Delay returns the backoff for a zero-based attempt index:
// initial * multiplier^attempt, capped at max, plus up to jitter*delay of
// random slack. Jitter never pushes the result past max.
func Delay(attempt int, initial, max time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Beyond ~30 doublings the cap always wins; avoids float overflow.
	if attempt > 30 {
		attempt = 30
	}
	if multiplier < 1 {
		multiplier = 1
	}

	d := time.Duration(float64(initial) * Pow(multiplier, attempt))
	if d < 0 || d > max {
		d = max
	}

	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 {
		slack := time.Duration(float64(d) * jitter * rand.Float64())
		if d+slack > max {
			d = max
		} else {
			d += slack
		}
	}
	return d
}

// Pow computes base^exponent for small non-negative integer exponents.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
