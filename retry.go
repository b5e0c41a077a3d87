package edgo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edgolib/edgo/internal/backoff"
)

// RetryPolicy is the immutable retry schedule: attempts are bounded by
// MaxAttempts, delays grow from InitialDelay by Multiplier per failure and
// never exceed MaxDelay. MaxAttempts of 1 disables retries.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// retryDo drives op through the retry schedule. op must produce a fresh
// attempt on every invocation; a consumed request body cannot be replayed.
// Only errors IsRetryable approves are retried. The last error is returned
// verbatim so callers can distinguish cause; intermediate failures are only
// visible through the logger.
func retryDo[T any](ctx context.Context, p RetryPolicy, logger *zap.Logger, op func(context.Context) (T, error)) (T, error) {
	attempt := 1
	for {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= p.MaxAttempts || !IsRetryable(err) {
			var zero T
			return zero, err
		}

		delay := backoff.Delay(attempt-1, p.InitialDelay, p.MaxDelay, p.Multiplier, p.Jitter)
		if logger != nil {
			logger.Warn("request attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", p.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(err))
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, err
		case <-timer.C:
		}
		attempt++
	}
}
