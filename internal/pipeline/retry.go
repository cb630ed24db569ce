package pipeline

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy is the single retry policy injected into every fetch:
// exponential backoff with jitter, capped at MaxAttempts total attempts.
// Only transient fetch errors are retried; permanent errors and context
// cancellation abort immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is the policy applied when config leaves retry
// settings unset: three attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Backoff returns the sleep before the given retry (1-based): an
// exponentially growing delay with up to 50% random jitter, capped at
// MaxDelay.
func (p RetryPolicy) Backoff(retry int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
// It returns the number of attempts made alongside the final error.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, fn func(context.Context) error) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !IsTransient(lastErr) {
			return attempt, lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Backoff(attempt)
		logger.Warn("transient fetch failure, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}
	}
	return p.MaxAttempts, lastErr
}
