package apierr

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy holds the parameters of a bounded retry loop with a fixed
// inter-attempt delay. It is injected as a value rather than hand-rolled at
// each call site.
//
// Invalid values are normalized:
//   - MaxAttempts < 1 becomes 1 (single attempt, no retry)
//   - Delay < 0 becomes 0
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	Delay       time.Duration // fixed pause between attempts
}

// normalize ensures all RetryPolicy fields have valid values.
func (p *RetryPolicy) normalize() {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
}

// Retry executes fn up to policy.MaxAttempts times, sleeping policy.Delay
// between attempts. It retries only if shouldRetry returns true for the
// error; the last error is returned after exhausting attempts.
//
// The inter-attempt sleep is context-aware: a cancelled context aborts the
// wait and returns ctx.Err().
func Retry[T any](
	ctx context.Context,
	policy RetryPolicy,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	policy.normalize()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 && policy.Delay > 0 {
			timer := time.NewTimer(policy.Delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}
