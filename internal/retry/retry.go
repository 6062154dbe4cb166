// Package retry runs an operation under a bounded exponential-backoff policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
)

// DefaultMaxDelay caps a single backoff sleep when Policy.MaxDelay is unset.
const DefaultMaxDelay = 30 * time.Second

// Policy describes how many times an operation is attempted and how long
// to sleep between attempts. After failing attempt n (0-based) the loop
// sleeps InitialDelay * Multiplier^n; there is no sleep after the last attempt.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// RetryAfterer is implemented by errors carrying a server-requested delay.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// Delay returns the sleep that follows failed attempt n.
func (p Policy) Delay(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	b := &backoff.Backoff{
		Min:    p.InitialDelay,
		Max:    maxDelay,
		Factor: p.Multiplier,
	}
	return b.ForAttempt(float64(attempt))
}

// Do calls op until it succeeds, the attempts are exhausted or ctx ends.
// On exhaustion the last error from op is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.Delay(attempt)
		var ra RetryAfterer
		if errors.As(err, &ra) && ra.RetryAfter() > 0 {
			delay = ra.RetryAfter()
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
