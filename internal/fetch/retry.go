package fetch

import (
	"context"
	"fmt"
	"time"
)

// Policy controls Retry.
type Policy struct {
	// Tries is the total number of attempts, including the first.
	Tries int
	// BaseDelay is multiplied by the attempt number between attempts.
	BaseDelay time.Duration
	// RateLimitFloor is multiplied by the attempt number and used as the
	// minimum delay after a rate-limit failure.
	RateLimitFloor time.Duration
	// OnRetry, when set, is called before each sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns three tries with a 350ms linear backoff and a two
// second per-attempt floor after rate limiting.
func DefaultPolicy() Policy {
	return Policy{
		Tries:          3,
		BaseDelay:      350 * time.Millisecond,
		RateLimitFloor: 2 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Tries <= 0 {
		p.Tries = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.RateLimitFloor < 0 {
		p.RateLimitFloor = 0
	}
	return p
}

// Delay returns how long to wait after attempt (1-based) failed with err.
func (p Policy) Delay(attempt int, err error) time.Duration {
	delay := p.BaseDelay * time.Duration(attempt)
	if IsRateLimited(err) {
		delay = max(delay, p.RateLimitFloor*time.Duration(attempt))
	}
	return delay
}

// Retry calls op up to p.Tries times and returns the first success. After
// the final failure the last error is returned unchanged so callers can
// still match it with errors.As.
func Retry[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.Tries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return zero, err
		}
		if attempt == p.Tries {
			break
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("retry cancelled after attempt %d: %w", attempt, ctx.Err())
		}

		delay := p.Delay(attempt, err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}
	}
	return zero, lastErr
}
