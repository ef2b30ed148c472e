package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 30 * time.Second
)

// Backoff returns how long to wait before retry number attempt (0-based).
type Backoff func(attempt int) time.Duration

// ShouldRetry reports whether err is worth another attempt.
type ShouldRetry func(error) bool

// Policy describes how often and how patiently an operation is retried.
// MaxAttempts counts every call, so MaxAttempts=4 means one call plus three retries.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	ShouldRetry ShouldRetry
}

func (p *Policy) normalize() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = ExponentialBackoff(defaultBaseDelay, defaultMaxDelay)
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = alwaysRetry
	}
}

func alwaysRetry(error) bool {
	return true
}

// WithRetries returns a policy making one call plus retries more, with
// exponential backoff from base capped at max.
func WithRetries(retries int, base, max time.Duration) Policy {
	return Policy{
		MaxAttempts: retries + 1,
		Backoff:     ExponentialBackoff(base, max),
	}
}

// ExponentialBackoff waits base*2^attempt, never more than max.
func ExponentialBackoff(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		if attempt >= 62 {
			return max
		}
		d := base << attempt
		if d <= 0 || d > max {
			return max
		}
		return d
	}
}

// ConstantBackoff always waits delay.
func ConstantBackoff(delay time.Duration) Backoff {
	return func(int) time.Duration {
		return delay
	}
}

// Do runs fn under policy p.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult runs fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done. The last error is returned on failure.
func DoWithResult[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	p.normalize()
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		var result T
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if !p.ShouldRetry(err) || attempt == p.MaxAttempts-1 {
			return zero, err
		}

		wait := p.Backoff(attempt)
		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			timer.Reset(wait)
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-timer.C:
		}
	}
	return zero, err
}
