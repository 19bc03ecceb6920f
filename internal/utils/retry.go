package utils

import (
	"context"
	"errors"
	"time"
)

// BackoffFunc returns the wait after the given failed attempt (1-based).
type BackoffFunc func(base time.Duration, attempt int) time.Duration

// LinearBackoff waits base, 2*base, 3*base, ...
func LinearBackoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// ExponentialBackoff waits base, 2*base, 4*base, ...
func ExponentialBackoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// RetryPolicy configures Retry. Zero values fall back to 3 attempts, a 2s
// base delay and linear backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     BackoffFunc
	// Sleep is swapped in tests; defaults to the context-aware Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry, if set, observes each failure that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.Backoff == nil {
		p.Backoff = LinearBackoff
	}
	if p.Sleep == nil {
		p.Sleep = Sleep
	}
	return p
}

// Retry runs op until it succeeds or MaxAttempts is reached. It returns the
// number of attempts made and the last error. Context cancellation stops
// retrying at once.
func Retry(ctx context.Context, p RetryPolicy, op func(ctx context.Context, attempt int) error) (int, error) {
	p = p.withDefaults()
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if last == nil {
				last = err
			}
			return attempt - 1, last
		}
		last = op(ctx, attempt)
		if last == nil {
			return attempt, nil
		}
		if errors.Is(last, context.Canceled) || errors.Is(last, context.DeadlineExceeded) {
			return attempt, last
		}
		if attempt == p.MaxAttempts {
			break
		}
		delay := p.Backoff(p.BaseDelay, attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, last)
		}
		if err := p.Sleep(ctx, delay); err != nil {
			return attempt, last
		}
	}
	return p.MaxAttempts, last
}
