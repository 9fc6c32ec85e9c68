package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default fetch retry settings.
const (
	DefaultFetchAttempts   = 3
	DefaultFetchRetryDelay = 2 * time.Second
)

// FixedRetryPolicy retries a fixed number of times with a constant delay.
type FixedRetryPolicy struct {
	maxAttempts int
	delay       time.Duration
	sleep       Sleeper
}

// NewFixedRetryPolicy builds a policy. Non-positive attempts fall back to the default.
func NewFixedRetryPolicy(maxAttempts int, delay time.Duration) *FixedRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultFetchAttempts
	}
	if delay < 0 {
		delay = 0
	}
	return &FixedRetryPolicy{
		maxAttempts: maxAttempts,
		delay:       delay,
		sleep:       sleepContext,
	}
}

// WithSleeper replaces the wait function; used by tests.
func (p *FixedRetryPolicy) WithSleeper(s Sleeper) *FixedRetryPolicy {
	if s != nil {
		p.sleep = s
	}
	return p
}

// MaxAttempts reports the total number of attempts, including the first.
func (p *FixedRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether another attempt follows a failure of the given attempt.
func (p *FixedRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Backoff returns the wait before the next attempt. It never grows.
func (p *FixedRetryPolicy) Backoff(int) time.Duration {
	return p.delay
}

// Do runs fn until it succeeds or the policy gives up. fn receives the
// 1-based attempt number. The last error is returned unchanged together
// with the number of attempts made.
func (p *FixedRetryPolicy) Do(ctx context.Context, fn func(attempt int) error) (int, error) {
	attempt := 0
	for {
		attempt++
		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		if !p.ShouldRetry(err, attempt) {
			return attempt, err
		}
		if sleepErr := p.sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
			return attempt, fmt.Errorf("wait before retry: %w (last error: %v)", sleepErr, err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
