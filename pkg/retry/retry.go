// Package retry provides the single retry combinator used by the document store
// and its mutators.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is wrapped into the error returned by Do when every attempt failed
// with a retryable error.
var ErrExhausted = errors.New("retry attempts exhausted")

// Retryer decides whether another attempt is made and how long to wait first.
// attempt is 1-based and counts attempts already made.
type Retryer interface {
	NextDelay(attempt int, lastErr error) (time.Duration, bool)
}

// LinearBackoffRetryer waits Step*attempt between attempts and allows at most
// MaxAttempts attempts in total.
type LinearBackoffRetryer struct {
	Step        time.Duration
	MaxAttempts int
}

// NewLinearBackoffRetryer returns a retryer making up to maxAttempts attempts.
func NewLinearBackoffRetryer(step time.Duration, maxAttempts int) *LinearBackoffRetryer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &LinearBackoffRetryer{Step: step, MaxAttempts: maxAttempts}
}

// NextDelay implements Retryer
func (r *LinearBackoffRetryer) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if attempt >= r.MaxAttempts {
		return 0, false
	}
	return r.Step * time.Duration(attempt), true
}

// ExponentialBackoffRetryer doubles the delay after every attempt, starting at
// Initial, for at most MaxAttempts attempts.
type ExponentialBackoffRetryer struct {
	Initial     time.Duration
	MaxAttempts int
}

func NewExponentialBackoffRetryer(initial time.Duration, maxAttempts int) *ExponentialBackoffRetryer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ExponentialBackoffRetryer{Initial: initial, MaxAttempts: maxAttempts}
}

// NextDelay implements Retryer
func (r *ExponentialBackoffRetryer) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if attempt >= r.MaxAttempts {
		return 0, false
	}
	return r.Initial << (attempt - 1), true
}

// Policy combines a Retryer with the error classification used by Do.
type Policy struct {
	Retryer Retryer
	// Retryable reports whether err may be retried. nil retries every error.
	Retryable func(err error) bool
	// OnRetry is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Do runs op until it succeeds, returns a non-retryable error, the retryer gives
// up, or ctx is done. Non-retryable errors are returned unchanged.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w: %w", err, lastErr)
			}
			return err
		}
		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		delay, ok := p.Retryer.NextDelay(attempt, lastErr)
		if !ok {
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, lastErr)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, delay)
		}
		if err := Sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w: %w", err, lastErr)
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
