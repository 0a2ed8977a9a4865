package cache

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks an error as transient: [Backoff.Retry] calls the
// function again instead of returning it.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is wrapped with Retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff configures retries of connections to remote layout stores.
type Backoff struct {
	Attempts int           // Calls before giving up
	Delay    time.Duration // Wait before the second call, doubled each time
}

// DefaultBackoff makes three attempts, waiting 1s and 2s in between.
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second}

// Retry calls fn until it succeeds, returns an error not marked Retryable,
// or the attempts are used up. The last error is returned unwrapped.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	delay := b.Delay
	var lastErr error
	for i := range max(b.Attempts, 1) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		lastErr = fn()
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}
	var re *RetryableError
	errors.As(lastErr, &re)
	return re.Err
}

// RetryWithBackoff retries fn with [DefaultBackoff].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultBackoff.Retry(ctx, fn)
}
