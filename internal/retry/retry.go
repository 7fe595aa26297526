// Package retry provides bounded retry with exponential backoff. Every call
// to the remote document store goes through it so that transient network
// blips do not immediately surface as user-facing failures.
package retry

import (
	"context"
	"time"
)

const (
	// DefaultAttempts is the total number of tries, including the first.
	DefaultAttempts = 3
	// DefaultBaseDelay is the delay before the first retry; each further
	// retry doubles it (1s, 2s, 4s).
	DefaultBaseDelay = time.Second
)

// Do invokes op until it succeeds or attempts are exhausted. After a failed
// attempt with attempts remaining it sleeps baseDelay * 2^attemptIndex; the
// final failure is returned without a trailing sleep. Do makes no judgment
// about error categories, that is the caller's job.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, baseDelay<<uint(i)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, attempts int, baseDelay time.Duration, op func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, attempts, baseDelay, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	return result, err
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
