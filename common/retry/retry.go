// Package retry provides bounded exponential-backoff retries for
// short-lived external calls, such as the completion requests issued
// during conversation compaction.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// Policy controls how Do behaves.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values
	// below 1 are treated as 1.
	Attempts int
	// BaseDelay is the wait before the second attempt; each later wait
	// doubles, capped at MaxDelay. A small random jitter is added so
	// concurrent retriers do not synchronise.
	BaseDelay time.Duration
	// MaxDelay caps the per-attempt wait.
	MaxDelay time.Duration
	// Retryable classifies errors. When nil, every non-nil error is
	// retried.
	Retryable func(err error) bool
}

// Default is tuned for HTTP calls that either succeed quickly or are not
// worth waiting long for; the callers here all have a fallback path.
var Default = Policy{
	Attempts:  2,
	BaseDelay: 300 * time.Millisecond,
	MaxDelay:  5 * time.Second,
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx is done.
// The error of the final attempt is returned; a context error ends the
// loop immediately and is joined with the last attempt's error.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = Default.BaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = Default.MaxDelay
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = func(error) bool { return true }
	}

	delay := base
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == attempts {
			return lastErr
		}

		wait := delay + time.Duration(rand.Int63n(int64(delay)/4+1))
		slog.Debug("retry: attempt failed",
			"attempt", attempt, "attempts", attempts,
			"err", lastErr, "wait", wait)

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(wait):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return lastErr
}
