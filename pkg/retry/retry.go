// Package retry provides a bounded retry-with-delay wrapper for remote
// vault calls.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vaultmcp/pkg/vaulterr"
)

// Options controls the retry loop. Zero values fall back to sane defaults:
// 3 attempts, 500ms delay, retry on any error.
type Options struct {
	MaxAttempts int
	Delay       time.Duration
	// ShouldRetry decides whether a failed attempt is worth repeating.
	// When nil, every error is retried until attempts run out.
	ShouldRetry func(err error) bool
	// OnRetry is invoked before each retry. When nil, a default log line
	// is emitted.
	OnRetry func(attempt int, err error)
}

const (
	defaultMaxAttempts = 3
	defaultDelay       = 500 * time.Millisecond
)

// Do runs fn up to opts.MaxAttempts times, sleeping opts.Delay between
// attempts. The terminal error keeps its original classification: a
// vaulterr.Error gets its Attempts/Final fields filled in, anything else is
// wrapped in a new internal-kind vaulterr.Error carrying the operation name.
func Do[T any](ctx context.Context, op string, fn func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = defaultDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
			return zero, terminal(op, err, attempt)
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		} else {
			slog.Warn("retrying operation", "op", op, "attempt", attempt, "error", err)
		}

		select {
		case <-ctx.Done():
			return zero, terminal(op, ctx.Err(), attempt)
		case <-time.After(delay):
		}
	}

	return zero, terminal(op, lastErr, maxAttempts)
}

// terminal augments a classified error with retry diagnostics, or wraps an
// unclassified one so callers always see the operation name and attempt
// count. The original Kind is never replaced.
func terminal(op string, err error, attempts int) error {
	var ve *vaulterr.Error
	if errors.As(err, &ve) {
		ve.Attempts = attempts
		ve.Final = true
		return err
	}

	kind := vaulterr.KindInternal
	if errors.Is(err, context.DeadlineExceeded) {
		kind = vaulterr.KindTimeout
	}
	return &vaulterr.Error{
		Kind:     kind,
		Op:       op,
		Attempts: attempts,
		Final:    true,
		Err:      err,
	}
}
