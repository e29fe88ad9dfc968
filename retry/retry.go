// Package retry implements the fixed-interval attempt budget shared by the
// collectors and the observation port adapter.
//
// The polled UI changes state at a roughly constant server-push cadence, so
// the interval between attempts is fixed: no exponential growth, no jitter.
// Only failures explicitly marked with Transient are retried; anything else
// ends the operation immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Governor runs an operation up to Attempts times, pausing Interval
// between consecutive attempts. There is no pause after the last attempt.
type Governor struct {
	// Name identifies the operation in logs and errors.
	Name string
	// Attempts is the total attempt budget. Values below 1 mean 1.
	Attempts int
	// Interval is the fixed pause between attempts.
	Interval time.Duration

	Clock  Clock
	Logger *slog.Logger
}

// ForTimeout builds a Governor whose attempt budget covers timeout when
// polling every interval. A zero interval yields a single attempt.
func ForTimeout(name string, timeout, interval time.Duration) Governor {
	attempts := 1
	if interval > 0 && timeout > 0 {
		attempts = int(timeout/interval) + 1
		if timeout%interval != 0 {
			attempts++
		}
	}
	return Governor{Name: name, Attempts: attempts, Interval: interval}
}

// Do calls op with the 0-based attempt number until it succeeds, fails with
// a non-transient error, or the attempt budget is spent. On exhaustion it
// returns an *ExhaustedError carrying the last cause.
func (g Governor) Do(ctx context.Context, op func(attempt int) error) error {
	attempts := g.Attempts
	if attempts < 1 {
		attempts = 1
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var last error
	for attempt := range attempts {
		err := op(attempt)
		if err == nil {
			return nil
		}

		var te *transientError
		if !errors.As(err, &te) {
			return err
		}
		last = te.err

		if attempt == attempts-1 {
			break
		}
		logger.DebugContext(ctx, "retry: transient failure",
			"op", g.Name,
			"attempt", attempt+1,
			"attempts", attempts,
			"backoff_ms", g.Interval.Milliseconds(),
			"error", last)
		if err := Pause(ctx, g.Clock, g.Interval); err != nil {
			return fmt.Errorf("retry: %s: cancelled after attempt %d: %w", g.Name, attempt+1, err)
		}
	}
	return &ExhaustedError{Name: g.Name, Attempts: attempts, Err: last}
}

// Transient marks err as retryable by a Governor. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err carries a Transient mark.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// ExhaustedError is returned when every attempt failed transiently.
type ExhaustedError struct {
	Name     string
	Attempts int
	Err      error // last failure cause
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %s: gave up after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
