package retry

import (
	"context"
	"time"
)

// Clock abstracts the time operations used by pauses and retry backoffs.
// Production code uses RealClock; tests inject a fake that records the
// requested durations and fires immediately.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Pause blocks for d on clk or until ctx is done.
func Pause(ctx context.Context, clk Clock, d time.Duration) error {
	if clk == nil {
		clk = realClock{}
	}
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clk.After(d):
		return nil
	}
}
