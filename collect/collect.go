// Package collect reconstructs ordered, deduplicated rows from virtualized
// panels that only render a moving window of their content.
//
// Two collectors exist. GridCollector drives an index-addressable grid and
// deduplicates overlapping scroll windows by row fingerprint.
// EditorCollector drives a virtualized text editor and correlates two
// append buffers (content fragments and completion markers) to merge
// wrapped visual lines back into logical rows.
//
// Collectors are single-use: every read session builds its own collector
// and nothing is shared between sessions.
package collect

import (
	"log/slog"
	"time"

	"github.com/hazyhaar/panelread/retry"
)

const (
	defaultSettle        = 500 * time.Millisecond
	defaultRenderTimeout = 30 * time.Second
	defaultParityBackoff = time.Second
	defaultParityTries   = 5
)

type options struct {
	clock  retry.Clock
	logger *slog.Logger
}

// Option configures a collector.
type Option func(*options)

// WithClock sets the clock used for settle pauses and parity backoff.
func WithClock(c retry.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{clock: retry.RealClock(), logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.clock == nil {
		o.clock = retry.RealClock()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
