package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/panelread/kit"
	"github.com/hazyhaar/panelread/readout"
)

// Router fans out to all configured sinks. Sinks are called concurrently;
// a slow or failing sink does not hold back the others. All errors are
// logged and joined.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) SendResult(ctx context.Context, res readout.Result) error {
	return r.dispatch(ctx, "result", res.ID, func(s Sink) error { return s.SendResult(ctx, res) })
}

func (r *Router) SendFailure(ctx context.Context, f readout.Failure) error {
	return r.dispatch(ctx, "failure", f.ID, func(s Sink) error { return s.SendFailure(ctx, f) })
}

func (r *Router) dispatch(ctx context.Context, typ, session string, send func(Sink) error) error {
	errs := make([]error, len(r.sinks))
	var wg sync.WaitGroup
	for i, s := range r.sinks {
		wg.Go(func() {
			if err := send(s); err != nil {
				errs[i] = fmt.Errorf("sink %d (%T): %w", i, s, err)
			}
		})
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		attrs := append(kit.Attrs(ctx), "type", typ, "id", session, "error", err)
		r.logger.WarnContext(ctx, "sink: delivery failed", attrs...)
	}
	return err
}

func (r *Router) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
