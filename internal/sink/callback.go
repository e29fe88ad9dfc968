package sink

import (
	"context"

	"github.com/hazyhaar/panelread/readout"
)

// ResultFunc is called for each successful read.
type ResultFunc func(ctx context.Context, res readout.Result) error

// FailureFunc is called for each failed read.
type FailureFunc func(ctx context.Context, f readout.Failure) error

// Callback delivers outcomes via Go function calls, for embedding
// panelread in a larger binary.
type Callback struct {
	onResult  ResultFunc
	onFailure FailureFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onResult ResultFunc, onFailure FailureFunc) *Callback {
	return &Callback{onResult: onResult, onFailure: onFailure}
}

func (c *Callback) SendResult(ctx context.Context, res readout.Result) error {
	if c.onResult != nil {
		return c.onResult(ctx, res)
	}
	return nil
}

func (c *Callback) SendFailure(ctx context.Context, f readout.Failure) error {
	if c.onFailure != nil {
		return c.onFailure(ctx, f)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
