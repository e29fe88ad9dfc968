// Package sink defines output backends for read sessions.
package sink

import (
	"context"

	"github.com/hazyhaar/panelread/readout"
)

// Sink receives the outcome of every read session: exactly one Result or
// one Failure per session.
type Sink interface {
	SendResult(ctx context.Context, res readout.Result) error
	SendFailure(ctx context.Context, f readout.Failure) error
	Close() error
}

// envelope tags a payload on serialised transports.
type envelope struct {
	Type string `json:"type"` // result | failure
	Data any    `json:"data"`
}
