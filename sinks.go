package panelread

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hazyhaar/panelread/internal/sink"
	"github.com/hazyhaar/panelread/readout"
)

// Sink is the output interface for read sessions.
type Sink = sink.Sink

// NewStdoutSink creates a JSON-lines sink writing one envelope per session.
// A nil writer means os.Stdout.
func NewStdoutSink(w io.Writer) Sink {
	s, _ := sink.NewStdout(w, sink.FormatEnvelope)
	return s
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink. Either function may
// be nil.
func NewCallbackSink(
	onResult func(ctx context.Context, res readout.Result) error,
	onFailure func(ctx context.Context, f readout.Failure) error,
) Sink {
	return sink.NewCallback(onResult, onFailure)
}

// SinksFromConfig builds the sinks listed in cfg.Sinks. With none listed it
// returns a single stdout sink writing to out.
func SinksFromConfig(cfg *Config, out io.Writer, logger *slog.Logger) ([]Sink, error) {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	var sinks []Sink
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			s, err := sink.NewStdout(out, sc.Format)
			if err != nil {
				return nil, fmt.Errorf("panelread: %w", err)
			}
			sinks = append(sinks, s)
		case "webhook":
			sinks = append(sinks, NewWebhookSink(sc.URL, logger))
		default:
			logger.Warn("panelread: unknown sink type", "type", sc.Type)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, NewStdoutSink(out))
	}
	return sinks, nil
}
