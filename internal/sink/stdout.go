package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/panelread/readout"
)

// Stdout output formats.
const (
	FormatEnvelope = "envelope" // one {"type","data"} line per session
	FormatRecords  = "records"  // one JSON array per table line, header first
)

// Stdout writes JSON lines to an io.Writer (default os.Stdout).
type Stdout struct {
	mu     sync.Mutex
	enc    *json.Encoder
	format string
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used; an
// empty format means FormatEnvelope.
func NewStdout(w io.Writer, format string) (*Stdout, error) {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case "":
		format = FormatEnvelope
	case FormatEnvelope, FormatRecords:
	default:
		return nil, fmt.Errorf("sink: unknown stdout format %q", format)
	}
	return &Stdout{enc: json.NewEncoder(w), format: format}, nil
}

func (s *Stdout) SendResult(_ context.Context, res readout.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.format == FormatEnvelope {
		return s.enc.Encode(envelope{Type: "result", Data: res})
	}
	if len(res.Header) > 0 {
		if err := s.enc.Encode(res.Header); err != nil {
			return err
		}
	}
	for _, rec := range res.Records {
		if err := s.enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// SendFailure writes the failure envelope in both formats; a records
// stream has no other way to signal a failed session.
func (s *Stdout) SendFailure(_ context.Context, f readout.Failure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: "failure", Data: f})
}

func (s *Stdout) Close() error { return nil }
