package panelread

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/hazyhaar/panelread/readout"
)

func TestSinksFromConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
panels:
  - name: p
    kind: editor
    url: https://example.test
    editor:
      content: .c
sinks:
  - type: stdout
    format: records
  - type: webhook
    url: http://127.0.0.1:1/hook
`))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	sinks, err := SinksFromConfig(cfg, &buf, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(sinks) != 2 {
		t.Fatalf("sinks: got %d, want 2", len(sinks))
	}
	sinks[0].SendResult(context.Background(), readout.Result{Header: []string{"h"}, Records: [][]string{{"v"}}})
	if got := buf.String(); got != "[\"h\"]\n[\"v\"]\n" {
		t.Fatalf("stdout records: got %q", got)
	}

	cfg.Sinks = nil
	sinks, err = SinksFromConfig(cfg, &buf, nil)
	if err != nil || len(sinks) != 1 {
		t.Fatalf("default sinks: got %d, %v", len(sinks), err)
	}
}
