package panelread

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/panelread/dbopen"
	"github.com/hazyhaar/panelread/domport"
	"github.com/hazyhaar/panelread/idgen"
	"github.com/hazyhaar/panelread/internal/store"
	"github.com/hazyhaar/panelread/readout"
)

const testConfig = `
panels:
  - name: accounts
    url: https://bi.example.com/report
    grid:
      container: .mid-viewport
      header: .header-viewport
  - name: ledger
    url: https://ide.example.com/ledger
    ragged: reject
    editor:
      content: .lines-content
`

type fakeEl string

func (e fakeEl) String() string { return string(e) }

type fakeRow struct{ text, index string }

func (r *fakeRow) String() string { return "row(" + r.text + ")" }

// panelPort renders one grid window and replays editor buffer drains.
// Buffers are addressed by suffix since their names carry the session ID.
type panelPort struct {
	text    map[string]string
	rows    []*fakeRow
	waitErr map[string]bool

	script map[string][][]string // by buffer suffix
	drains map[string]int        // by full buffer name
}

func newPanelPort() *panelPort {
	return &panelPort{
		text:    map[string]string{},
		waitErr: map[string]bool{},
		script:  map[string][][]string{},
		drains:  map[string]int{},
	}
}

func (p *panelPort) WaitAttached(_ context.Context, loc domport.Locator, timeout time.Duration) (domport.Element, error) {
	if p.waitErr[loc.Selector] {
		return nil, &domport.RenderTimeoutError{Locator: loc, Timeout: timeout}
	}
	return fakeEl(loc.Selector), nil
}

func (p *panelPort) QueryVisible(context.Context, domport.Element, string) ([]domport.Element, error) {
	els := make([]domport.Element, 0, len(p.rows))
	for _, r := range p.rows {
		els = append(els, r)
	}
	return els, nil
}

func (p *panelPort) ReadText(_ context.Context, el domport.Element) (string, error) {
	if r, ok := el.(*fakeRow); ok {
		return r.text, nil
	}
	return p.text[el.String()], nil
}

func (p *panelPort) AttributeOf(_ context.Context, el domport.Element, name string) (string, bool, error) {
	if r, ok := el.(*fakeRow); ok && name == "row-index" {
		return r.index, true, nil
	}
	return "", false, nil
}

func (p *panelPort) ClientHeight(context.Context, domport.Element) (float64, error) { return 100, nil }

func (p *panelPort) IsScrolledToEnd(context.Context, domport.Element) (bool, error) { return true, nil }

func (p *panelPort) TrailingChildTexts(context.Context, domport.Element) ([]string, error) {
	return nil, nil
}

func (p *panelPort) ScrollBy(context.Context, domport.Element, float64) error { return nil }

func (p *panelPort) SubscribeAppendBuffer(context.Context, domport.Element, string, string, []string) error {
	return nil
}

func (p *panelPort) DrainBuffer(_ context.Context, buffer string) ([]string, error) {
	n := p.drains[buffer]
	p.drains[buffer]++
	for suffix, s := range p.script {
		if strings.HasSuffix(buffer, "-"+suffix) && n < len(s) {
			return s[n], nil
		}
	}
	return nil, nil
}

func accountsPort() *panelPort {
	p := newPanelPort()
	p.text[".header-viewport"] = "name\namount"
	p.rows = []*fakeRow{{"a\n1", "0"}, {"b\n2", "1"}}
	return p
}

func ledgerPort(frags, marks []string) *panelPort {
	p := newPanelPort()
	p.script["content"] = [][]string{frags}
	p.script["markers"] = [][]string{marks}
	return p
}

// instantClock returns immediately from every pause.
type instantClock struct{}

func (instantClock) Now() time.Time { return time.UnixMilli(1708700000000) }

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// outcomes collects what the callback sink received.
type outcomes struct {
	mu       sync.Mutex
	results  []readout.Result
	failures []readout.Failure
}

// testReader builds a Reader over an in-memory history whose port opener
// hands out port.
func testReader(t *testing.T, port domport.Port) (*Reader, *outcomes) {
	t.Helper()
	cfg, err := ParseConfig([]byte(testConfig))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	out := &outcomes{}
	cb := NewCallbackSink(
		func(_ context.Context, res readout.Result) error {
			out.mu.Lock()
			defer out.mu.Unlock()
			out.results = append(out.results, res)
			return nil
		},
		func(_ context.Context, f readout.Failure) error {
			out.mu.Lock()
			defer out.mu.Unlock()
			out.failures = append(out.failures, f)
			return nil
		},
	)

	r, err := New(cfg, slog.Default(),
		WithSinks(cb),
		WithClock(instantClock{}),
		WithIDGenerator(idgen.Counter("rd_")),
		WithPortOpener(func(context.Context, PanelConfig) (domport.Port, func() error, error) {
			return port, func() error { return nil }, nil
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.store = &store.Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))}
	t.Cleanup(func() { r.Stop() })
	return r, out
}
