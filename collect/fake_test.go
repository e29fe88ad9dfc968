package collect

import (
	"context"
	"time"

	"github.com/hazyhaar/panelread/domport"
)

// fakeEl is an element addressed by the selector that resolved it.
type fakeEl string

func (e fakeEl) String() string { return string(e) }

// fakeRow is a rendered grid row.
type fakeRow struct {
	text  string
	attrs map[string]string
}

func (r *fakeRow) String() string { return "row(" + r.text + ")" }

func row(text, index string) *fakeRow {
	return &fakeRow{text: text, attrs: map[string]string{"row-index": index}}
}

// fakePort scripts a virtualized panel. Grid windows advance on every
// ScrollBy; buffer drains replay a per-buffer script of appended chunks.
type fakePort struct {
	height   float64
	text     map[string]string // ReadText by selector
	trailing []string
	waitErr  map[string]error // WaitAttached failure by selector

	windows [][]*fakeRow
	win     int

	script map[string][][]string
	bufs   map[string][]string

	waits   []domport.Locator
	scrolls []float64
	subs    []subscription
	drains  map[string]int
}

type subscription struct {
	selector, buffer string
	seed             []string
}

func newFakePort() *fakePort {
	return &fakePort{
		height:  90,
		text:    map[string]string{},
		waitErr: map[string]error{},
		script:  map[string][][]string{},
		bufs:    map[string][]string{},
		drains:  map[string]int{},
	}
}

func (p *fakePort) WaitAttached(_ context.Context, loc domport.Locator, timeout time.Duration) (domport.Element, error) {
	p.waits = append(p.waits, loc)
	if err, ok := p.waitErr[loc.Selector]; ok {
		return nil, &domport.RenderTimeoutError{Locator: loc, Timeout: timeout, Err: err}
	}
	return fakeEl(loc.Selector), nil
}

func (p *fakePort) QueryVisible(_ context.Context, _ domport.Element, _ string) ([]domport.Element, error) {
	if p.win >= len(p.windows) {
		return nil, nil
	}
	var els []domport.Element
	for _, r := range p.windows[p.win] {
		els = append(els, r)
	}
	return els, nil
}

func (p *fakePort) ReadText(_ context.Context, el domport.Element) (string, error) {
	if r, ok := el.(*fakeRow); ok {
		return r.text, nil
	}
	return p.text[el.String()], nil
}

func (p *fakePort) AttributeOf(_ context.Context, el domport.Element, name string) (string, bool, error) {
	r, ok := el.(*fakeRow)
	if !ok {
		return "", false, nil
	}
	v, ok := r.attrs[name]
	return v, ok, nil
}

func (p *fakePort) ClientHeight(context.Context, domport.Element) (float64, error) {
	return p.height, nil
}

func (p *fakePort) IsScrolledToEnd(context.Context, domport.Element) (bool, error) {
	return p.win >= len(p.windows)-1, nil
}

func (p *fakePort) TrailingChildTexts(context.Context, domport.Element) ([]string, error) {
	return p.trailing, nil
}

func (p *fakePort) ScrollBy(_ context.Context, _ domport.Element, dy float64) error {
	p.scrolls = append(p.scrolls, dy)
	p.win++
	return nil
}

func (p *fakePort) SubscribeAppendBuffer(_ context.Context, _ domport.Element, selector, buffer string, seed []string) error {
	p.subs = append(p.subs, subscription{selector: selector, buffer: buffer, seed: seed})
	p.bufs[buffer] = append([]string(nil), seed...)
	return nil
}

func (p *fakePort) DrainBuffer(_ context.Context, buffer string) ([]string, error) {
	n := p.drains[buffer]
	p.drains[buffer]++
	if s := p.script[buffer]; n < len(s) {
		p.bufs[buffer] = append(p.bufs[buffer], s[n]...)
	}
	out := p.bufs[buffer]
	p.bufs[buffer] = nil
	return out, nil
}

// recordingClock fires immediately and remembers every requested pause.
type recordingClock struct {
	pauses []time.Duration
}

func (c *recordingClock) Now() time.Time { return time.Unix(0, 0) }

func (c *recordingClock) After(d time.Duration) <-chan time.Time {
	c.pauses = append(c.pauses, d)
	ch := make(chan time.Time, 1)
	ch <- time.Unix(0, 0)
	return ch
}
