// Package rodport implements domport.Port on top of a go-rod page.
//
// Append buffers live in page context: an injected MutationObserver pushes
// the text of every newly added matching node into
// window.__panelread buffers, and a drain splices the array in a single
// evaluation so no entry is delivered twice.
package rodport

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/panelread/domport"
	"github.com/hazyhaar/panelread/retry"
)

//go:embed buffer.js
var bufferJS string

const defaultPoll = 500 * time.Millisecond

var errNotAttached = errors.New("rodport: no matching element")

// Port adapts a rod page.
type Port struct {
	page   *rod.Page
	poll   time.Duration
	clock  retry.Clock
	logger *slog.Logger

	mu        sync.Mutex
	installed bool
	buffers   []string
}

var _ domport.Port = (*Port)(nil)

// Option configures a Port.
type Option func(*Port)

// WithPoll sets the render-wait polling interval. Default 500ms.
func WithPoll(d time.Duration) Option {
	return func(p *Port) { p.poll = d }
}

// WithClock sets the clock used between render-wait polls.
func WithClock(c retry.Clock) Option {
	return func(p *Port) { p.clock = c }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Port) { p.logger = l }
}

// New wraps page.
func New(page *rod.Page, opts ...Option) *Port {
	p := &Port{page: page, poll: defaultPoll, clock: retry.RealClock(), logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	if p.poll <= 0 {
		p.poll = defaultPoll
	}
	return p
}

// element is a rod element with the locator text it was resolved from.
type element struct {
	el   *rod.Element
	desc string
}

func (e *element) String() string { return e.desc }

func unwrap(el domport.Element) (*rod.Element, error) {
	e, ok := el.(*element)
	if !ok || e.el == nil {
		return nil, fmt.Errorf("rodport: foreign element %v", el)
	}
	return e.el, nil
}

// WaitAttached polls every poll interval until loc resolves or the timeout
// budget is spent.
func (p *Port) WaitAttached(ctx context.Context, loc domport.Locator, timeout time.Duration) (domport.Element, error) {
	gov := retry.ForTimeout("wait "+loc.String(), timeout, p.poll)
	gov.Clock = p.clock
	gov.Logger = p.logger

	var found *rod.Element
	err := gov.Do(ctx, func(int) error {
		el, err := p.lookup(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.Transient(err)
		}
		if el == nil {
			return retry.Transient(errNotAttached)
		}
		found = el
		return nil
	})
	if err != nil {
		var ex *retry.ExhaustedError
		if errors.As(err, &ex) {
			return nil, &domport.RenderTimeoutError{Locator: loc, Timeout: timeout, Err: ex.Err}
		}
		return nil, fmt.Errorf("rodport: wait %s: %w", loc, err)
	}
	return &element{el: found, desc: loc.String()}, nil
}

func (p *Port) lookup(ctx context.Context, loc domport.Locator) (*rod.Element, error) {
	var (
		els rod.Elements
		err error
	)
	if loc.Within != nil {
		w, uerr := unwrap(loc.Within)
		if uerr != nil {
			return nil, uerr
		}
		els, err = w.Context(ctx).Elements(loc.Selector)
	} else {
		els, err = p.page.Context(ctx).Elements(loc.Selector)
	}
	if err != nil {
		return nil, err
	}

	var cands []*rod.Element
	for _, el := range els {
		if loc.HasText != "" {
			t, err := el.Text()
			if err != nil || !strings.Contains(t, loc.HasText) {
				continue
			}
		}
		if loc.Visible {
			v, err := el.Visible()
			if err != nil || !v {
				continue
			}
		}
		cands = append(cands, el)
	}

	i := loc.Index
	if i < 0 {
		i += len(cands)
	}
	if i < 0 || i >= len(cands) {
		return nil, nil
	}
	return cands[i], nil
}

// QueryVisible returns the visible elements matching selector inside within.
func (p *Port) QueryVisible(ctx context.Context, within domport.Element, selector string) ([]domport.Element, error) {
	w, err := unwrap(within)
	if err != nil {
		return nil, err
	}
	els, err := w.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("rodport: query %s: %w", selector, err)
	}
	var out []domport.Element
	for i, el := range els {
		v, err := el.Visible()
		if err != nil {
			// Detached between the query and the check.
			continue
		}
		if v {
			out = append(out, &element{el: el, desc: fmt.Sprintf("%s [%d]", selector, i)})
		}
	}
	return out, nil
}

func (p *Port) ReadText(ctx context.Context, el domport.Element) (string, error) {
	e, err := unwrap(el)
	if err != nil {
		return "", err
	}
	t, err := e.Context(ctx).Text()
	if err != nil {
		return "", fmt.Errorf("rodport: text of %s: %w", el, err)
	}
	return t, nil
}

func (p *Port) AttributeOf(ctx context.Context, el domport.Element, name string) (string, bool, error) {
	e, err := unwrap(el)
	if err != nil {
		return "", false, err
	}
	v, err := e.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("rodport: attribute %s of %s: %w", name, el, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (p *Port) ClientHeight(ctx context.Context, el domport.Element) (float64, error) {
	e, err := unwrap(el)
	if err != nil {
		return 0, err
	}
	res, err := e.Context(ctx).Eval(`() => this.clientHeight`)
	if err != nil {
		return 0, fmt.Errorf("rodport: height of %s: %w", el, err)
	}
	return res.Value.Num(), nil
}

func (p *Port) IsScrolledToEnd(ctx context.Context, el domport.Element) (bool, error) {
	e, err := unwrap(el)
	if err != nil {
		return false, err
	}
	res, err := e.Context(ctx).Eval(`() => Math.ceil(this.scrollTop + this.clientHeight) >= this.scrollHeight`)
	if err != nil {
		return false, fmt.Errorf("rodport: scroll position of %s: %w", el, err)
	}
	return res.Value.Bool(), nil
}

func (p *Port) TrailingChildTexts(ctx context.Context, el domport.Element) ([]string, error) {
	e, err := unwrap(el)
	if err != nil {
		return nil, err
	}
	res, err := e.Context(ctx).Eval(`() => JSON.stringify(Array.from(this.children, (c) => {
		const last = c.lastElementChild;
		return last ? (last.innerText || "") : "";
	}))`)
	if err != nil {
		return nil, fmt.Errorf("rodport: child texts of %s: %w", el, err)
	}
	var texts []string
	if err := json.Unmarshal([]byte(res.Value.Str()), &texts); err != nil {
		return nil, fmt.Errorf("rodport: child texts of %s: %w", el, err)
	}
	return texts, nil
}

func (p *Port) ScrollBy(ctx context.Context, el domport.Element, dy float64) error {
	e, err := unwrap(el)
	if err != nil {
		return err
	}
	if _, err := e.Context(ctx).Eval(`(dy) => this.scrollBy(0, dy)`, dy); err != nil {
		return fmt.Errorf("rodport: scroll %s: %w", el, err)
	}
	return nil
}

func (p *Port) install(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.installed {
		return nil
	}
	if _, err := p.page.Context(ctx).Eval(bufferJS); err != nil {
		return fmt.Errorf("rodport: inject buffer.js: %w", err)
	}
	p.installed = true
	return nil
}

// SubscribeAppendBuffer starts observing el. Subscribing an existing buffer
// name replaces its observer and contents.
func (p *Port) SubscribeAppendBuffer(ctx context.Context, el domport.Element, selector, buffer string, seed []string) error {
	e, err := unwrap(el)
	if err != nil {
		return err
	}
	if err := p.install(ctx); err != nil {
		return err
	}
	if seed == nil {
		seed = []string{}
	}
	_, err = e.Context(ctx).Eval(`(sel, name, seed) => window.__panelread.subscribe(this, sel, name, seed)`,
		selector, buffer, seed)
	if err != nil {
		return fmt.Errorf("rodport: subscribe %s: %w", buffer, err)
	}

	p.mu.Lock()
	p.buffers = append(p.buffers, buffer)
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "rodport: buffer subscribed",
		"buffer", buffer, "selector", selector, "seed", len(seed))
	return nil
}

// DrainBuffer empties the named buffer in one page evaluation.
func (p *Port) DrainBuffer(ctx context.Context, buffer string) ([]string, error) {
	res, err := p.page.Context(ctx).Eval(`(name) => window.__panelread ? window.__panelread.drain(name) : "null"`, buffer)
	if err != nil {
		return nil, fmt.Errorf("rodport: drain %s: %w", buffer, err)
	}
	var out *[]string
	if err := json.Unmarshal([]byte(res.Value.Str()), &out); err != nil {
		return nil, fmt.Errorf("rodport: drain %s: %w", buffer, err)
	}
	if out == nil {
		return nil, fmt.Errorf("rodport: drain %s: buffer not subscribed", buffer)
	}
	return *out, nil
}

// Release disconnects every observer this Port installed and drops their
// buffers. The page itself stays open.
func (p *Port) Release(ctx context.Context) error {
	p.mu.Lock()
	names := p.buffers
	p.buffers = nil
	p.mu.Unlock()

	var errs []error
	for _, name := range names {
		_, err := p.page.Context(ctx).Eval(`(name) => window.__panelread && window.__panelread.release(name)`, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("rodport: release %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
