// Package domport defines the observation capability the reconciliation
// engine consumes. A Port is supplied by a UI-automation collaborator (see
// domport/rodport for the Chrome implementation); collectors only ever see
// these interfaces, which keeps them testable with synthetic fragment
// sequences.
//
// Operations are split between reading the page (Querier, Buffers) and
// driving it (Scroller).
package domport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Element is an opaque handle to a rendered DOM element.
type Element interface {
	String() string
}

// Locator addresses an element to wait for.
type Locator struct {
	// Within scopes the query to a container. Nil means the document.
	Within Element
	// Selector is a concrete CSS selector (see Expand for templates).
	Selector string
	// HasText keeps only candidates whose text contains this substring.
	HasText string
	// Index picks among the candidates: 0 first, -1 last, n the nth.
	Index int
	// Visible additionally requires the element to be visible.
	Visible bool
}

func (l Locator) String() string {
	s := l.Selector
	if l.HasText != "" {
		s += fmt.Sprintf(" has-text(%q)", l.HasText)
	}
	if l.Index != 0 {
		s += fmt.Sprintf(" [%d]", l.Index)
	}
	return s
}

// Querier reads the current rendered state of the page.
type Querier interface {
	// WaitAttached blocks until loc resolves to an attached element or the
	// timeout elapses, in which case it returns a *RenderTimeoutError.
	WaitAttached(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
	// QueryVisible returns the elements matching selector currently
	// rendered inside within, in document order.
	QueryVisible(ctx context.Context, within Element, selector string) ([]Element, error)
	ReadText(ctx context.Context, el Element) (string, error)
	// AttributeOf returns the attribute value and whether it is present.
	AttributeOf(ctx context.Context, el Element, name string) (string, bool, error)
	// ClientHeight returns the visible height of a scrollable element.
	ClientHeight(ctx context.Context, el Element) (float64, error)
	IsScrolledToEnd(ctx context.Context, el Element) (bool, error)
	// TrailingChildTexts returns, for each direct child of el, the text of
	// that child's last child element, or "" when it has none.
	TrailingChildTexts(ctx context.Context, el Element) ([]string, error)
}

// Scroller drives the page.
type Scroller interface {
	ScrollBy(ctx context.Context, el Element, dy float64) error
}

// Buffers manages append-only observation buffers kept in page context.
type Buffers interface {
	// SubscribeAppendBuffer installs an observer on el that appends the
	// text of every newly added descendant matching selector to the named
	// buffer. The buffer starts with seed.
	SubscribeAppendBuffer(ctx context.Context, el Element, selector, buffer string, seed []string) error
	// DrainBuffer atomically empties the named buffer and returns what it
	// held, oldest first.
	DrainBuffer(ctx context.Context, buffer string) ([]string, error)
}

// Port is the full observation capability.
type Port interface {
	Querier
	Scroller
	Buffers
}

// ErrRenderTimeout is matched by every *RenderTimeoutError.
var ErrRenderTimeout = errors.New("domport: render timeout")

// RenderTimeoutError reports an element that never attached in time.
type RenderTimeoutError struct {
	Locator Locator
	Timeout time.Duration
	Err     error // last lookup failure, may be nil
}

func (e *RenderTimeoutError) Error() string {
	msg := fmt.Sprintf("domport: %s not attached after %s", e.Locator, e.Timeout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderTimeoutError) Is(target error) bool { return target == ErrRenderTimeout }

func (e *RenderTimeoutError) Unwrap() error { return e.Err }
