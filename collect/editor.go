package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/panelread/domport"
	"github.com/hazyhaar/panelread/retry"
)

// EditorConfig describes a virtualized text editor with a line-number
// gutter: the content viewport renders visual lines, the gutter renders one
// entry per visual line whose text is empty for wrapped continuations.
type EditorConfig struct {
	// Content is the viewport rendering the visual lines.
	Content domport.Locator
	// ReadyText must appear in the content before reading starts.
	// Default: FieldSep.
	ReadyText string
	// LineSelector matches one visual line inside Content.
	LineSelector string

	// Markers is the gutter viewport.
	Markers domport.Locator
	// MarkerSelector matches one gutter entry inside Markers.
	MarkerSelector string
	MarkerMode     MarkerMode

	// FieldSep splits a logical row into fields. Default ";".
	FieldSep string

	// ContentBuffer and MarkerBuffer name the page-side append buffers.
	// They must be unique per read session.
	ContentBuffer string
	MarkerBuffer  string

	// StepFraction of the visible height scrolled per cycle. Default 0.85.
	StepFraction   float64
	Settle         time.Duration
	ParityAttempts int
	ParityBackoff  time.Duration
	RenderTimeout  time.Duration
}

func (c *EditorConfig) defaults() {
	if c.LineSelector == "" {
		c.LineSelector = ".view-line"
	}
	if c.Markers.Selector == "" {
		c.Markers.Selector = ".margin-view-overlays"
	}
	if c.MarkerSelector == "" {
		c.MarkerSelector = "div"
	}
	if c.MarkerMode == "" {
		c.MarkerMode = MarkTerminates
	}
	if c.FieldSep == "" {
		c.FieldSep = ";"
	}
	if c.ReadyText == "" {
		c.ReadyText = c.FieldSep
	}
	if c.ContentBuffer == "" {
		c.ContentBuffer = "content"
	}
	if c.MarkerBuffer == "" {
		c.MarkerBuffer = "markers"
	}
	if c.StepFraction <= 0 {
		c.StepFraction = 0.85
	}
	if c.Settle <= 0 {
		c.Settle = defaultSettle
	}
	if c.ParityAttempts <= 0 {
		c.ParityAttempts = defaultParityTries
	}
	if c.ParityBackoff <= 0 {
		c.ParityBackoff = defaultParityBackoff
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = defaultRenderTimeout
	}
}

// EditorCollector reads a virtualized editor through two correlated append
// buffers and reconciles wrapped lines into logical rows.
type EditorCollector struct {
	port domport.Port
	cfg  EditorConfig
	opts options
}

// NewEditor creates an EditorCollector reading through port.
func NewEditor(port domport.Port, cfg EditorConfig, opts ...Option) *EditorCollector {
	cfg.defaults()
	return &EditorCollector{port: port, cfg: cfg, opts: buildOptions(opts)}
}

// Collect subscribes both buffers, then scrolls and drains until a cycle
// drains no content. Each logical row is split into fields.
func (e *EditorCollector) Collect(ctx context.Context) ([][]string, error) {
	log := e.opts.logger
	p := e.port

	contentLoc := e.cfg.Content
	contentLoc.HasText = e.cfg.ReadyText
	content, err := p.WaitAttached(ctx, contentLoc, e.cfg.RenderTimeout)
	if err != nil {
		return nil, fmt.Errorf("collect: editor content: %w", err)
	}
	markers, err := p.WaitAttached(ctx, e.cfg.Markers, e.cfg.RenderTimeout)
	if err != nil {
		return nil, fmt.Errorf("collect: editor markers: %w", err)
	}

	if err := e.subscribe(ctx, content, markers); err != nil {
		return nil, err
	}

	rec := NewReconciler(e.cfg.MarkerMode)
	var rows [][]string
	emit := func(lines []string) {
		for _, l := range lines {
			rows = append(rows, SplitFields(l, e.cfg.FieldSep))
		}
	}

	markersVisible := e.cfg.Markers
	markersVisible.Visible = true

	for cycle := 1; ; cycle++ {
		frags, marks, err := e.drain(ctx, cycle)
		if err != nil {
			return nil, err
		}

		if len(frags) == 0 {
			if last, ok := rec.Flush(); ok {
				emit([]string{last})
			}
			log.InfoContext(ctx, "collect: editor read complete", "cycles", cycle, "rows", len(rows))
			return rows, nil
		}

		done, err := rec.Feed(frags, marks)
		if err != nil {
			return nil, err
		}
		emit(done)
		log.DebugContext(ctx, "collect: editor cycle",
			"cycle", cycle, "fragments", len(frags), "finalized", len(done), "total", len(rows))

		height, err := p.ClientHeight(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("collect: editor: viewport height: %w", err)
		}
		if err := p.ScrollBy(ctx, content, height*e.cfg.StepFraction); err != nil {
			return nil, fmt.Errorf("collect: editor: scroll: %w", err)
		}
		if _, err := p.WaitAttached(ctx, markersVisible, e.cfg.RenderTimeout); err != nil {
			return nil, fmt.Errorf("collect: editor markers: %w", err)
		}
		if err := retry.Pause(ctx, e.opts.clock, e.cfg.Settle); err != nil {
			return nil, fmt.Errorf("collect: editor: %w", err)
		}
	}
}

// subscribe seeds both buffers with the window already on screen and starts
// observing appended lines.
func (e *EditorCollector) subscribe(ctx context.Context, content, markers domport.Element) error {
	p := e.port

	text, err := p.ReadText(ctx, content)
	if err != nil {
		return fmt.Errorf("collect: editor: read content: %w", err)
	}
	seedMarks, err := p.TrailingChildTexts(ctx, markers)
	if err != nil {
		return fmt.Errorf("collect: editor: read markers: %w", err)
	}

	if err := p.SubscribeAppendBuffer(ctx, content, e.cfg.LineSelector, e.cfg.ContentBuffer, splitLines(text)); err != nil {
		return fmt.Errorf("collect: editor: subscribe %s: %w", e.cfg.ContentBuffer, err)
	}
	if err := p.SubscribeAppendBuffer(ctx, markers, e.cfg.MarkerSelector, e.cfg.MarkerBuffer, seedMarks); err != nil {
		return fmt.Errorf("collect: editor: subscribe %s: %w", e.cfg.MarkerBuffer, err)
	}
	return nil
}

// drain empties both buffers until one attempt drains as many fragments as
// markers. Entries drained by a failed attempt are kept, since draining is
// destructive, but they are only released once a later attempt is itself
// balanced and the totals agree. Markers that arrive late in a separate
// drain never get paired by position with earlier fragments.
func (e *EditorCollector) drain(ctx context.Context, cycle int) (frags, marks []string, err error) {
	gov := retry.Governor{
		Name:     "editor drain",
		Attempts: e.cfg.ParityAttempts,
		Interval: e.cfg.ParityBackoff,
		Clock:    e.opts.clock,
		Logger:   e.opts.logger,
	}
	err = gov.Do(ctx, func(attempt int) error {
		c, err := e.port.DrainBuffer(ctx, e.cfg.ContentBuffer)
		if err != nil {
			return fmt.Errorf("drain %s: %w", e.cfg.ContentBuffer, err)
		}
		m, err := e.port.DrainBuffer(ctx, e.cfg.MarkerBuffer)
		if err != nil {
			return fmt.Errorf("drain %s: %w", e.cfg.MarkerBuffer, err)
		}
		frags = append(frags, c...)
		marks = append(marks, m...)
		if len(c) != len(m) || len(frags) != len(marks) {
			return retry.Transient(&BufferParityError{
				Content:  len(frags),
				Markers:  len(marks),
				Drained:  [2]int{len(c), len(m)},
				Attempts: attempt + 1,
				Cycle:    cycle,
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("collect: editor: %w", err)
	}
	return frags, marks, nil
}
