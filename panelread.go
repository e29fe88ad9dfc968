// Package panelread reads tables out of virtualized web panels: grids that
// only render the rows in view and text editors that only render the lines
// in view. A Reader opens the panel in Chrome, scrolls it from top to bottom
// while reconciling what each window rendered, and emits one ordered,
// deduplicated table per read session.
//
// panelread reads, it does not interpret. The table is handed to sinks
// (stdout, webhook, callback), kept in an optional SQLite history, and
// served over HTTP and MCP.
package panelread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/panelread/assemble"
	"github.com/hazyhaar/panelread/collect"
	"github.com/hazyhaar/panelread/domport"
	"github.com/hazyhaar/panelread/domport/rodport"
	"github.com/hazyhaar/panelread/idgen"
	"github.com/hazyhaar/panelread/internal/browser"
	"github.com/hazyhaar/panelread/internal/config"
	"github.com/hazyhaar/panelread/internal/sink"
	"github.com/hazyhaar/panelread/internal/store"
	"github.com/hazyhaar/panelread/kit"
	"github.com/hazyhaar/panelread/readout"
	"github.com/hazyhaar/panelread/retry"
)

// ErrUnknownPanel is returned when a read names a panel absent from the
// configuration.
var ErrUnknownPanel = errors.New("panelread: unknown panel")

// PortOpener opens an observation port on a panel's page. The returned
// release function is called once the read session is over.
type PortOpener func(ctx context.Context, panel PanelConfig) (domport.Port, func() error, error)

// Reader is the top-level orchestrator. It owns the browser, the sinks and
// the read history. Reads may run concurrently; each one gets its own tab,
// its own collector and its own page-side buffers.
type Reader struct {
	cfg    *config.Config
	mgr    *browser.Manager
	open   PortOpener
	sinks  []sink.Sink
	sinkR  *sink.Router
	store  *store.Store
	clock  retry.Clock
	newID  idgen.Generator
	logger *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithSinks adds output sinks. A Reader built without any writes JSON
// lines to stdout.
func WithSinks(sinks ...Sink) Option {
	return func(r *Reader) { r.sinks = append(r.sinks, sinks...) }
}

// WithPortOpener replaces the browser-backed port opener.
func WithPortOpener(fn PortOpener) Option {
	return func(r *Reader) { r.open = fn }
}

// WithClock sets the clock used for pauses, backoff and session timing.
func WithClock(c retry.Clock) Option {
	return func(r *Reader) { r.clock = c }
}

// WithIDGenerator sets the read session ID generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(r *Reader) { r.newID = g }
}

// New creates a Reader from configuration. The history database is opened
// when cfg.Store.Path is set. Call Start before the first browser read.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mode, err := browser.ParseMode(cfg.Browser.Stealth)
	if err != nil {
		return nil, fmt.Errorf("panelread: %w", err)
	}

	r := &Reader{
		cfg: cfg,
		mgr: browser.NewManager(browser.Config{
			RemoteURL:        cfg.Browser.Remote,
			Bin:              cfg.Browser.Bin,
			UserDataDir:      cfg.Browser.UserDataDir,
			MemoryLimit:      cfg.Browser.MemoryLimit,
			RecycleInterval:  cfg.Browser.RecycleInterval,
			ResourceBlocking: cfg.Browser.ResourceBlocking,
			Mode:             mode,
			XvfbDisplay:      cfg.Browser.XvfbDisplay,
			NavigateTimeout:  cfg.Browser.NavigateTimeout,
			Logger:           logger,
		}),
		clock:  retry.RealClock(),
		newID:  idgen.Session,
		logger: logger,
	}
	r.open = r.openTab
	for _, fn := range opts {
		fn(r)
	}
	if len(r.sinks) == 0 {
		r.sinks = []Sink{NewStdoutSink(nil)}
	}
	r.sinkR = sink.NewRouter(logger, r.sinks...)

	if cfg.Store.Path != "" {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("panelread: open store: %w", err)
		}
		r.store = s
	}
	return r, nil
}

// Start launches the browser, or connects to the remote one.
func (r *Reader) Start(ctx context.Context) error {
	if err := r.mgr.Start(ctx); err != nil {
		return fmt.Errorf("panelread: start browser: %w", err)
	}
	return nil
}

// Stop closes the sinks, the history and the browser.
func (r *Reader) Stop() error {
	var errs []error
	if err := r.sinkR.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.mgr.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Panels returns the configured panels.
func (r *Reader) Panels() []PanelConfig {
	return r.cfg.Panels
}

// HTTPAddr is the configured listen address of the HTTP API.
func (r *Reader) HTTPAddr() string {
	return r.cfg.HTTP.Addr
}

// Read runs one read session on the named panel.
func (r *Reader) Read(ctx context.Context, panel string) (*readout.Result, error) {
	p, ok := r.cfg.Panel(panel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPanel, panel)
	}

	port, release, err := r.open(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("panelread: open %s: %w", p.Name, err)
	}
	defer func() {
		if release == nil {
			return
		}
		if err := release(); err != nil {
			r.logger.Warn("panelread: release port", "panel", p.Name, "error", err)
		}
	}()

	return r.ReadPort(ctx, port, p)
}

func (r *Reader) openTab(ctx context.Context, p PanelConfig) (domport.Port, func() error, error) {
	tab, err := r.mgr.OpenTab(ctx, p.URL)
	if err != nil {
		return nil, nil, err
	}
	port := rodport.New(tab.Page,
		rodport.WithPoll(r.cfg.Timing.RenderPoll),
		rodport.WithLogger(r.logger),
	)
	release := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(port.Release(ctx), tab.Close())
	}
	return port, release, nil
}

// ReadError reports a failed read session. Its Kind is what sinks and the
// history record.
type ReadError struct {
	Session string
	Panel   string
	Kind    readout.ErrorKind
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("panelread: read %s (session %s): %v", e.Panel, e.Session, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ErrorKindOf classifies a read error.
func ErrorKindOf(err error) readout.ErrorKind {
	var (
		parity   *collect.BufferParityError
		mismatch *assemble.StructuralMismatchError
	)
	switch {
	case errors.Is(err, domport.ErrRenderTimeout):
		return readout.ErrRenderTimeout
	case errors.As(err, &parity):
		return readout.ErrBufferParity
	case errors.As(err, &mismatch):
		return readout.ErrStructuralMismatch
	default:
		return readout.ErrOther
	}
}

// ReadPort runs one read session on an already opened port. On failure no
// table is emitted: sinks get a Failure and the error is a *ReadError.
func (r *Reader) ReadPort(ctx context.Context, port domport.Port, p PanelConfig) (*readout.Result, error) {
	id := r.newID()
	ctx = kit.WithSession(ctx, id)
	start := r.clock.Now()
	log := r.logger.With(kit.Attrs(ctx)...).With("panel", p.Name)
	log.InfoContext(ctx, "panelread: read started", "kind", p.Kind, "url", p.URL)

	tbl, err := r.collect(ctx, port, p, id, log)
	elapsed := r.clock.Now().Sub(start).Milliseconds()

	if err != nil {
		f := readout.Failure{
			ID:        id,
			Panel:     p.Name,
			Kind:      readout.Kind(p.Kind),
			PageURL:   p.URL,
			ErrorKind: ErrorKindOf(err),
			Error:     err.Error(),
			StartedAt: start.UnixMilli(),
			Duration:  elapsed,
		}
		log.WarnContext(ctx, "panelread: read failed", "error_kind", f.ErrorKind, "error", err)
		r.persist(ctx, &store.Session{
			ID:         id,
			Panel:      p.Name,
			Kind:       p.Kind,
			PageURL:    p.URL,
			Status:     store.StatusFailed,
			ErrorKind:  string(f.ErrorKind),
			Error:      f.Error,
			StartedAt:  f.StartedAt,
			DurationMS: elapsed,
		}, nil)
		r.sinkR.SendFailure(ctx, f)
		return nil, &ReadError{Session: id, Panel: p.Name, Kind: f.ErrorKind, Err: err}
	}

	res := readout.Result{
		ID:        id,
		Panel:     p.Name,
		Kind:      readout.Kind(p.Kind),
		PageURL:   p.URL,
		Header:    tbl.Header,
		Records:   tbl.Records,
		Rows:      tbl.Maps(),
		Hash:      readout.HashTable(tbl.Header, tbl.Records),
		Ragged:    len(tbl.Mismatches()),
		StartedAt: start.UnixMilli(),
		Duration:  elapsed,
	}
	if res.Records == nil {
		res.Records = [][]string{}
	}
	res.Unchanged = r.unchanged(ctx, p.Name, res.Hash, log)
	log.InfoContext(ctx, "panelread: read complete",
		"records", len(res.Records), "ragged", res.Ragged, "unchanged", res.Unchanged, "duration_ms", elapsed)

	r.persist(ctx, &store.Session{
		ID:          id,
		Panel:       p.Name,
		Kind:        p.Kind,
		PageURL:     p.URL,
		Status:      store.StatusOK,
		Header:      res.Header,
		Ragged:      res.Ragged,
		ContentHash: res.Hash,
		StartedAt:   res.StartedAt,
		DurationMS:  elapsed,
	}, res.Records)
	r.sinkR.SendResult(ctx, res)
	return &res, nil
}

// collect runs the panel's collector and assembles its rows.
func (r *Reader) collect(ctx context.Context, port domport.Port, p PanelConfig, session string, log *slog.Logger) (*assemble.Table, error) {
	opts := []collect.Option{collect.WithClock(r.clock), collect.WithLogger(log)}

	var rows [][]string
	switch p.Kind {
	case string(readout.KindGrid):
		g := collect.NewGrid(port, gridConfig(p.Grid, r.cfg.Timing), opts...)
		header, err := g.Header(ctx)
		if err != nil {
			return nil, err
		}
		if rows, err = g.Collect(ctx); err != nil {
			return nil, err
		}
		if header != nil {
			rows = append([][]string{header}, rows...)
		}
	case string(readout.KindEditor):
		ec, err := editorConfig(p.Editor, r.cfg.Timing, session)
		if err != nil {
			return nil, err
		}
		if rows, err = collect.NewEditor(port, ec, opts...).Collect(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("panelread: panel %s: unknown kind %q", p.Name, p.Kind)
	}

	tbl, err := assemble.Assemble(rows)
	if err != nil {
		return nil, err
	}
	policy, err := assemble.ParsePolicy(p.Ragged)
	if err != nil {
		return nil, err
	}
	return tbl.Apply(policy)
}

// unchanged reports whether hash matches the panel's last successful read
// in the history. Lookup failures count as changed.
func (r *Reader) unchanged(ctx context.Context, panel, hash string, log *slog.Logger) bool {
	if r.store == nil {
		return false
	}
	prev, err := r.store.LastHash(ctx, panel)
	if err != nil {
		log.WarnContext(ctx, "panelread: previous hash lookup", "error", err)
		return false
	}
	return prev != "" && prev == hash
}

// persist records the session in the history, when one is configured.
// History failures are logged; they never fail the read.
func (r *Reader) persist(ctx context.Context, sess *store.Session, records [][]string) {
	if r.store == nil {
		return
	}
	if err := r.store.InsertSession(ctx, sess, records); err != nil {
		r.logger.Error("panelread: persist session", "session", sess.ID, "error", err)
	}
}

// Sessions lists recent read sessions, newest first. panel "" lists all.
func (r *Reader) Sessions(ctx context.Context, panel string, limit int) ([]*store.Session, error) {
	if r.store == nil {
		return nil, ErrNoHistory
	}
	return r.store.ListSessions(ctx, panel, limit)
}

// SessionDetail is a stored session with its records.
type SessionDetail struct {
	*store.Session
	Records [][]string `json:"records"`
}

// Session returns a stored session and its records, or nil when unknown.
func (r *Reader) Session(ctx context.Context, id string) (*SessionDetail, error) {
	if r.store == nil {
		return nil, ErrNoHistory
	}
	sess, err := r.store.GetSession(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	recs, err := r.store.Records(ctx, id)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = [][]string{}
	}
	return &SessionDetail{Session: sess, Records: recs}, nil
}

// Prune deletes sessions older than age from the history.
func (r *Reader) Prune(ctx context.Context, age time.Duration) (int64, error) {
	if r.store == nil {
		return 0, ErrNoHistory
	}
	return r.store.DeleteBefore(ctx, r.clock.Now().Add(-age).UnixMilli())
}

// ErrNoHistory is returned by history queries when no store is configured.
var ErrNoHistory = errors.New("panelread: no read history configured (store.path)")

func locator(l config.Locator) domport.Locator {
	return domport.Locator{Selector: l.Selector, HasText: l.HasText, Index: l.Index}
}

func derefSep(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func gridConfig(g *config.GridConfig, t config.TimingConfig) collect.GridConfig {
	return collect.GridConfig{
		Container:     locator(g.Container),
		Header:        locator(g.Header),
		HeaderTrim:    g.HeaderTrim,
		RowSelector:   g.RowSelector,
		IndexAttr:     g.IndexAttr,
		RowAtIndex:    g.RowAtIndex,
		KeyAttr:       g.KeyAttr,
		TrimAffix:     g.TrimAffix,
		FieldSep:      derefSep(g.FieldSep),
		StepFraction:  g.StepFraction,
		Settle:        t.Settle,
		RenderTimeout: t.RenderTimeout,
	}
}

// editorConfig names the page-side buffers after the session so concurrent
// reads on one page never share a buffer.
func editorConfig(e *config.EditorConfig, t config.TimingConfig, session string) (collect.EditorConfig, error) {
	mode, err := collect.ParseMarkerMode(e.MarkerMode)
	if err != nil {
		return collect.EditorConfig{}, err
	}
	return collect.EditorConfig{
		Content:        locator(e.Content),
		ReadyText:      e.ReadyText,
		LineSelector:   e.LineSelector,
		Markers:        locator(e.Markers),
		MarkerSelector: e.MarkerSelector,
		MarkerMode:     mode,
		FieldSep:       derefSep(e.FieldSep),
		ContentBuffer:  session + "-content",
		MarkerBuffer:   session + "-markers",
		StepFraction:   e.StepFraction,
		Settle:         t.Settle,
		ParityAttempts: t.ParityAttempts,
		ParityBackoff:  t.ParityBackoff,
		RenderTimeout:  t.RenderTimeout,
	}, nil
}
