package collect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hazyhaar/panelread/domport"
	"github.com/hazyhaar/panelread/retry"
)

// GridConfig describes an index-addressable virtualized grid.
type GridConfig struct {
	// Container is the scrollable viewport holding the rows.
	Container domport.Locator
	// Header is the viewport holding the column titles. Optional.
	Header domport.Locator
	// HeaderTrim is stripped from both edges of the header text.
	HeaderTrim string

	// RowSelector matches every rendered row inside Container.
	RowSelector string
	// IndexAttr carries the row's position in the full table.
	IndexAttr string
	// RowAtIndex is a selector template with an {index} placeholder that
	// addresses one row. Default: RowSelector[IndexAttr='{index}'].
	RowAtIndex string
	// KeyAttr, when set, names an attribute used as the row identity
	// instead of its rendered text.
	KeyAttr string

	// TrimAffix is stripped from both edges of every row text.
	TrimAffix string
	// FieldSep splits a row text into fields. Default "\n".
	FieldSep string

	// StepFraction of the visible height scrolled per window. Default 1/3.
	StepFraction float64
	// Settle is the pause after each scroll. Default 500ms.
	Settle        time.Duration
	RenderTimeout time.Duration
}

func (c *GridConfig) defaults() {
	if c.RowSelector == "" {
		c.RowSelector = ".row"
	}
	if c.IndexAttr == "" {
		c.IndexAttr = "row-index"
	}
	if c.RowAtIndex == "" {
		c.RowAtIndex = c.RowSelector + "[" + c.IndexAttr + "='{index}']"
	}
	if c.FieldSep == "" {
		c.FieldSep = "\n"
	}
	if c.StepFraction <= 0 {
		c.StepFraction = 1.0 / 3
	}
	if c.Settle <= 0 {
		c.Settle = defaultSettle
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = defaultRenderTimeout
	}
}

// GridCollector reads a virtualized grid from top to bottom.
type GridCollector struct {
	port domport.Port
	cfg  GridConfig
	opts options
}

// NewGrid creates a GridCollector reading through port.
func NewGrid(port domport.Port, cfg GridConfig, opts ...Option) *GridCollector {
	cfg.defaults()
	return &GridCollector{port: port, cfg: cfg, opts: buildOptions(opts)}
}

// Header reads the column titles. It returns nil when no header viewport
// is configured.
func (g *GridCollector) Header(ctx context.Context) ([]string, error) {
	if g.cfg.Header.Selector == "" {
		return nil, nil
	}
	el, err := g.port.WaitAttached(ctx, g.cfg.Header, g.cfg.RenderTimeout)
	if err != nil {
		return nil, fmt.Errorf("collect: grid header: %w", err)
	}
	text, err := g.port.ReadText(ctx, el)
	if err != nil {
		return nil, fmt.Errorf("collect: grid header: read: %w", err)
	}
	return HeaderFields(text, g.cfg.HeaderTrim), nil
}

// Collect scrolls the grid from its current position to the bottom and
// returns every distinct row, split into fields, in first-observed order.
func (g *GridCollector) Collect(ctx context.Context) ([][]string, error) {
	log := g.opts.logger
	p := g.port

	container, err := p.WaitAttached(ctx, g.cfg.Container, g.cfg.RenderTimeout)
	if err != nil {
		return nil, fmt.Errorf("collect: grid container: %w", err)
	}

	rows := NewDeduper()
	rowNum := 0

	for window := 1; ; window++ {
		// The row at rowNum attaching means the viewport rendered up to it.
		sel, err := domport.Expand(g.cfg.RowAtIndex, map[string]string{"index": strconv.Itoa(rowNum)})
		if err != nil {
			return nil, err
		}
		if _, err := p.WaitAttached(ctx, domport.Locator{Within: container, Selector: sel}, g.cfg.RenderTimeout); err != nil {
			return nil, fmt.Errorf("collect: grid row %d: %w", rowNum, err)
		}

		added, seen, err := g.readWindow(ctx, container, rows)
		if err != nil {
			return nil, err
		}
		log.DebugContext(ctx, "collect: grid window read",
			"window", window, "row_index", rowNum, "rendered", seen, "new", added, "total", rows.Len())

		end, err := p.IsScrolledToEnd(ctx, container)
		if err != nil {
			return nil, fmt.Errorf("collect: grid: bottom check: %w", err)
		}
		if end {
			break
		}

		height, err := p.ClientHeight(ctx, container)
		if err != nil {
			return nil, fmt.Errorf("collect: grid: viewport height: %w", err)
		}
		if err := p.ScrollBy(ctx, container, height*g.cfg.StepFraction); err != nil {
			return nil, fmt.Errorf("collect: grid: scroll: %w", err)
		}

		next, err := g.lastIndex(ctx, container)
		if err != nil {
			return nil, err
		}
		if next >= 0 {
			rowNum = next
		}

		if err := retry.Pause(ctx, g.opts.clock, g.cfg.Settle); err != nil {
			return nil, fmt.Errorf("collect: grid: %w", err)
		}
	}

	log.InfoContext(ctx, "collect: grid read complete", "rows", rows.Len())
	return rows.Rows(), nil
}

// readWindow fingerprints every rendered row and records the new ones.
func (g *GridCollector) readWindow(ctx context.Context, container domport.Element, rows *Deduper) (added, seen int, err error) {
	els, err := g.port.QueryVisible(ctx, container, g.cfg.RowSelector)
	if err != nil {
		return 0, 0, fmt.Errorf("collect: grid: query rows: %w", err)
	}
	for _, el := range els {
		raw, err := g.port.ReadText(ctx, el)
		if err != nil {
			return added, seen, fmt.Errorf("collect: grid: read row: %w", err)
		}
		text := gridRowText(raw, g.cfg.TrimAffix)
		if text == "" {
			// Placeholder row not painted yet.
			continue
		}
		seen++

		key := text
		if g.cfg.KeyAttr != "" {
			v, ok, err := g.port.AttributeOf(ctx, el, g.cfg.KeyAttr)
			if err != nil {
				return added, seen, fmt.Errorf("collect: grid: row key: %w", err)
			}
			if ok {
				key = g.cfg.KeyAttr + "=" + v
			}
		}
		if rows.Add(key, SplitFields(text, g.cfg.FieldSep)) {
			added++
		}
	}
	return added, seen, nil
}

var errNoIndex = errors.New("collect: grid: last rendered row has no index")

// lastIndex reads the index attribute of the last rendered row. It returns
// -1 when no row is rendered or the attribute is absent.
func (g *GridCollector) lastIndex(ctx context.Context, container domport.Element) (int, error) {
	els, err := g.port.QueryVisible(ctx, container, g.cfg.RowSelector)
	if err != nil {
		return 0, fmt.Errorf("collect: grid: query rows: %w", err)
	}
	if len(els) == 0 {
		return -1, nil
	}
	v, ok, err := g.port.AttributeOf(ctx, els[len(els)-1], g.cfg.IndexAttr)
	if err != nil {
		return 0, fmt.Errorf("collect: grid: read %s: %w", g.cfg.IndexAttr, err)
	}
	if !ok {
		g.opts.logger.WarnContext(ctx, "collect: grid: keeping previous row index", "error", errNoIndex)
		return -1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("collect: grid: %s %q: %w", g.cfg.IndexAttr, v, err)
	}
	return n, nil
}
