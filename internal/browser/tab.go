package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is one page opened for a read session.
type Tab struct {
	Page    *rod.Page
	PageURL string

	mgr  *Manager
	once sync.Once
}

// OpenTab creates a new tab, navigates to pageURL and waits for the load
// event. The tab counts as in use until Close.
func (m *Manager) OpenTab(ctx context.Context, pageURL string) (*Tab, error) {
	b, err := m.acquire()
	if err != nil {
		return nil, err
	}
	tab := &Tab{PageURL: pageURL, mgr: m}

	var page *rod.Page
	if m.cfg.Mode == ModeHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	tab.Page = page

	if len(m.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, m.cfg.ResourceBlocking); err != nil {
			m.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		// Virtualized panels keep streaming after load; collectors wait for
		// their own elements.
		m.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	m.cfg.Logger.Debug("browser: tab opened", "url", pageURL)
	return tab, nil
}

// Close closes the page and releases the tab. It is safe to call twice.
func (t *Tab) Close() error {
	var err error
	t.once.Do(func() {
		if t.Page != nil {
			err = t.Page.Close()
		}
		t.mgr.release()
	})
	return err
}
