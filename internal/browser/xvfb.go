package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hazyhaar/panelread/retry"
)

// xvfbReady polls for the display socket before Chrome is pointed at it.
var xvfbReady = retry.Governor{Name: "xvfb socket", Attempts: 20, Interval: 100 * time.Millisecond}

// displaySocket maps ":99" to the X11 unix socket path.
func displaySocket(display string) (string, error) {
	n := strings.TrimPrefix(display, ":")
	if i := strings.IndexByte(n, '.'); i >= 0 {
		n = n[:i]
	}
	if n == "" || n == display {
		return "", fmt.Errorf("invalid display %q", display)
	}
	return "/tmp/.X11-unix/X" + n, nil
}

// startXvfb launches an Xvfb virtual display for headful mode and waits
// until it accepts connections.
func (m *Manager) startXvfb(ctx context.Context) error {
	if m.xvfb != nil {
		return nil
	}

	display := m.cfg.XvfbDisplay
	sock, err := displaySocket(display)
	if err != nil {
		return err
	}
	cmd := exec.Command("Xvfb", display, "-screen", "0", "1920x1080x24", "-ac")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb: %w", err)
	}
	m.xvfb = cmd

	err = xvfbReady.Do(ctx, func(int) error {
		if _, err := os.Stat(sock); err != nil {
			return retry.Transient(err)
		}
		return nil
	})
	if err != nil {
		m.stopXvfb()
		var ex *retry.ExhaustedError
		if errors.As(err, &ex) {
			return fmt.Errorf("xvfb display %s never came up: %w", display, ex.Err)
		}
		return err
	}

	m.cfg.Logger.Info("browser: xvfb started", "display", display, "pid", cmd.Process.Pid)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if m.xvfb.Process != nil {
		m.xvfb.Process.Kill()
		m.xvfb.Wait()
	}
	m.cfg.Logger.Info("browser: xvfb stopped", "display", m.cfg.XvfbDisplay)
	m.xvfb = nil
}
