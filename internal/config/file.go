// Package config handles panelread configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/panelread/assemble"
	"github.com/hazyhaar/panelread/collect"
)

// Config is the top-level panelread configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Timing  TimingConfig  `yaml:"timing"`
	Panels  []PanelConfig `yaml:"panels"`
	Sinks   []SinkConfig  `yaml:"sinks"`
	Store   StoreConfig   `yaml:"store"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Bin              string        `yaml:"bin"`
	UserDataDir      string        `yaml:"user_data_dir"` // Chrome profile to reuse (logged-in sessions)
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          string        `yaml:"stealth"` // headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
}

// TimingConfig holds the fixed waits and attempt budgets of a read.
type TimingConfig struct {
	RenderTimeout  time.Duration `yaml:"render_timeout"`
	RenderPoll     time.Duration `yaml:"render_poll"`
	Settle         time.Duration `yaml:"settle"`
	ParityAttempts int           `yaml:"parity_attempts"`
	ParityBackoff  time.Duration `yaml:"parity_backoff"`
}

// PanelConfig defines one virtualized panel to read.
type PanelConfig struct {
	Name   string        `yaml:"name"`
	URL    string        `yaml:"url"`
	Kind   string        `yaml:"kind"`   // grid | editor
	Ragged string        `yaml:"ragged"` // pass | pad | reject
	Grid   *GridConfig   `yaml:"grid"`
	Editor *EditorConfig `yaml:"editor"`
}

// GridConfig describes an index-addressable grid panel.
type GridConfig struct {
	Container    Locator `yaml:"container"`
	Header       Locator `yaml:"header"`
	HeaderTrim   string  `yaml:"header_trim"`
	RowSelector  string  `yaml:"row_selector"`
	IndexAttr    string  `yaml:"index_attr"`
	RowAtIndex   string  `yaml:"row_at_index"`
	KeyAttr      string  `yaml:"key_attr"`
	TrimAffix    string  `yaml:"trim_affix"`
	FieldSep     *string `yaml:"field_sep"`
	StepFraction float64 `yaml:"step_fraction"`
}

// EditorConfig describes a virtualized text editor panel.
type EditorConfig struct {
	Content        Locator `yaml:"content"`
	ReadyText      string  `yaml:"ready_text"`
	LineSelector   string  `yaml:"line_selector"`
	Markers        Locator `yaml:"markers"`
	MarkerSelector string  `yaml:"marker_selector"`
	MarkerMode     string  `yaml:"marker_mode"` // terminates | starts
	FieldSep       *string `yaml:"field_sep"`
	StepFraction   float64 `yaml:"step_fraction"`
}

// Locator addresses an element. In YAML it is either a bare selector
// string or a mapping with selector, has_text and index.
type Locator struct {
	Selector string `yaml:"selector"`
	HasText  string `yaml:"has_text"`
	Index    int    `yaml:"index"`
}

// UnmarshalYAML accepts the scalar shorthand.
func (l *Locator) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		l.Selector = n.Value
		return nil
	}
	type plain Locator
	return n.Decode((*plain)(l))
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type   string `yaml:"type"`   // stdout | webhook
	URL    string `yaml:"url"`    // for webhook
	Format string `yaml:"format"` // for stdout: envelope (default) | records
}

// StoreConfig enables the read history database.
type StoreConfig struct {
	Path string `yaml:"path"` // empty = no history
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr       string        `yaml:"addr"`
	ReadLimit  int           `yaml:"read_limit"`  // reads per client per window, 0 = unlimited
	ReadWindow time.Duration `yaml:"read_window"` // default 1m
}

// LoadFile reads a YAML configuration file, applies defaults and validates.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset knob.
func (c *Config) ApplyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}

	if c.Timing.RenderTimeout <= 0 {
		c.Timing.RenderTimeout = 30 * time.Second
	}
	if c.Timing.RenderPoll <= 0 {
		c.Timing.RenderPoll = 500 * time.Millisecond
	}
	if c.Timing.Settle <= 0 {
		c.Timing.Settle = 500 * time.Millisecond
	}
	if c.Timing.ParityAttempts <= 0 {
		c.Timing.ParityAttempts = 5
	}
	if c.Timing.ParityBackoff <= 0 {
		c.Timing.ParityBackoff = time.Second
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8750"
	}
	if c.HTTP.ReadWindow <= 0 {
		c.HTTP.ReadWindow = time.Minute
	}

	for i := range c.Panels {
		p := &c.Panels[i]
		if p.Ragged == "" {
			p.Ragged = string(assemble.PolicyPass)
		}
		if p.Kind == "" {
			switch {
			case p.Grid != nil && p.Editor == nil:
				p.Kind = "grid"
			case p.Editor != nil && p.Grid == nil:
				p.Kind = "editor"
			}
		}
		if p.Editor != nil {
			if m, err := collect.ParseMarkerMode(p.Editor.MarkerMode); err == nil {
				p.Editor.MarkerMode = string(m)
			}
		}
	}
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Panels))

	for i, p := range c.Panels {
		where := fmt.Sprintf("panels[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("config: %s: name is required", where))
		} else {
			where = fmt.Sprintf("panel %q", p.Name)
			if seen[p.Name] {
				errs = append(errs, fmt.Errorf("config: %s: duplicate name", where))
			}
			seen[p.Name] = true
		}
		if _, err := assemble.ParsePolicy(p.Ragged); err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", where, err))
		}

		switch p.Kind {
		case "grid":
			if p.Grid == nil || p.Grid.Container.Selector == "" {
				errs = append(errs, fmt.Errorf("config: %s: grid.container is required", where))
			}
			if p.Grid != nil && (p.Grid.StepFraction < 0 || p.Grid.StepFraction > 1) {
				errs = append(errs, fmt.Errorf("config: %s: grid.step_fraction must be in (0, 1]", where))
			}
		case "editor":
			if p.Editor == nil || p.Editor.Content.Selector == "" {
				errs = append(errs, fmt.Errorf("config: %s: editor.content is required", where))
				break
			}
			if _, err := collect.ParseMarkerMode(p.Editor.MarkerMode); err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", where, err))
			}
			if p.Editor.StepFraction < 0 || p.Editor.StepFraction > 1 {
				errs = append(errs, fmt.Errorf("config: %s: editor.step_fraction must be in (0, 1]", where))
			}
		default:
			errs = append(errs, fmt.Errorf("config: %s: kind %q must be grid or editor", where, p.Kind))
		}
	}

	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
			if s.Format != "" && s.Format != "envelope" && s.Format != "records" {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: unknown stdout format %q", i, s.Format))
			}
		case "webhook":
			if s.URL == "" {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: webhook needs a url", i))
			}
		default:
			errs = append(errs, fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type))
		}
	}

	if c.HTTP.ReadLimit < 0 {
		errs = append(errs, fmt.Errorf("config: http.read_limit must not be negative"))
	}

	switch c.Browser.Stealth {
	case "headless", "headful":
	default:
		errs = append(errs, fmt.Errorf("config: browser.stealth %q must be headless or headful", c.Browser.Stealth))
	}
	return errors.Join(errs...)
}

// Panel returns the named panel.
func (c *Config) Panel(name string) (PanelConfig, bool) {
	for _, p := range c.Panels {
		if p.Name == name {
			return p, true
		}
	}
	return PanelConfig{}, false
}
