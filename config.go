package panelread

import (
	"github.com/hazyhaar/panelread/internal/config"
)

// Config is the top-level panelread configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// TimingConfig holds render waits, settle pauses and parity budgets.
type TimingConfig = config.TimingConfig

// PanelConfig defines one panel to read.
type PanelConfig = config.PanelConfig

// GridConfig describes a grid panel.
type GridConfig = config.GridConfig

// EditorConfig describes an editor panel.
type EditorConfig = config.EditorConfig

// Locator addresses an element.
type Locator = config.Locator

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ParseConfig decodes YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}
