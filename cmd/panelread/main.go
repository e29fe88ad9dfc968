// Command panelread reads tables out of virtualized web panels.
//
// Usage:
//
//	panelread read accounts               # read one panel, emit to the configured sinks
//	panelread panels                      # list configured panels
//	panelread sessions --panel accounts   # read history
//	panelread serve                       # HTTP API
//	panelread mcp                         # MCP over stdio
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/panelread"
)

var (
	configPath string
	logLevel   string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "panelread",
	Short: "Read tables out of virtualized web panels",
	Long: `panelread opens a virtualized grid or text editor in Chrome, scrolls it
from top to bottom and reconciles every rendered window into one ordered,
deduplicated table.

Panels, browser, sinks and the read history are configured in YAML.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(logLevel)}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "panelread.yaml", "path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(readCmd, panelsCmd, sessionsCmd, pruneCmd, serveCmd, mcpCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("panelread: fatal", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newReader loads the configuration and builds a Reader emitting to the
// configured sinks.
func newReader(opts ...panelread.Option) (*panelread.Reader, error) {
	cfg, err := panelread.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	sinks, err := panelread.SinksFromConfig(cfg, os.Stdout, logger)
	if err != nil {
		return nil, err
	}
	return panelread.New(cfg, logger, append([]panelread.Option{panelread.WithSinks(sinks...)}, opts...)...)
}
