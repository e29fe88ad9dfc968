package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var readCmd = &cobra.Command{
	Use:   "read <panel>...",
	Short: "Read panels and emit their tables to the configured sinks",
	Long: `Read each named panel once, in order. Every read emits exactly one result
or one failure to the sinks. The command fails if any read failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRead,
}

var panelsCmd = &cobra.Command{
	Use:   "panels",
	Short: "List configured panels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReader()
		if err != nil {
			return err
		}
		defer r.Stop()
		return printJSON(r.PanelInfos())
	},
}

var (
	sessionsPanel string
	sessionsLimit int
	sessionsID    string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show the read history",
	Long:  `List past read sessions, newest first, or show one session with its records (--id).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReader()
		if err != nil {
			return err
		}
		defer r.Stop()

		if sessionsID != "" {
			d, err := r.Session(cmd.Context(), sessionsID)
			if err != nil {
				return err
			}
			if d == nil {
				return fmt.Errorf("session %q not found", sessionsID)
			}
			return printJSON(d)
		}
		list, err := r.Sessions(cmd.Context(), sessionsPanel, sessionsLimit)
		if err != nil {
			return err
		}
		return printJSON(list)
	},
}

var pruneAge time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old sessions from the read history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReader()
		if err != nil {
			return err
		}
		defer r.Stop()

		n, err := r.Prune(cmd.Context(), pruneAge)
		if err != nil {
			return err
		}
		logger.Info("panelread: pruned history", "sessions", n, "older_than", pruneAge)
		return nil
	},
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve panelread tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, err := newReader()
		if err != nil {
			return err
		}
		defer r.Stop()
		if err := r.Start(ctx); err != nil {
			return err
		}

		srv := mcp.NewServer(&mcp.Implementation{Name: "panelread", Version: "1.0.0"}, nil)
		r.RegisterMCP(srv)
		return srv.Run(ctx, &mcp.StdioTransport{})
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsPanel, "panel", "", "only sessions of this panel")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 50, "max sessions")
	sessionsCmd.Flags().StringVar(&sessionsID, "id", "", "show one session with its records")

	pruneCmd.Flags().DurationVar(&pruneAge, "older-than", 30*24*time.Hour, "delete sessions started before now minus this duration")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: http.addr from the configuration)")
}

func runRead(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	r, err := newReader()
	if err != nil {
		return err
	}
	defer r.Stop()

	if err := r.Start(ctx); err != nil {
		return err
	}

	var errs []error
	for _, name := range args {
		res, err := r.Read(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info("panelread: panel read", "panel", name, "session", res.ID, "records", len(res.Records), "hash", res.Hash)
	}
	return errors.Join(errs...)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	r, err := newReader()
	if err != nil {
		return err
	}
	defer r.Stop()
	if err := r.Start(ctx); err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = r.HTTPAddr()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("panelread: http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
