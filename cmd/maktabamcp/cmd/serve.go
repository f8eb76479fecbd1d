package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/maktabalab/maktabamcp/internal/config"
	"github.com/maktabalab/maktabamcp/internal/ingest"
	"github.com/maktabalab/maktabamcp/internal/logging"
	mcpserver "github.com/maktabalab/maktabamcp/internal/mcp"
)

type serveOptions struct {
	transport string
	watch     bool
	offline   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server over stdio.

The server exposes hybrid_search, get_hadith, and corpus_status tools.
With --watch, changed book files are re-ingested while serving.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport: stdio (default from config)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-ingest book files when they change")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (no embedding service)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	transport := opts.transport
	if transport == "" {
		transport = cfg.Server.Transport
	}

	// Over stdio the protocol owns stdout and clients commonly discard
	// stderr, so logs go to the rotating file instead.
	if transport == "stdio" && !debugMode {
		cleanup, err := logging.SetupMCPMode()
		if err != nil {
			return fmt.Errorf("setup server logging: %w", err)
		}
		defer cleanup()
	}

	stack, err := openSearchStack(ctx, cfg, opts.offline)
	if err != nil {
		return err
	}
	defer stack.Close()

	srv, err := mcpserver.NewServer(stack.engine, stack.docs, stack.lexical, stack.vector, stack.embedder, cfg)
	if err != nil {
		return err
	}
	if cfg.Telemetry.Enabled {
		srv.SetMetrics(stack.metrics)
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if opts.watch {
		if err := startWatcher(watchCtx, cfg, stack); err != nil {
			return err
		}
	}

	return srv.Serve(ctx, transport)
}

// startWatcher launches background re-ingestion of changed book files.
func startWatcher(ctx context.Context, cfg *config.Config, stack *searchStack) error {
	if len(cfg.Collections) == 0 {
		return fmt.Errorf("--watch requires collections in the config")
	}

	ingester, err := ingest.NewIngester(stack.docs, stack.lexical, stack.vector, stack.embedder, ingest.Options{
		Workers:        cfg.Ingest.Workers,
		LockPath:       cfg.LockPath(),
		VectorSavePath: cfg.VectorIndexPath(),
	})
	if err != nil {
		return err
	}

	debounce, err := time.ParseDuration(cfg.Ingest.WatchDebounce)
	if err != nil {
		debounce = ingest.DefaultDebounce
	}

	watcher, err := ingest.NewWatcher(ingester, cfg.Collections, debounce)
	if err != nil {
		return err
	}

	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()
	slog.Info("watching book files", slog.Int("collections", len(cfg.Collections)))
	return nil
}
