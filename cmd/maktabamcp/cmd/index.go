package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maktabalab/maktabamcp/internal/config"
	"github.com/maktabalab/maktabamcp/internal/embed"
	"github.com/maktabalab/maktabamcp/internal/ingest"
	"github.com/maktabalab/maktabamcp/internal/store"
	"github.com/maktabalab/maktabamcp/internal/ui"
)

type indexOptions struct {
	force   bool
	offline bool
	workers int
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Ingest hadith collections into the search indexes",
		Long: `Ingest configured collections: load and validate book JSONL files,
store documents, build the full-text index, and embed for semantic search.

Unchanged records (by checksum) are skipped. Use --force to rebuild.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Re-index all records, ignoring checksums")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (no embedding service)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Embedding worker count (default from config)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Collections) == 0 {
		return fmt.Errorf("no collections configured. Add a collections block to .maktabamcp.yaml")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	renderer := ui.NewRenderer(ui.Config{Output: cmd.OutOrStdout()})

	docs, err := store.NewSQLiteDocumentStore(cfg.DocumentStorePath())
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() { _ = docs.Close() }()

	lexical, err := store.NewBleveLexicalIndex(cfg.LexicalIndexPath())
	if err != nil {
		return fmt.Errorf("open lexical index: %w", err)
	}
	defer func() { _ = lexical.Close() }()

	fc, err := factoryConfig(cfg, opts.offline)
	if err != nil {
		return err
	}
	embedder, err := embed.NewEmbedder(ctx, fc)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	vector, err := openOrCreateVectorIndex(ctx, cfg, docs, embedder, opts.force)
	if err != nil {
		return err
	}
	defer func() { _ = vector.Close() }()

	workers := opts.workers
	if workers == 0 {
		workers = cfg.Ingest.Workers
	}
	ingester, err := ingest.NewIngester(docs, lexical, vector, embedder, ingest.Options{
		Workers:        workers,
		BatchSize:      cfg.Embeddings.BatchSize,
		LockPath:       cfg.LockPath(),
		VectorSavePath: cfg.VectorIndexPath(),
	})
	if err != nil {
		return err
	}

	for _, col := range cfg.Collections {
		renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageLoading, Collection: col.Name})
	}

	results, err := ingester.Ingest(ctx, cfg.Collections, opts.force)
	if err != nil {
		renderer.AddError(ui.ErrorEvent{Err: err})
		return err
	}

	stats := ui.CompletionStats{}
	for _, res := range results {
		stats.Books += res.Books
		stats.Documents += res.Indexed
		stats.Skipped += res.Skipped
		stats.Duration += res.Duration
		stats.Warnings += len(res.Warnings)
		for _, warning := range res.Warnings {
			renderer.AddError(ui.ErrorEvent{Source: res.Collection, Err: fmt.Errorf("%s", warning), IsWarn: true})
		}
	}

	info := embed.GetInfo(embedder)
	stats.Embedder = ui.EmbedderInfo{
		Provider:   info.Provider,
		Model:      info.Model,
		Dimensions: info.Dimensions,
	}

	renderer.Complete(stats)
	return nil
}

// openOrCreateVectorIndex opens the persisted vector index for the active
// embedder, creating a fresh one when absent. A dimension change requires
// --force, which rebuilds from scratch.
func openOrCreateVectorIndex(ctx context.Context, cfg *config.Config, docs store.DocumentStore, embedder embed.Embedder, force bool) (store.VectorIndex, error) {
	dims := embedder.Dimensions()
	path := cfg.VectorIndexPath()

	vector, err := store.NewHNSWVectorIndex(store.DefaultVectorIndexConfig(dims))
	if err != nil {
		return nil, err
	}

	if !fileExists(path) {
		return vector, nil
	}
	if force {
		// Rebuilding: ignore the persisted index.
		return vector, nil
	}

	if stateDim, err := docs.GetState(ctx, store.StateKeyIndexDimension); err == nil && stateDim != "" && stateDim != fmt.Sprint(dims) {
		_ = vector.Close()
		return nil, fmt.Errorf("index was built with %s-dimension embeddings, current embedder produces %d. Run 'maktabamcp index --force'", stateDim, dims)
	}

	if err := vector.Load(path); err != nil {
		_ = vector.Close()
		return nil, fmt.Errorf("load vector index: %w", err)
	}
	return vector, nil
}
