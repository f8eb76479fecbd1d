package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/maktabalab/maktabamcp/internal/config"
	"github.com/maktabalab/maktabamcp/internal/embed"
	"github.com/maktabalab/maktabamcp/internal/search"
	"github.com/maktabalab/maktabamcp/internal/store"
	"github.com/maktabalab/maktabamcp/internal/telemetry"
)

// loadConfig loads configuration from the working directory, applying the
// --data-dir override.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	return cfg, nil
}

// factoryConfig maps the embeddings config block onto the embedder factory.
// With offline set, the static embedder is forced regardless of config.
func factoryConfig(cfg *config.Config, offline bool) (embed.FactoryConfig, error) {
	fc := embed.DefaultFactoryConfig()

	if offline {
		fc.Provider = embed.ProviderStatic
		return fc, nil
	}

	provider, err := embed.ParseProvider(cfg.Embeddings.Provider)
	if err != nil {
		return fc, err
	}
	fc.Provider = provider

	if cfg.Embeddings.OllamaHost != "" {
		fc.Ollama.Host = cfg.Embeddings.OllamaHost
	}
	if cfg.Embeddings.OpenAIBaseURL != "" {
		fc.OpenAI.BaseURL = cfg.Embeddings.OpenAIBaseURL
	}
	if cfg.Embeddings.Model != "" {
		switch provider {
		case embed.ProviderOpenAI:
			fc.OpenAI.Model = cfg.Embeddings.Model
		default:
			fc.Ollama.Model = cfg.Embeddings.Model
		}
	}
	if cfg.Embeddings.Dimensions > 0 {
		fc.Ollama.Dimensions = cfg.Embeddings.Dimensions
		fc.OpenAI.Dimensions = cfg.Embeddings.Dimensions
	}
	if cfg.Embeddings.BatchSize > 0 {
		fc.Ollama.BatchSize = cfg.Embeddings.BatchSize
		fc.OpenAI.BatchSize = cfg.Embeddings.BatchSize
	}
	if cfg.Embeddings.CacheSize > 0 {
		fc.CacheSize = cfg.Embeddings.CacheSize
	}
	return fc, nil
}

// searchStack holds the opened retrieval components. Close releases them in
// reverse order of construction.
type searchStack struct {
	docs     store.DocumentStore
	lexical  store.LexicalIndex
	vector   store.VectorIndex
	embedder embed.Embedder
	engine   *search.Engine
	metrics  *telemetry.QueryMetrics
}

func (s *searchStack) Close() {
	if s.vector != nil {
		_ = s.vector.Close()
	}
	if s.embedder != nil {
		_ = s.embedder.Close()
	}
	if s.lexical != nil {
		_ = s.lexical.Close()
	}
	if s.docs != nil {
		_ = s.docs.Close()
	}
}

// openSearchStack opens the stores and builds the hybrid engine. When the
// embedder's dimension disagrees with the indexed vectors, vector search is
// disabled and retrieval degrades to lexical-only.
func openSearchStack(ctx context.Context, cfg *config.Config, offline bool) (*searchStack, error) {
	if !fileExists(cfg.DocumentStorePath()) {
		return nil, fmt.Errorf("no corpus found at %s. Run 'maktabamcp index' first", cfg.DataDir)
	}

	s := &searchStack{}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	docs, err := store.NewSQLiteDocumentStore(cfg.DocumentStorePath())
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	s.docs = docs

	lexical, err := store.NewBleveLexicalIndex(cfg.LexicalIndexPath())
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}
	s.lexical = lexical

	fc, err := factoryConfig(cfg, offline)
	if err != nil {
		return nil, err
	}
	embedder, err := embed.NewEmbedder(ctx, fc)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	s.embedder = embedder

	var vecRetriever search.VectorRetriever = search.NullVectorRetriever{}
	vector, err := openVectorIndex(ctx, cfg, docs, embedder)
	if err != nil {
		slog.Warn("vector search disabled", slog.String("reason", err.Error()))
	} else if vector != nil {
		s.vector = vector
		vecRetriever, err = search.NewEmbeddingRetriever(embedder, vector)
		if err != nil {
			return nil, err
		}
	}

	s.metrics = telemetry.NewQueryMetricsWithConfig(telemetry.QueryMetricsConfig{
		TopTermsCapacity:      cfg.Telemetry.TopTerms,
		ZeroResultsCapacity:   cfg.Telemetry.ZeroResultBuffer,
		RecentQueriesCapacity: cfg.Telemetry.RecentQueries,
	})

	engineConfig := search.DefaultEngineConfig()
	if cfg.Search.MaxResults > 0 {
		engineConfig.DefaultLimit = cfg.Search.MaxResults
	}
	if cfg.Search.OverfetchFactor > 0 {
		engineConfig.OverfetchFactor = cfg.Search.OverfetchFactor
	}

	opts := []search.EngineOption{search.WithSynonymExpander(search.NewSynonymExpander())}
	if cfg.Telemetry.Enabled {
		opts = append(opts, search.WithMetrics(s.metrics))
	}

	engine, err := search.NewEngine(lexical, vecRetriever, engineConfig, opts...)
	if err != nil {
		return nil, err
	}
	s.engine = engine

	ok = true
	return s, nil
}

// openVectorIndex loads the persisted vector index when its dimension
// matches the active embedder. A missing index file returns (nil, nil).
func openVectorIndex(ctx context.Context, cfg *config.Config, docs store.DocumentStore, embedder embed.Embedder) (store.VectorIndex, error) {
	path := cfg.VectorIndexPath()
	if !fileExists(path) {
		return nil, nil
	}

	dims := embedder.Dimensions()
	if stateDim, err := docs.GetState(ctx, store.StateKeyIndexDimension); err == nil && stateDim != "" {
		indexed, err := strconv.Atoi(stateDim)
		if err == nil && indexed != dims {
			return nil, store.ErrDimensionMismatch{Expected: indexed, Got: dims}
		}
	}

	vector, err := store.NewHNSWVectorIndex(store.DefaultVectorIndexConfig(dims))
	if err != nil {
		return nil, err
	}
	if err := vector.Load(path); err != nil {
		_ = vector.Close()
		return nil, fmt.Errorf("load vector index: %w", err)
	}
	return vector, nil
}
