package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	maktabaerrors "github.com/maktabalab/maktabamcp/internal/errors"
	"github.com/maktabalab/maktabamcp/internal/store"
	"github.com/maktabalab/maktabamcp/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// snippetLength is the maximum snippet size in runes.
const snippetLength = 240

// EngineConfig holds tunable engine parameters.
type EngineConfig struct {
	// DefaultLimit applies when a request leaves Limit at zero.
	DefaultLimit int

	// MaxLimit caps the requested result count.
	MaxLimit int

	// OverfetchFloor and OverfetchFactor size the candidate pool fetched
	// from each source: max(OverfetchFloor, limit*OverfetchFactor).
	OverfetchFloor  int
	OverfetchFactor int
}

// DefaultEngineConfig returns the standard engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:    10,
		MaxLimit:        50,
		OverfetchFloor:  50,
		OverfetchFactor: 5,
	}
}

// Engine runs hybrid retrieval: it routes the query to an intent, fans out to
// the lexical and vector sources in parallel, fuses candidates by document ID,
// scores them with mode weights, and ranks the result.
type Engine struct {
	lexical  LexicalRetriever
	vector   VectorRetriever
	config   EngineConfig
	metrics  *telemetry.QueryMetrics
	expander *SynonymExpander
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithMetrics sets an optional query metrics collector.
// When set, intent distribution, latency, and zero-result queries are tracked.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSynonymExpander sets an optional thematic synonym expander. When a
// request carries no explicit synonym groups, the expander derives them from
// the routed intent so coverage and proximity can credit related vocabulary.
func WithSynonymExpander(exp *SynonymExpander) EngineOption {
	return func(e *Engine) {
		e.expander = exp
	}
}

// NewEngine creates a hybrid search engine with the given retrievers.
// Returns an error if any required dependency is nil.
func NewEngine(lexical LexicalRetriever, vector VectorRetriever, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if lexical == nil {
		return nil, fmt.Errorf("%w: lexical retriever is required", ErrNilDependency)
	}
	if vector == nil {
		return nil, fmt.Errorf("%w: vector retriever is required", ErrNilDependency)
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultEngineConfig().DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = DefaultEngineConfig().MaxLimit
	}
	if config.OverfetchFloor <= 0 {
		config.OverfetchFloor = DefaultEngineConfig().OverfetchFloor
	}
	if config.OverfetchFactor <= 0 {
		config.OverfetchFactor = DefaultEngineConfig().OverfetchFactor
	}

	e := &Engine{
		lexical: lexical,
		vector:  vector,
		config:  config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search executes a hybrid search for the request.
//
// A single failed source degrades the search to the surviving source and is
// reported in Diagnostics. When both sources fail, the response carries zero
// hits and both diagnostics rather than an error: the caller can distinguish
// "nothing matched" from "nothing could be searched" by inspecting them.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, maktabaerrors.New(maktabaerrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}

	limit := req.Limit
	if limit == 0 {
		limit = e.config.DefaultLimit
	}
	if limit < 0 {
		return nil, maktabaerrors.New(maktabaerrors.ErrCodeInvalidLimit,
			fmt.Sprintf("limit must be positive, got %d", req.Limit), nil)
	}
	if limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}

	intent := Route(query)
	expr := BuildLexicalQuery(intent)

	mode := NormalizeMode(req.Mode)
	weights := WeightsForMode(mode).Merge(req.Overrides)
	scorer := NewScorer(weights)

	overfetch := e.config.OverfetchFloor
	if n := limit * e.config.OverfetchFactor; n > overfetch {
		overfetch = n
	}

	lexRows, vecHits, diags, err := e.parallelRetrieve(ctx, query, expr, overfetch)
	if err != nil {
		return nil, err
	}

	byID, order, vectorOnly := mergeCandidates(lexRows, vecHits)

	if err := backfillCandidates(ctx, e.lexical, byID, vectorOnly); err != nil {
		slog.Warn("candidate backfill failed, vector-only hits score without text",
			slog.String("error", err.Error()),
			slog.Int("count", len(vectorOnly)))
	}

	groups := req.SynonymGroups
	if len(groups) == 0 && e.expander != nil {
		groups = e.expander.Groups(intent)
	}

	// Zero means unset at the request level; negative windows clamp to 1
	// inside the scorer.
	nearWindow := req.NearWindow
	if nearWindow == 0 {
		nearWindow = DefaultNearWindow
	}

	hits := make([]Hit, 0, len(order))
	for _, docID := range order {
		c := byID[docID]
		breakdown := scorer.Score(intent, ScoreInputs{
			Text:             c.EnglishText,
			VectorSimilarity: c.VectorSimilarity,
			LexicalCost:      c.LexicalCost,
			SynonymGroups:    groups,
			NearWindow:       nearWindow,
		})
		hits = append(hits, Hit{
			DocID:     c.DocID,
			BookID:    c.BookID,
			ChapterID: c.ChapterID,
			Narrator:  c.Narrator,
			Snippet:   makeSnippet(c.EnglishText),
			Score:     breakdown.Total,
			Breakdown: breakdown,
		})
	}

	ranked := Rank(hits, limit)

	resp := &Response{
		Query:           query,
		Intent:          intent.Type,
		Mode:            mode,
		TotalCandidates: len(order),
		Hits:            ranked,
		Weights:         weights,
		Diagnostics:     diags,
	}

	e.recordMetrics(query, intent, resp, time.Since(start))

	slog.Debug("search complete",
		slog.String("intent", string(intent.Type)),
		slog.String("mode", mode),
		slog.Int("candidates", len(order)),
		slog.Int("hits", len(ranked)),
		slog.Duration("duration", time.Since(start)))

	return resp, nil
}

// parallelRetrieve executes lexical and vector searches concurrently.
// Per-source failures are captured in Diagnostics; only context cancellation
// fails the call.
func (e *Engine) parallelRetrieve(ctx context.Context, query, expr string, limit int) (
	lexRows []*store.LexicalRow,
	vecHits []*store.VectorHit,
	diags Diagnostics,
	err error,
) {
	g, gctx := errgroup.WithContext(ctx)

	var lexErr, vecErr error

	g.Go(func() error {
		var searchErr error
		lexRows, searchErr = e.lexical.Search(gctx, expr, limit)
		if searchErr != nil {
			lexErr = searchErr
		}
		return nil
	})

	g.Go(func() error {
		var searchErr error
		vecHits, searchErr = e.vector.Search(gctx, query, limit)
		if searchErr != nil {
			vecErr = searchErr
		}
		return nil
	})

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, diags, waitErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, diags, ctxErr
	}

	if lexErr != nil {
		diags.LexicalError = lexErr.Error()
		slog.Warn("lexical search failed, degrading to vector only",
			slog.String("error", lexErr.Error()))
	}
	if vecErr != nil {
		diags.VectorError = vecErr.Error()
		slog.Warn("vector search failed, degrading to lexical only",
			slog.String("error", vecErr.Error()))
	}

	return lexRows, vecHits, diags, nil
}

// recordMetrics records query telemetry if a collector is configured.
func (e *Engine) recordMetrics(query string, intent QueryIntent, resp *Response, latency time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		Intent:      telemetry.IntentLabel(intent.Type),
		Degraded:    resp.Diagnostics.Degraded(),
		ResultCount: len(resp.Hits),
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}

// makeSnippet collapses whitespace and truncates to the snippet length.
func makeSnippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= snippetLength {
		return collapsed
	}
	return string(runes[:snippetLength])
}
