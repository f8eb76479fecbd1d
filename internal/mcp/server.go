package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maktabalab/maktabamcp/internal/config"
	"github.com/maktabalab/maktabamcp/internal/embed"
	"github.com/maktabalab/maktabamcp/internal/search"
	"github.com/maktabalab/maktabamcp/internal/store"
	"github.com/maktabalab/maktabamcp/internal/telemetry"
	"github.com/maktabalab/maktabamcp/pkg/version"
)

// SearchEngine abstracts the hybrid search engine for the server.
type SearchEngine interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// Server bridges AI clients with the hadith search engine over MCP.
type Server struct {
	mcp      *mcp.Server
	engine   SearchEngine
	docs     store.DocumentStore
	lexical  store.LexicalIndex
	vector   store.VectorIndex
	embedder embed.Embedder
	config   *config.Config
	logger   *slog.Logger

	mu      sync.RWMutex
	metrics *telemetry.QueryMetrics
}

// NewServer creates an MCP server. The embedder may be nil; status then
// reports semantic search as unavailable.
func NewServer(engine SearchEngine, docs store.DocumentStore, lexical store.LexicalIndex, vector store.VectorIndex, embedder embed.Embedder, cfg *config.Config) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if docs == nil {
		return nil, errors.New("document store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine:   engine,
		docs:     docs,
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		config:   cfg,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "MaktabaMCP",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// SetMetrics attaches the query metrics collector. When set, a
// query_metrics resource is registered.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "MaktabaMCP", version.Version
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "hybrid_search",
		Description: "Search hadith collections by topic, quoted phrase, narrator ('narrated by Aisha'), or reference ('bukhari 1:1'). Combines full-text and semantic matching; results carry a per-signal score breakdown.",
	}, s.mcpSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_hadith",
		Description: "Fetch the full bilingual text of one hadith by document ID (collection:book:hadith). Use after hybrid_search to read a complete narration.",
	}, s.mcpGetHadithHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "corpus_status",
		Description: "Report indexed collections, document counts, and which embedding backend is active. Use before searching to verify the corpus is ready.",
	}, s.mcpStatusHandler)

	s.logger.Debug("mcp tools registered", slog.Int("count", 3))
}

// mcpSearchHandler handles the hybrid_search tool.
func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if input.MinScore < 0 || input.MinScore > 1 {
		return nil, SearchOutput{}, NewInvalidParamsError("min_score must be between 0 and 1")
	}
	for name, w := range map[string]*float64{
		"weight_vector":        input.WeightVector,
		"weight_lexical":       input.WeightLexical,
		"weight_term_coverage": input.WeightTermCoverage,
		"bonus_phrase":         input.BonusPhrase,
	} {
		if w != nil && (*w < 0 || *w > 1) {
			return nil, SearchOutput{}, NewInvalidParamsError(name + " must be between 0 and 1")
		}
	}

	s.logger.Info("hybrid_search started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("limit", input.Limit))

	resp, err := s.engine.Search(ctx, search.Request{
		Query:      input.Query,
		Limit:      input.Limit,
		Mode:       input.Mode,
		NearWindow: input.NearWindow,
		Overrides: search.WeightOverrides{
			Vector:       input.WeightVector,
			Lexical:      input.WeightLexical,
			TermCoverage: input.WeightTermCoverage,
			Phrase:       input.BonusPhrase,
		},
	})
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("hybrid_search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	s.logger.Info("hybrid_search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.String("intent", string(resp.Intent)),
		slog.Int("result_count", len(resp.Hits)))

	return nil, ToSearchOutput(resp, input.MinScore), nil
}

// mcpGetHadithHandler handles the get_hadith tool.
func (s *Server) mcpGetHadithHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetHadithInput) (
	*mcp.CallToolResult,
	GetHadithOutput,
	error,
) {
	docID := strings.TrimSpace(input.DocID)
	if docID == "" {
		return nil, GetHadithOutput{}, NewInvalidParamsError("doc_id parameter is required")
	}

	doc, err := s.docs.GetDocument(ctx, docID)
	if err != nil {
		return nil, GetHadithOutput{}, MapError(err)
	}
	if doc == nil {
		return nil, GetHadithOutput{}, &MCPError{
			Code:    ErrCodeDocumentNotFound,
			Message: fmt.Sprintf("Document '%s' not found.", docID),
		}
	}

	narrator := doc.CanonicalNarrator
	if narrator == "" {
		narrator = doc.Narrator
	}

	return nil, GetHadithOutput{
		DocID:       doc.DocID,
		Collection:  doc.Collection,
		BookID:      doc.BookID,
		ChapterID:   doc.ChapterID,
		Narrator:    narrator,
		EnglishText: doc.EnglishText,
		ArabicText:  doc.ArabicText,
	}, nil
}

// mcpStatusHandler handles the corpus_status tool.
func (s *Server) mcpStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	*StatusOutput,
	error,
) {
	counts, err := s.docs.CountByCollection(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	out := &StatusOutput{
		Collections:   counts,
		DocumentCount: total,
		Embeddings:    s.embeddingInfo(ctx),
	}

	if s.lexical != nil {
		if n, err := s.lexical.Count(); err == nil {
			out.LexicalCount = n
		}
	}
	if s.vector != nil {
		out.VectorCount = s.vector.Count()
	}

	return nil, out, nil
}

// embeddingInfo reports the active embedder state.
func (s *Server) embeddingInfo(ctx context.Context) EmbeddingInfo {
	if s.embedder == nil {
		return EmbeddingInfo{
			Provider:        "none",
			Model:           "none",
			Status:          "unavailable",
			SemanticQuality: "none",
		}
	}

	info := embed.GetInfo(s.embedder)

	quality := "high"
	if info.Provider == string(embed.ProviderStatic) {
		quality = "low"
	}

	status := "ready"
	if !s.embedder.Available(ctx) {
		status = "unavailable"
	}

	return EmbeddingInfo{
		Provider:        info.Provider,
		Model:           info.Model,
		Dimensions:      info.Dimensions,
		Status:          status,
		SemanticQuality: quality,
	}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting mcp server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp server stopped")
		return nil
	case "http":
		return fmt.Errorf("http transport not yet implemented")
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
// The MCP server itself stops when its context is canceled.
func (s *Server) Close() error {
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
