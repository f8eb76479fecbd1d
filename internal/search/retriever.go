package search

import (
	"context"
	"fmt"

	"github.com/maktabalab/maktabamcp/internal/embed"
	"github.com/maktabalab/maktabamcp/internal/store"
)

// EmbeddingRetriever adapts an embedder and a vector index into a
// VectorRetriever.
type EmbeddingRetriever struct {
	embedder embed.Embedder
	index    store.VectorIndex
}

var _ VectorRetriever = (*EmbeddingRetriever)(nil)

// NewEmbeddingRetriever creates a vector retriever from an embedder and index.
func NewEmbeddingRetriever(embedder embed.Embedder, index store.VectorIndex) (*EmbeddingRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: vector index is required", ErrNilDependency)
	}
	return &EmbeddingRetriever{embedder: embedder, index: index}, nil
}

// Search embeds the query text and finds its nearest neighbors.
func (r *EmbeddingRetriever) Search(ctx context.Context, text string, limit int) ([]*store.VectorHit, error) {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.index.Search(ctx, vec, limit)
}

// NullLexicalRetriever deterministically returns no results. It stands in for
// an unconfigured lexical backend so the engine can still serve vector hits.
type NullLexicalRetriever struct{}

var _ LexicalRetriever = NullLexicalRetriever{}

func (NullLexicalRetriever) Search(_ context.Context, _ string, _ int) ([]*store.LexicalRow, error) {
	return []*store.LexicalRow{}, nil
}

func (NullLexicalRetriever) FetchByIDs(_ context.Context, _ []string) (map[string]*store.DocFields, error) {
	return map[string]*store.DocFields{}, nil
}

// NullVectorRetriever deterministically returns no results. It stands in for
// an unconfigured vector backend so the engine degrades to lexical-only.
type NullVectorRetriever struct{}

var _ VectorRetriever = NullVectorRetriever{}

func (NullVectorRetriever) Search(_ context.Context, _ string, _ int) ([]*store.VectorHit, error) {
	return []*store.VectorHit{}, nil
}
