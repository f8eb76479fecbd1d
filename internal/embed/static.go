package embed

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/maktabalab/maktabamcp/internal/store"
)

// Hash embedding weights. Whole tokens carry most of the signal;
// character n-grams soften morphology differences (prayer/prayers,
// Arabic root variants surfacing in different forms).
const (
	staticTokenWeight = 0.7
	staticNgramWeight = 0.3
	staticNgramSize   = 3

	staticModelName = "static-hash-256"
)

// StaticEmbedder is a deterministic hash-based embedder requiring no
// external service. Quality is far below a neural model; it exists so
// indexing and search degrade instead of failing when no provider is
// reachable.
type StaticEmbedder struct {
	dims      int
	stopWords map[string]struct{}
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a static embedder with StaticDimensions.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{
		dims:      StaticDimensions,
		stopWords: store.BuildStopWordMap(store.DefaultStopWords),
	}
}

// Embed generates a normalized hash embedding for text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)

	tokens := store.FilterStopWords(store.TokenizeText(text), e.stopWords)
	if len(tokens) == 0 {
		return vec, nil
	}

	for _, tok := range tokens {
		vec[e.hashToIndex(tok)] += staticTokenWeight
		for _, ng := range ngrams(tok, staticNgramSize) {
			vec[e.hashToIndex(ng)] += staticNgramWeight
		}
	}

	return normalizeVector(vec), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		results[i] = vec
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string { return staticModelName }

// Available always returns true; the static embedder has no dependencies.
func (e *StaticEmbedder) Available(_ context.Context) bool { return true }

// Close is a no-op.
func (e *StaticEmbedder) Close() error { return nil }

func (e *StaticEmbedder) hashToIndex(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(e.dims))
}

// ngrams returns the character n-grams of a token. Tokens shorter than
// n yield nothing; the whole-token hash already covers them.
func ngrams(token string, n int) []string {
	runes := []rune(token)
	if len(runes) < n {
		return nil
	}
	out := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		out = append(out, string(runes[i:i+n]))
	}
	return out
}
