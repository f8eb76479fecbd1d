package embed

import (
	"context"
	"math"
	"time"
)

// Embedding defaults shared across providers.
const (
	// StaticDimensions is the dimension of the hash-based fallback embedder.
	StaticDimensions = 256

	// DefaultBatchSize is the number of texts per batch embedding request.
	DefaultBatchSize = 32

	// DefaultTimeout for remote embedding API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries for transient remote failures.
	DefaultMaxRetries = 3
)

// Embedder generates vector embeddings for hadith text and search queries.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier, recorded alongside the
	// vector index so dimension mismatches are detected on load.
	ModelName() string

	// Available reports whether the embedder can serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// EmbedderInfo describes a constructed embedder for status reporting.
type EmbedderInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Cached     bool   `json:"cached"`
}

// normalizeVector scales v to unit length in place and returns it.
// Zero vectors are returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
