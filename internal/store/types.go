// Package store provides the lexical index (Bleve), vector store (HNSW), and
// document metadata persistence (SQLite) for hadith collections.
package store

import (
	"context"
	"fmt"
	"time"
)

// State keys for the document store's key-value state table.
// Used to detect embedder changes between indexing and search.
const (
	// StateKeyIndexDimension stores the embedding dimension used for the index.
	StateKeyIndexDimension = "index_embedding_dimension"
	// StateKeyIndexModel stores the embedding model name used for the index.
	StateKeyIndexModel = "index_embedding_model"
)

// Document represents a single hadith with bilingual text and metadata.
type Document struct {
	DocID             string // "{collection}:{book_id}:{hadith_id}"
	Collection        string
	BookID            string
	ChapterID         string
	Narrator          string // As scraped, with honorifics
	CanonicalNarrator string // Normalized via normalize.ExtractNarratorName
	EnglishText       string
	ArabicText        string
	Checksum          string // SHA256 of the source record
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DocFields carries the descriptive fields needed to present a search hit.
// Used to backfill candidates that were first seen in the vector result list.
type DocFields struct {
	BookID      string
	ChapterID   string
	Narrator    string
	EnglishText string
}

// LexicalRow is a single lexical search result.
// RelevanceCost is lower-is-better, 0 being a perfect match.
type LexicalRow struct {
	DocID         string
	BookID        string
	ChapterID     string
	Narrator      string
	EnglishText   string
	RelevanceCost float64
}

// VectorHit is a single vector search result.
type VectorHit struct {
	DocID      string
	Distance   float32 // Raw distance, lower is more similar
	Similarity float64 // Normalized as 1/(1+max(0,distance))
}

// LexicalIndex provides full-text search over hadith documents.
type LexicalIndex interface {
	// Index adds or replaces documents in the index.
	Index(ctx context.Context, docs []*Document) error

	// Search evaluates a lexical query expression and returns matching rows
	// ordered by ascending relevance cost.
	Search(ctx context.Context, expr string, limit int) ([]*LexicalRow, error)

	// FetchByIDs returns descriptive fields for the given doc IDs in one
	// batched lookup. Missing IDs are absent from the result map.
	FetchByIDs(ctx context.Context, ids []string) (map[string]*DocFields, error)

	// Delete removes documents from the index.
	Delete(ctx context.Context, docIDs []string) error

	// Count returns the number of indexed documents.
	Count() (uint64, error)

	Close() error
}

// VectorIndex provides approximate nearest-neighbor search over embeddings.
type VectorIndex interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds k nearest neighbors to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorHit, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// Contains checks if an ID exists.
	Contains(id string) bool

	// Count returns number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// DocumentStore persists hadith documents and index state in SQLite.
type DocumentStore interface {
	// SaveDocuments upserts documents in a single transaction.
	SaveDocuments(ctx context.Context, docs []*Document) error

	// GetDocument returns a single document, or nil if absent.
	GetDocument(ctx context.Context, docID string) (*Document, error)

	// GetDocuments returns documents for the given IDs in one query.
	GetDocuments(ctx context.Context, docIDs []string) ([]*Document, error)

	// GetChecksums returns doc_id -> checksum for one collection.
	// Used to skip unchanged records during re-ingestion.
	GetChecksums(ctx context.Context, collection string) (map[string]string, error)

	// CountByCollection returns document counts per collection.
	CountByCollection(ctx context.Context) (map[string]int, error)

	// DeleteByCollection removes all documents of a collection.
	DeleteByCollection(ctx context.Context, collection string) error

	// State operations (key-value store for index state).
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	Close() error
}

// VectorIndexConfig configures the HNSW vector index.
type VectorIndexConfig struct {
	// Dimensions is the vector dimension (256 for static, 768 for nomic-embed-text).
	Dimensions int

	// M is HNSW max connections per layer (default: 16).
	M int

	// EfSearch is HNSW query-time search width (default: 20).
	EfSearch int
}

// DefaultVectorIndexConfig returns sensible defaults for the vector index.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   20,
	}
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'maktabamcp index --force')", e.Expected, e.Got)
}
