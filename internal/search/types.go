// Package search implements query understanding and hybrid ranking over
// hadith collections. A query is routed to an intent, compiled into a lexical
// expression, retrieved from the lexical and vector indexes in parallel, and
// the merged candidates are scored by a weighted combination of both signals.
package search

import (
	"context"

	"github.com/maktabalab/maktabamcp/internal/store"
)

// IntentType classifies what a query is asking for.
type IntentType string

const (
	// IntentExactReference is a citation lookup like "bukhari 1:1" or "book 12".
	IntentExactReference IntentType = "exact_reference"

	// IntentNarrator asks for hadith by transmitter, e.g. "narrated by Aisha".
	IntentNarrator IntentType = "narrator"

	// IntentThematic is a topical query with enough terms (or a quoted phrase)
	// to rank by coverage.
	IntentThematic IntentType = "thematic"

	// IntentMixed is the fallback for short ambiguous queries.
	IntentMixed IntentType = "mixed"
)

// QueryIntent is the routed form of a raw query.
type QueryIntent struct {
	// Type is the routed intent class.
	Type IntentType

	// Raw is the query exactly as received.
	Raw string

	// Normalized is the trimmed query with one enclosing quote pair removed.
	Normalized string

	// NarratorQuery is the canonical narrator sub-query, empty if none.
	NarratorQuery string

	// Phrase is the first quoted phrase of at least 3 characters, empty if none.
	Phrase string

	// Tokens are lowercase alphanumeric-plus-Arabic runs (length > 1) from
	// the normalized query.
	Tokens []string
}

// LexicalRetriever searches the full-text index with a compiled expression
// and backfills descriptive fields for vector-only candidates.
type LexicalRetriever interface {
	Search(ctx context.Context, expr string, limit int) ([]*store.LexicalRow, error)
	FetchByIDs(ctx context.Context, ids []string) (map[string]*store.DocFields, error)
}

// VectorRetriever embeds a query text and searches the vector index.
type VectorRetriever interface {
	Search(ctx context.Context, text string, limit int) ([]*store.VectorHit, error)
}

// ScoreBreakdown itemizes the signals behind a hit's total score.
// All components are in [0,1]; Total is the clamped weighted sum.
type ScoreBreakdown struct {
	VectorSimilarity float64 `json:"vector_similarity"`
	LexicalSignal    float64 `json:"lexical_signal"`
	PhraseBonus      float64 `json:"phrase_bonus"`
	ProximityBonus   float64 `json:"proximity_bonus"`
	TermCoverage     float64 `json:"term_coverage"`
	Total            float64 `json:"total"`
}

// Hit is a single ranked search result.
type Hit struct {
	DocID     string         `json:"doc_id"`
	BookID    string         `json:"book_id,omitempty"`
	ChapterID string         `json:"chapter_id,omitempty"`
	Narrator  string         `json:"narrator,omitempty"`
	Snippet   string         `json:"snippet"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Diagnostics reports retrieval degradation. A failed source never aborts a
// search; its error is captured here instead.
type Diagnostics struct {
	LexicalError string `json:"lexical_error,omitempty"`
	VectorError  string `json:"vector_error,omitempty"`
}

// Degraded reports whether at least one retrieval source failed.
func (d Diagnostics) Degraded() bool {
	return d.LexicalError != "" || d.VectorError != ""
}

// Request is a hybrid search request.
type Request struct {
	// Query is the raw user query. Must be non-empty.
	Query string

	// Limit is the maximum number of hits to return. Zero defaults to 10.
	Limit int

	// Mode selects a weight preset ("balanced" or "term-priority").
	// Unknown or empty modes fall back to balanced.
	Mode string

	// Overrides adjusts individual weights on top of the selected preset.
	Overrides WeightOverrides

	// SynonymGroups optionally supplies term groups for coverage and
	// proximity scoring. When nil, coverage falls back to intent tokens.
	SynonymGroups [][]string

	// NearWindow is the token window for the proximity bonus. Zero selects
	// the default of 5; negative values clamp to a window of 1.
	NearWindow int
}

// Response is the result of a hybrid search.
type Response struct {
	Query           string      `json:"query"`
	Intent          IntentType  `json:"intent"`
	Mode            string      `json:"mode"`
	TotalCandidates int         `json:"total_candidates"`
	Hits            []Hit       `json:"hits"`
	Weights         Weights     `json:"weights"`
	Diagnostics     Diagnostics `json:"diagnostics,omitzero"`
}
