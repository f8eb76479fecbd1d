package mcp

// SearchInput defines the input schema for the hybrid_search tool.
// The optional weight fields override single fields of the mode preset;
// absent fields keep the preset value.
type SearchInput struct {
	Query              string   `json:"query" jsonschema:"the search query: a topic, a quoted phrase, 'narrated by <name>', or a reference like 'bukhari 1:1'"`
	Limit              int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10, max 50"`
	Mode               string   `json:"mode,omitempty" jsonschema:"weight preset: balanced (default) or term-priority"`
	NearWindow         int      `json:"near_window,omitempty" jsonschema:"token window for the proximity bonus, default 5"`
	MinScore           float64  `json:"min_score,omitempty" jsonschema:"drop hits scoring below this threshold (0-1)"`
	WeightVector       *float64 `json:"weight_vector,omitempty" jsonschema:"override the semantic similarity weight (0-1)"`
	WeightLexical      *float64 `json:"weight_lexical,omitempty" jsonschema:"override the full-text relevance weight (0-1)"`
	WeightTermCoverage *float64 `json:"weight_term_coverage,omitempty" jsonschema:"override the term coverage weight (0-1)"`
	BonusPhrase        *float64 `json:"bonus_phrase,omitempty" jsonschema:"override the quoted-phrase bonus (0-1)"`
}

// SearchOutput defines the output schema for the hybrid_search tool.
type SearchOutput struct {
	Query           string             `json:"query" jsonschema:"the query as executed"`
	Intent          string             `json:"intent" jsonschema:"routed intent: exact_reference, narrator, thematic, or mixed"`
	Mode            string             `json:"mode" jsonschema:"weight preset used"`
	TotalCandidates int                `json:"total_candidates" jsonschema:"fused candidates before ranking"`
	Results         []SearchResultItem `json:"results" jsonschema:"ranked search results"`
	Degraded        bool               `json:"degraded,omitempty" jsonschema:"true if one retrieval source failed"`
}

// SearchResultItem is a single ranked hit with its score breakdown.
type SearchResultItem struct {
	DocID            string  `json:"doc_id" jsonschema:"document identifier, collection:book:hadith"`
	BookID           string  `json:"book_id,omitempty" jsonschema:"book number within the collection"`
	ChapterID        string  `json:"chapter_id,omitempty" jsonschema:"chapter number within the book"`
	Narrator         string  `json:"narrator,omitempty" jsonschema:"canonical narrator name"`
	Snippet          string  `json:"snippet" jsonschema:"text snippet of the hadith"`
	Score            float64 `json:"score" jsonschema:"combined relevance score between 0 and 1"`
	VectorSimilarity float64 `json:"vector_similarity" jsonschema:"semantic similarity component"`
	LexicalSignal    float64 `json:"lexical_signal" jsonschema:"full-text relevance component"`
	TermCoverage     float64 `json:"term_coverage" jsonschema:"fraction of query term groups present"`
}

// GetHadithInput defines the input schema for the get_hadith tool.
type GetHadithInput struct {
	DocID string `json:"doc_id" jsonschema:"document identifier in collection:book:hadith form, e.g. bukhari:1:1"`
}

// GetHadithOutput defines the output schema for the get_hadith tool.
type GetHadithOutput struct {
	DocID       string `json:"doc_id"`
	Collection  string `json:"collection"`
	BookID      string `json:"book_id"`
	ChapterID   string `json:"chapter_id,omitempty"`
	Narrator    string `json:"narrator,omitempty"`
	EnglishText string `json:"english_text"`
	ArabicText  string `json:"arabic_text,omitempty"`
}

// StatusInput defines the input schema for the corpus_status tool (no parameters).
type StatusInput struct{}

// StatusOutput defines the output schema for the corpus_status tool.
type StatusOutput struct {
	Collections   map[string]int `json:"collections" jsonschema:"document count per collection"`
	DocumentCount int            `json:"document_count" jsonschema:"total documents in the store"`
	LexicalCount  uint64         `json:"lexical_count" jsonschema:"documents in the full-text index"`
	VectorCount   int            `json:"vector_count" jsonschema:"vectors in the semantic index"`
	Embeddings    EmbeddingInfo  `json:"embeddings"`
}

// EmbeddingInfo describes the active embedding backend. AI clients use
// SemanticQuality to decide how much to lean on thematic queries.
type EmbeddingInfo struct {
	Provider        string `json:"provider" jsonschema:"active provider: ollama, openai, or static"`
	Model           string `json:"model" jsonschema:"active embedding model"`
	Dimensions      int    `json:"dimensions" jsonschema:"embedding dimension"`
	Status          string `json:"status" jsonschema:"ready or unavailable"`
	SemanticQuality string `json:"semantic_quality" jsonschema:"high for neural models, low for the static fallback"`
}
