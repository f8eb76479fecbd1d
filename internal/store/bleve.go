package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	// DiacriticsFilterName strips Arabic harakat so vowelled and unvowelled
	// spellings match.
	DiacriticsFilterName = "hadith_diacritics"

	// StopFilterName drops high-frequency English function words.
	StopFilterName = "hadith_stop"

	// TextAnalyzerName analyzes hadith body text.
	TextAnalyzerName = "hadith_text"

	// NarratorAnalyzerName analyzes narrator names. It keeps stop words:
	// transmission chains contain particles that look like function words.
	NarratorAnalyzerName = "hadith_narrator"
)

func init() {
	_ = registry.RegisterTokenFilter(DiacriticsFilterName, diacriticsFilterConstructor)
	_ = registry.RegisterTokenFilter(StopFilterName, stopFilterConstructor)
}

// BleveLexicalIndex implements LexicalIndex on Bleve.
type BleveLexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ LexicalIndex = (*BleveLexicalIndex)(nil)

// bleveHadith is the indexed form of a Document.
type bleveHadith struct {
	English   string `json:"english"`
	Arabic    string `json:"arabic"`
	Narrator  string `json:"narrator"`
	BookID    string `json:"book_id"`
	ChapterID string `json:"chapter_id"`
}

// NewBleveLexicalIndex opens or creates a lexical index at path.
// An empty path creates an in-memory index for testing.
func NewBleveLexicalIndex(path string) (*BleveLexicalIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	return &BleveLexicalIndex{index: idx, path: path}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(TextAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			DiacriticsFilterName,
			StopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add text analyzer: %w", err)
	}

	err = indexMapping.AddCustomAnalyzer(NarratorAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			DiacriticsFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add narrator analyzer: %w", err)
	}

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = TextAnalyzerName
	textField.Store = true

	narratorField := bleve.NewTextFieldMapping()
	narratorField.Analyzer = NarratorAnalyzerName
	narratorField.Store = true

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false
	storedOnly.Store = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("english", textField)
	docMapping.AddFieldMappingsAt("arabic", textField)
	docMapping.AddFieldMappingsAt("narrator", narratorField)
	docMapping.AddFieldMappingsAt("book_id", storedOnly)
	docMapping.AddFieldMappingsAt("chapter_id", storedOnly)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = TextAnalyzerName

	return indexMapping, nil
}

// Index adds or replaces documents.
func (b *BleveLexicalIndex) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("lexical index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		narrator := doc.CanonicalNarrator
		if narrator == "" {
			narrator = doc.Narrator
		}
		entry := bleveHadith{
			English:   doc.EnglishText,
			Arabic:    doc.ArabicText,
			Narrator:  narrator,
			BookID:    doc.BookID,
			ChapterID: doc.ChapterID,
		}
		if err := batch.Index(doc.DocID, entry); err != nil {
			return fmt.Errorf("index document %s: %w", doc.DocID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}

// Search evaluates a lexical query expression.
//
// Hit scores are normalized against the best hit of the request, then mapped
// to a lower-is-better relevance cost: the top hit costs 0 and weaker hits
// grow without bound.
func (b *BleveLexicalIndex) Search(ctx context.Context, expr string, limit int) ([]*LexicalRow, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("lexical index is closed")
	}

	if strings.TrimSpace(expr) == "" || limit <= 0 {
		return []*LexicalRow{}, nil
	}

	req := bleve.NewSearchRequest(parseExpression(expr))
	req.Size = limit
	req.Fields = []string{"english", "arabic", "narrator", "book_id", "chapter_id"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	rows := make([]*LexicalRow, 0, len(result.Hits))
	for _, hit := range result.Hits {
		cost := 0.0
		if result.MaxScore > 0 && hit.Score > 0 {
			cost = result.MaxScore/hit.Score - 1
		}
		rows = append(rows, &LexicalRow{
			DocID:         hit.ID,
			BookID:        fieldString(hit.Fields, "book_id"),
			ChapterID:     fieldString(hit.Fields, "chapter_id"),
			Narrator:      fieldString(hit.Fields, "narrator"),
			EnglishText:   fieldString(hit.Fields, "english"),
			RelevanceCost: cost,
		})
	}
	return rows, nil
}

// parseExpression compiles a query expression into a Bleve query.
//
// The grammar mirrors the query builder: a quoted phrase, or an AND
// conjunction of prefix terms optionally scoped to the narrator field, or
// free text as a fallback.
func parseExpression(expr string) query.Query {
	expr = strings.TrimSpace(expr)

	if len(expr) > 2 && strings.HasPrefix(expr, `"`) && strings.HasSuffix(expr, `"`) {
		phrase := expr[1 : len(expr)-1]
		return textDisjunction(func(field string) query.Query {
			q := bleve.NewMatchPhraseQuery(phrase)
			q.SetField(field)
			return q
		})
	}

	parts := strings.Split(expr, " AND ")
	conjuncts := make([]query.Query, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		conjuncts = append(conjuncts, parseTerm(part))
	}

	switch len(conjuncts) {
	case 0:
		return bleve.NewMatchNoneQuery()
	case 1:
		return conjuncts[0]
	default:
		return bleve.NewConjunctionQuery(conjuncts...)
	}
}

// parseTerm compiles one conjunct: `narrator:tok*`, `tok*`, or free text.
// Prefix terms bypass analysis, so the folding the analyzer would do is
// applied here.
func parseTerm(part string) query.Query {
	if rest, ok := strings.CutPrefix(part, "narrator:"); ok {
		term := foldTerm(strings.TrimSuffix(rest, "*"))
		q := bleve.NewPrefixQuery(term)
		q.SetField("narrator")
		return q
	}

	if term, ok := strings.CutSuffix(part, "*"); ok && !strings.ContainsRune(term, ' ') {
		folded := foldTerm(term)
		return textDisjunction(func(field string) query.Query {
			q := bleve.NewPrefixQuery(folded)
			q.SetField(field)
			return q
		})
	}

	return textDisjunction(func(field string) query.Query {
		q := bleve.NewMatchQuery(part)
		q.SetField(field)
		return q
	})
}

// textDisjunction builds the same sub-query over both text fields.
func textDisjunction(build func(field string) query.Query) query.Query {
	return bleve.NewDisjunctionQuery(build("english"), build("arabic"))
}

func foldTerm(term string) string {
	return strings.ToLower(StripArabicDiacritics(strings.TrimSpace(term)))
}

// FetchByIDs returns stored fields for the given doc IDs in one query.
func (b *BleveLexicalIndex) FetchByIDs(ctx context.Context, ids []string) (map[string]*DocFields, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("lexical index is closed")
	}
	if len(ids) == 0 {
		return map[string]*DocFields{}, nil
	}

	req := bleve.NewSearchRequest(query.NewDocIDQuery(ids))
	req.Size = len(ids)
	req.Fields = []string{"english", "arabic", "narrator", "book_id", "chapter_id"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch by ids: %w", err)
	}

	fields := make(map[string]*DocFields, len(result.Hits))
	for _, hit := range result.Hits {
		fields[hit.ID] = &DocFields{
			BookID:      fieldString(hit.Fields, "book_id"),
			ChapterID:   fieldString(hit.Fields, "chapter_id"),
			Narrator:    fieldString(hit.Fields, "narrator"),
			EnglishText: fieldString(hit.Fields, "english"),
		}
	}
	return fields, nil
}

// Delete removes documents from the index.
func (b *BleveLexicalIndex) Delete(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("lexical index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (b *BleveLexicalIndex) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, fmt.Errorf("lexical index is closed")
	}
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveLexicalIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

func fieldString(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// diacriticsFilterConstructor builds the Arabic diacritics stripper.
func diacriticsFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &diacriticsFilter{}, nil
}

type diacriticsFilter struct{}

func (f *diacriticsFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, token := range input {
		stripped := StripArabicDiacritics(string(token.Term))
		if len(stripped) != len(token.Term) {
			token.Term = []byte(stripped)
		}
	}
	return input
}

// stopFilterConstructor builds the English stop word filter.
func stopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &stopFilter{stopWords: BuildStopWordMap(DefaultStopWords)}, nil
}

type stopFilter struct {
	stopWords map[string]struct{}
}

func (f *stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if _, isStop := f.stopWords[string(token.Term)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
