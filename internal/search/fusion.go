package search

import (
	"context"

	"github.com/maktabalab/maktabamcp/internal/store"
)

// Candidate is a merged retrieval result before scoring. A candidate seen in
// both sources carries both signals; one seen in only one source carries a
// nil pointer for the other.
type Candidate struct {
	DocID       string
	BookID      string
	ChapterID   string
	Narrator    string
	EnglishText string

	LexicalCost      *float64
	VectorSimilarity *float64
}

// mergeCandidates combines lexical rows and vector hits by doc ID, keeping
// deterministic insertion order: lexical rows first, then vector-only hits.
// Vector-only candidates have empty descriptive fields until backfilled.
func mergeCandidates(lexRows []*store.LexicalRow, vecHits []*store.VectorHit) (byID map[string]*Candidate, order []string, vectorOnly []string) {
	byID = make(map[string]*Candidate, len(lexRows)+len(vecHits))
	order = make([]string, 0, len(lexRows)+len(vecHits))

	for _, r := range lexRows {
		if r.DocID == "" || byID[r.DocID] != nil {
			continue
		}
		cost := r.RelevanceCost
		byID[r.DocID] = &Candidate{
			DocID:       r.DocID,
			BookID:      r.BookID,
			ChapterID:   r.ChapterID,
			Narrator:    r.Narrator,
			EnglishText: r.EnglishText,
			LexicalCost: &cost,
		}
		order = append(order, r.DocID)
	}

	for _, h := range vecHits {
		if h.DocID == "" {
			continue
		}
		sim := h.Similarity
		if c := byID[h.DocID]; c != nil {
			if c.VectorSimilarity == nil {
				c.VectorSimilarity = &sim
			}
			continue
		}
		byID[h.DocID] = &Candidate{
			DocID:            h.DocID,
			VectorSimilarity: &sim,
		}
		order = append(order, h.DocID)
		vectorOnly = append(vectorOnly, h.DocID)
	}

	return byID, order, vectorOnly
}

// backfillCandidates fills descriptive fields for vector-only candidates with
// a single batched lookup. A backfill failure leaves the candidates scoreable
// on their vector signal alone; it never fails the search.
func backfillCandidates(ctx context.Context, lexical LexicalRetriever, byID map[string]*Candidate, vectorOnly []string) error {
	if len(vectorOnly) == 0 {
		return nil
	}

	fields, err := lexical.FetchByIDs(ctx, vectorOnly)
	if err != nil {
		return err
	}

	for docID, f := range fields {
		c := byID[docID]
		if c == nil {
			continue
		}
		c.BookID = f.BookID
		c.ChapterID = f.ChapterID
		c.Narrator = f.Narrator
		c.EnglishText = f.EnglishText
	}
	return nil
}
