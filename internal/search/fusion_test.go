package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktabalab/maktabamcp/internal/store"
)

func lexRow(docID string, cost float64) *store.LexicalRow {
	return &store.LexicalRow{
		DocID:         docID,
		BookID:        "1",
		ChapterID:     "2",
		Narrator:      "Abu Huraira",
		EnglishText:   "text of " + docID,
		RelevanceCost: cost,
	}
}

func vecHit(docID string, sim float64) *store.VectorHit {
	return &store.VectorHit{DocID: docID, Similarity: sim}
}

func TestMergeCandidates(t *testing.T) {
	lex := []*store.LexicalRow{lexRow("a", 0), lexRow("b", 1)}
	vec := []*store.VectorHit{vecHit("b", 0.9), vecHit("c", 0.8)}

	byID, order, vectorOnly := mergeCandidates(lex, vec)

	require.Len(t, byID, 3)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"c"}, vectorOnly)

	// Lexical-only candidate has no vector signal.
	require.NotNil(t, byID["a"].LexicalCost)
	assert.Nil(t, byID["a"].VectorSimilarity)

	// Shared candidate carries both.
	require.NotNil(t, byID["b"].LexicalCost)
	require.NotNil(t, byID["b"].VectorSimilarity)
	assert.Equal(t, 1.0, *byID["b"].LexicalCost)
	assert.Equal(t, 0.9, *byID["b"].VectorSimilarity)

	// Vector-only candidate has no lexical signal or fields yet.
	assert.Nil(t, byID["c"].LexicalCost)
	require.NotNil(t, byID["c"].VectorSimilarity)
	assert.Empty(t, byID["c"].EnglishText)
}

func TestMergeCandidatesSignalsIndependentOfVectorOrder(t *testing.T) {
	lex := []*store.LexicalRow{lexRow("a", 0), lexRow("b", 1)}
	forward := []*store.VectorHit{vecHit("b", 0.9), vecHit("c", 0.8)}
	reversed := []*store.VectorHit{vecHit("c", 0.8), vecHit("b", 0.9)}

	byID1, _, _ := mergeCandidates(lex, forward)
	byID2, _, _ := mergeCandidates(lex, reversed)

	require.Len(t, byID2, len(byID1))
	for docID, c1 := range byID1 {
		c2 := byID2[docID]
		require.NotNil(t, c2, docID)
		assert.Equal(t, c1.LexicalCost == nil, c2.LexicalCost == nil)
		if c1.VectorSimilarity != nil {
			require.NotNil(t, c2.VectorSimilarity)
			assert.Equal(t, *c1.VectorSimilarity, *c2.VectorSimilarity)
		}
	}
}

func TestMergeCandidatesSkipsDuplicatesAndEmptyIDs(t *testing.T) {
	lex := []*store.LexicalRow{lexRow("a", 0), lexRow("a", 2), {DocID: ""}}
	vec := []*store.VectorHit{vecHit("", 0.5), vecHit("a", 0.7), vecHit("a", 0.1)}

	byID, order, vectorOnly := mergeCandidates(lex, vec)

	require.Len(t, byID, 1)
	assert.Equal(t, []string{"a"}, order)
	assert.Empty(t, vectorOnly)
	// First occurrence wins on both sides.
	assert.Equal(t, 0.0, *byID["a"].LexicalCost)
	assert.Equal(t, 0.7, *byID["a"].VectorSimilarity)
}

type fieldsOnlyLexical struct {
	fields map[string]*store.DocFields
	err    error
	gotIDs []string
}

func (f *fieldsOnlyLexical) Search(context.Context, string, int) ([]*store.LexicalRow, error) {
	return nil, nil
}

func (f *fieldsOnlyLexical) FetchByIDs(_ context.Context, ids []string) (map[string]*store.DocFields, error) {
	f.gotIDs = ids
	return f.fields, f.err
}

func TestBackfillCandidates(t *testing.T) {
	byID := map[string]*Candidate{
		"c": {DocID: "c"},
		"d": {DocID: "d"},
	}
	lexical := &fieldsOnlyLexical{fields: map[string]*store.DocFields{
		"c": {BookID: "7", ChapterID: "3", Narrator: "Aisha", EnglishText: "backfilled"},
	}}

	err := backfillCandidates(context.Background(), lexical, byID, []string{"c", "d"})
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "d"}, lexical.gotIDs)
	assert.Equal(t, "7", byID["c"].BookID)
	assert.Equal(t, "Aisha", byID["c"].Narrator)
	assert.Equal(t, "backfilled", byID["c"].EnglishText)

	// Missing ID stays scoreable on its vector signal alone.
	assert.Empty(t, byID["d"].EnglishText)
}

func TestBackfillCandidatesNoVectorOnly(t *testing.T) {
	lexical := &fieldsOnlyLexical{err: errors.New("boom")}
	err := backfillCandidates(context.Background(), lexical, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, lexical.gotIDs)
}

func TestBackfillCandidatesError(t *testing.T) {
	lexical := &fieldsOnlyLexical{err: errors.New("index closed")}
	err := backfillCandidates(context.Background(), lexical, map[string]*Candidate{"c": {DocID: "c"}}, []string{"c"})
	assert.Error(t, err)
}
