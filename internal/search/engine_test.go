package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	maktabaerrors "github.com/maktabalab/maktabamcp/internal/errors"
	"github.com/maktabalab/maktabamcp/internal/store"
	"github.com/maktabalab/maktabamcp/internal/telemetry"
)

type fakeLexical struct {
	rows   []*store.LexicalRow
	fields map[string]*store.DocFields
	err    error

	gotExpr  string
	gotLimit int
}

func (f *fakeLexical) Search(_ context.Context, expr string, limit int) ([]*store.LexicalRow, error) {
	f.gotExpr = expr
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeLexical) FetchByIDs(_ context.Context, ids []string) (map[string]*store.DocFields, error) {
	out := make(map[string]*store.DocFields, len(ids))
	for _, id := range ids {
		if fields, ok := f.fields[id]; ok {
			out[id] = fields
		}
	}
	return out, nil
}

type fakeVector struct {
	hits []*store.VectorHit
	err  error

	gotText  string
	gotLimit int
}

func (f *fakeVector) Search(_ context.Context, text string, limit int) ([]*store.VectorHit, error) {
	f.gotText = text
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func newTestEngine(t *testing.T, lexical LexicalRetriever, vector VectorRetriever, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(lexical, vector, DefaultEngineConfig(), opts...)
	require.NoError(t, err)
	return e
}

func TestNewEngineNilDependencies(t *testing.T) {
	_, err := NewEngine(nil, &fakeVector{}, DefaultEngineConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(&fakeLexical{}, nil, DefaultEngineConfig())
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestSearchEmptyQuery(t *testing.T) {
	e := newTestEngine(t, &fakeLexical{}, &fakeVector{})

	_, err := e.Search(context.Background(), Request{Query: "   "})
	require.Error(t, err)
	assert.Equal(t, maktabaerrors.ErrCodeQueryEmpty, maktabaerrors.GetCode(err))
}

func TestSearchNegativeLimit(t *testing.T) {
	e := newTestEngine(t, &fakeLexical{}, &fakeVector{})

	_, err := e.Search(context.Background(), Request{Query: "prayer", Limit: -3})
	require.Error(t, err)
	assert.Equal(t, maktabaerrors.ErrCodeInvalidLimit, maktabaerrors.GetCode(err))
}

func TestSearchDefaultNearWindow(t *testing.T) {
	// Five tokens apart: inside the default window, outside a window of one.
	lexical := &fakeLexical{rows: []*store.LexicalRow{
		{DocID: "bukhari:21:1121", EnglishText: "prayer one two three four night", RelevanceCost: 0},
	}}
	e := newTestEngine(t, lexical, &fakeVector{})
	groups := [][]string{{"prayer"}, {"night"}}

	resp, err := e.Search(context.Background(), Request{Query: "night prayer", SynonymGroups: groups})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.InDelta(t, 0.10, resp.Hits[0].Breakdown.ProximityBonus, 1e-9)

	resp, err = e.Search(context.Background(), Request{Query: "night prayer", SynonymGroups: groups, NearWindow: -1})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Zero(t, resp.Hits[0].Breakdown.ProximityBonus)
}

func TestSearchNarratorQuery(t *testing.T) {
	lexical := &fakeLexical{rows: []*store.LexicalRow{
		{DocID: "bukhari:1:1", BookID: "1", ChapterID: "1", Narrator: "Abu Huraira",
			EnglishText: "Abu Huraira reported on intentions", RelevanceCost: 0},
	}}
	vector := &fakeVector{}
	e := newTestEngine(t, lexical, vector)

	resp, err := e.Search(context.Background(), Request{Query: "narrated by Abu Huraira", Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, IntentNarrator, resp.Intent)
	assert.Equal(t, "narrator:abu* AND narrator:huraira*", lexical.gotExpr)
	// Overfetch floor dominates small limits.
	assert.Equal(t, 50, lexical.gotLimit)
	assert.Equal(t, 50, vector.gotLimit)
	assert.Equal(t, "narrated by Abu Huraira", vector.gotText)

	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "bukhari:1:1", resp.Hits[0].DocID)
	assert.Equal(t, "Abu Huraira", resp.Hits[0].Narrator)
	assert.False(t, resp.Diagnostics.Degraded())
}

func TestSearchPhraseRanksExactMatchFirst(t *testing.T) {
	lexical := &fakeLexical{rows: []*store.LexicalRow{
		{DocID: "a", EnglishText: "whoever travels a path seeking knowledge", RelevanceCost: 1},
		{DocID: "b", EnglishText: "whoever travels a path seeking wealth", RelevanceCost: 1},
	}}
	e := newTestEngine(t, lexical, &fakeVector{})

	resp, err := e.Search(context.Background(), Request{Query: `"seeking knowledge"`})
	require.NoError(t, err)

	assert.Equal(t, IntentThematic, resp.Intent)
	assert.Equal(t, `"seeking knowledge"`, lexical.gotExpr)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "a", resp.Hits[0].DocID)
	assert.Greater(t, resp.Hits[0].Score, resp.Hits[1].Score)
	assert.InDelta(t, 0.05, resp.Hits[0].Breakdown.PhraseBonus, 1e-9)
	assert.Zero(t, resp.Hits[1].Breakdown.PhraseBonus)
}

func TestSearchFusesBothSources(t *testing.T) {
	lexical := &fakeLexical{
		rows: []*store.LexicalRow{
			{DocID: "a", EnglishText: "patience is light", RelevanceCost: 0},
		},
		fields: map[string]*store.DocFields{
			"c": {BookID: "9", Narrator: "Aisha", EnglishText: "patience at the first stroke"},
		},
	}
	vector := &fakeVector{hits: []*store.VectorHit{
		{DocID: "a", Similarity: 0.4},
		{DocID: "c", Similarity: 0.95},
	}}
	e := newTestEngine(t, lexical, vector)

	resp, err := e.Search(context.Background(), Request{Query: "patience"})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.TotalCandidates)
	require.Len(t, resp.Hits, 2)

	byID := map[string]Hit{}
	for _, h := range resp.Hits {
		byID[h.DocID] = h
	}

	// Shared candidate carries both signals.
	assert.Positive(t, byID["a"].Breakdown.LexicalSignal)
	assert.InDelta(t, 0.4, byID["a"].Breakdown.VectorSimilarity, 1e-9)

	// Vector-only candidate was backfilled with document fields.
	assert.Equal(t, "9", byID["c"].BookID)
	assert.Equal(t, "Aisha", byID["c"].Narrator)
	assert.Contains(t, byID["c"].Snippet, "patience at the first stroke")
	assert.Zero(t, byID["c"].Breakdown.LexicalSignal)
}

func TestSearchDegradesWhenOneSourceFails(t *testing.T) {
	lexical := &fakeLexical{err: errors.New("index closed")}
	vector := &fakeVector{hits: []*store.VectorHit{{DocID: "c", Similarity: 0.9}}}
	e := newTestEngine(t, lexical, vector)

	resp, err := e.Search(context.Background(), Request{Query: "patience"})
	require.NoError(t, err)

	assert.True(t, resp.Diagnostics.Degraded())
	assert.Contains(t, resp.Diagnostics.LexicalError, "index closed")
	assert.Empty(t, resp.Diagnostics.VectorError)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "c", resp.Hits[0].DocID)
}

func TestSearchBothSourcesFail(t *testing.T) {
	lexical := &fakeLexical{err: errors.New("lexical down")}
	vector := &fakeVector{err: errors.New("vector down")}
	e := newTestEngine(t, lexical, vector)

	resp, err := e.Search(context.Background(), Request{Query: "patience"})
	require.NoError(t, err)

	assert.Empty(t, resp.Hits)
	assert.Zero(t, resp.TotalCandidates)
	assert.Contains(t, resp.Diagnostics.LexicalError, "lexical down")
	assert.Contains(t, resp.Diagnostics.VectorError, "vector down")
}

func TestSearchCancelledContext(t *testing.T) {
	e := newTestEngine(t, &fakeLexical{}, &fakeVector{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Search(ctx, Request{Query: "patience"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchDefaultAndMaxLimit(t *testing.T) {
	rows := make([]*store.LexicalRow, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, &store.LexicalRow{
			DocID:         "doc" + strings.Repeat("x", i+1),
			EnglishText:   "patience",
			RelevanceCost: float64(i),
		})
	}
	lexical := &fakeLexical{rows: rows}
	e := newTestEngine(t, lexical, &fakeVector{})

	// Zero limit defaults to 10.
	resp, err := e.Search(context.Background(), Request{Query: "patience"})
	require.NoError(t, err)
	assert.Len(t, resp.Hits, 10)
	assert.Equal(t, 60, resp.TotalCandidates)

	// Limits above the cap are clamped to 50, and the overfetch scales.
	resp, err = e.Search(context.Background(), Request{Query: "patience", Limit: 200})
	require.NoError(t, err)
	assert.Len(t, resp.Hits, 50)
	assert.Equal(t, 250, lexical.gotLimit)
}

func TestSearchModeAndOverrides(t *testing.T) {
	lexical := &fakeLexical{rows: []*store.LexicalRow{
		{DocID: "a", EnglishText: "patience", RelevanceCost: 0},
	}}
	e := newTestEngine(t, lexical, &fakeVector{})

	resp, err := e.Search(context.Background(), Request{Query: "patience", Mode: ModeTermPriority})
	require.NoError(t, err)
	assert.Equal(t, ModeTermPriority, resp.Mode)
	assert.Equal(t, WeightsForMode(ModeTermPriority), resp.Weights)

	v := 0.9
	resp, err = e.Search(context.Background(), Request{
		Query:     "patience",
		Mode:      "bogus",
		Overrides: WeightOverrides{Vector: &v},
	})
	require.NoError(t, err)
	assert.Equal(t, ModeBalanced, resp.Mode)
	assert.Equal(t, 0.9, resp.Weights.Vector)
	assert.Equal(t, WeightsForMode(ModeBalanced).Lexical, resp.Weights.Lexical)
}

func TestSearchSynonymExpanderAppliesGroups(t *testing.T) {
	lexical := &fakeLexical{rows: []*store.LexicalRow{
		{DocID: "a", EnglishText: "the salah and the sawm of the believers earn rewards", RelevanceCost: 2},
	}}
	e := newTestEngine(t, lexical, &fakeVector{}, WithSynonymExpander(NewSynonymExpander()))

	// Four tokens route thematic; "prayer" and "fasting" hit only through
	// their synonym groups.
	resp, err := e.Search(context.Background(), Request{Query: "prayer fasting rewards believers"})
	require.NoError(t, err)

	require.Len(t, resp.Hits, 1)
	b := resp.Hits[0].Breakdown
	assert.InDelta(t, 1.0, b.TermCoverage, 1e-9)
	assert.InDelta(t, 0.10, b.ProximityBonus, 1e-9)
}

func TestSearchExplicitGroupsWinOverExpander(t *testing.T) {
	lexical := &fakeLexical{rows: []*store.LexicalRow{
		{DocID: "a", EnglishText: "the salah of the believer", RelevanceCost: 0},
	}}
	e := newTestEngine(t, lexical, &fakeVector{}, WithSynonymExpander(NewSynonymExpander()))

	resp, err := e.Search(context.Background(), Request{
		Query:         "prayer fasting rewards believers",
		SynonymGroups: [][]string{{"nothing"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Zero(t, resp.Hits[0].Breakdown.TermCoverage)
}

func TestSearchSnippetTruncation(t *testing.T) {
	long := strings.Repeat("patience ", 60)
	lexical := &fakeLexical{rows: []*store.LexicalRow{
		{DocID: "a", EnglishText: long, RelevanceCost: 0},
	}}
	e := newTestEngine(t, lexical, &fakeVector{})

	resp, err := e.Search(context.Background(), Request{Query: "patience"})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Len(t, []rune(resp.Hits[0].Snippet), snippetLength)
	assert.NotContains(t, resp.Hits[0].Snippet, "  ")
}

func TestSearchRecordsMetrics(t *testing.T) {
	metrics := telemetry.NewQueryMetrics()
	lexical := &fakeLexical{err: errors.New("down")}
	vector := &fakeVector{err: errors.New("down")}
	e := newTestEngine(t, lexical, vector, WithMetrics(metrics))

	_, err := e.Search(context.Background(), Request{Query: "narrated by Abu Huraira"})
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.IntentCounts[telemetry.IntentLabelNarrator])
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, int64(1), snap.DegradedCount)
}
