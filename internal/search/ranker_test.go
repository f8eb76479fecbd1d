package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankOrdersByScoreDescending(t *testing.T) {
	hits := []Hit{
		{DocID: "a", Score: 0.2},
		{DocID: "b", Score: 0.9},
		{DocID: "c", Score: 0.5},
	}

	ranked := Rank(hits, 10)
	assert.Equal(t, []string{"b", "c", "a"}, docIDs(ranked))
	// Input is untouched.
	assert.Equal(t, "a", hits[0].DocID)
}

func TestRankTruncatesToLimit(t *testing.T) {
	hits := []Hit{
		{DocID: "a", Score: 0.2},
		{DocID: "b", Score: 0.9},
		{DocID: "c", Score: 0.5},
	}

	ranked := Rank(hits, 2)
	assert.Equal(t, []string{"b", "c"}, docIDs(ranked))
}

func TestRankStableOnTies(t *testing.T) {
	hits := []Hit{
		{DocID: "a", Score: 0.5},
		{DocID: "b", Score: 0.5},
		{DocID: "c", Score: 0.5},
	}

	ranked := Rank(hits, 10)
	assert.Equal(t, []string{"a", "b", "c"}, docIDs(ranked))
}

func TestRankIdempotent(t *testing.T) {
	hits := []Hit{
		{DocID: "a", Score: 0.2},
		{DocID: "b", Score: 0.9},
		{DocID: "c", Score: 0.9},
		{DocID: "d", Score: 0.5},
	}

	once := Rank(hits, 10)
	twice := Rank(once, 10)
	assert.Equal(t, once, twice)
}

func TestRankNonPositiveLimit(t *testing.T) {
	hits := []Hit{{DocID: "a", Score: 0.5}}

	assert.Empty(t, Rank(hits, 0))
	assert.Empty(t, Rank(hits, -1))
}

func TestRankEmptyInput(t *testing.T) {
	assert.Empty(t, Rank(nil, 5))
	assert.Empty(t, Rank([]Hit{}, 5))
}

func docIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocID
	}
	return ids
}
