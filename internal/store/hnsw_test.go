package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorIndex(t *testing.T) *HNSWVectorIndex {
	t.Helper()
	idx, err := NewHNSWVectorIndex(DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestHNSWAddAndSearch(t *testing.T) {
	idx := newTestVectorIndex(t)
	ctx := context.Background()

	err := idx.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0.9, 0.1, 0, 0},
		})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Exact match first, near-parallel vector second.
	assert.Equal(t, "a", hits[0].DocID)
	assert.Equal(t, "c", hits[1].DocID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestHNSWSimilarityBounded(t *testing.T) {
	idx := newTestVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx,
		[]string{"same", "opposite"},
		[][]float32{
			{1, 0, 0, 0},
			{-1, 0, 0, 0},
		}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Similarity, 0.0)
		assert.LessOrEqual(t, h.Similarity, 1.0)
	}
}

func TestHNSWDimensionMismatch(t *testing.T) {
	idx := newTestVectorIndex(t)
	ctx := context.Background()

	err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}})
	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorAs(t, err, &dimErr)
}

func TestHNSWSearchEmpty(t *testing.T) {
	idx := newTestVectorIndex(t)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHNSWDelete(t *testing.T) {
	idx := newTestVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))

	require.NoError(t, idx.Delete(ctx, []string{"a"}))
	assert.False(t, idx.Contains("a"))
	assert.True(t, idx.Contains("b"))
	assert.Equal(t, 1, idx.Count())

	// Lazy-deleted nodes never surface in results.
	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "a", h.DocID)
	}
}

func TestHNSWReplaceExisting(t *testing.T) {
	idx := newTestVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0, 0}}))
	require.NoError(t, idx.Add(ctx, []string{"a"}, [][]float32{{0, 1, 0, 0}}))
	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Search(ctx, []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].DocID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestHNSWSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")
	ctx := context.Background()

	idx := newTestVectorIndex(t)
	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))
	require.NoError(t, idx.Save(path))

	dims, err := ReadVectorIndexDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 4, dims)

	loaded, err := NewHNSWVectorIndex(DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = loaded.Close() })
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	hits, err := loaded.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].DocID)
}

func TestReadVectorIndexDimensionsMissing(t *testing.T) {
	dims, err := ReadVectorIndexDimensions(filepath.Join(t.TempDir(), "absent.hnsw"))
	require.NoError(t, err)
	assert.Zero(t, dims)
}

func TestHNSWClosed(t *testing.T) {
	idx, err := NewHNSWVectorIndex(DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	assert.Error(t, idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0, 0, 0}}))
	_, err = idx.Search(context.Background(), []float32{1, 0, 0, 0}, 1)
	assert.Error(t, err)
	assert.Zero(t, idx.Count())
	assert.NoError(t, idx.Close())
}

func TestNewHNSWVectorIndexInvalidDimensions(t *testing.T) {
	_, err := NewHNSWVectorIndex(VectorIndexConfig{Dimensions: 0})
	assert.Error(t, err)
}
