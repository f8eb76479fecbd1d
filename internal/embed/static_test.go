package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedderBasics(t *testing.T) {
	e := NewStaticEmbedder()
	t.Cleanup(func() { _ = e.Close() })

	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.Equal(t, "static-hash-256", e.ModelName())
	assert.True(t, e.Available(context.Background()))
}

func TestStaticEmbedDeterministic(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "the night prayer of the Prophet")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "the night prayer of the Prophet")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
}

func TestStaticEmbedUnitLength(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "fasting in ramadan")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestStaticEmbedEmptyText(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, vec, StaticDimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}

	// Stop-word-only input also yields the zero vector.
	vec, err = e.Embed(context.Background(), "the of and")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestStaticEmbedSimilarTextsCloser(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	prayer1, err := e.Embed(ctx, "the reward of night prayer")
	require.NoError(t, err)
	prayer2, err := e.Embed(ctx, "night prayer brings reward")
	require.NoError(t, err)
	trade, err := e.Embed(ctx, "selling goods with interest riba")
	require.NoError(t, err)

	assert.Greater(t, dot(prayer1, prayer2), dot(prayer1, trade))
}

func TestStaticEmbedArabicDiacriticsInsensitive(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	plain, err := e.Embed(ctx, "الصلاة في الليل")
	require.NoError(t, err)
	vocalized, err := e.Embed(ctx, "الصَّلَاةُ في اللَّيْل")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, dot(plain, vocalized), 1e-5)
}

func TestStaticEmbedBatch(t *testing.T) {
	e := NewStaticEmbedder()

	vecs, err := e.EmbedBatch(context.Background(), []string{"prayer", "fasting", "charity"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	single, err := e.Embed(context.Background(), "fasting")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[1])
}

func TestStaticEmbedBatchCancelled(t *testing.T) {
	e := NewStaticEmbedder()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EmbedBatch(ctx, []string{"prayer"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNgrams(t *testing.T) {
	assert.Equal(t, []string{"pra", "ray", "aye", "yer"}, ngrams("prayer", 3))
	assert.Nil(t, ngrams("ab", 3))
	// Rune-based, not byte-based.
	assert.Equal(t, []string{"صلا", "لاة"}, ngrams("صلاة", 3))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestNormalizeVector(t *testing.T) {
	vec := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)

	zero := normalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
	assert.False(t, math.IsNaN(float64(zero[0])))
}
