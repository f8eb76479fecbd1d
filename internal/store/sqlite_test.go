package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocStore(t *testing.T) *SQLiteDocumentStore {
	t.Helper()
	s, err := NewSQLiteDocumentStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSaveAndGetDocument(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	docs := testDocuments()
	require.NoError(t, s.SaveDocuments(ctx, docs))

	got, err := s.GetDocument(ctx, "bukhari:1:1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bukhari", got.Collection)
	assert.Equal(t, "1", got.BookID)
	assert.Equal(t, "Umar bin Al-Khattab", got.CanonicalNarrator)
	assert.Contains(t, got.EnglishText, "intentions")
	assert.Contains(t, got.ArabicText, "الأعمال")
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSQLiteGetDocumentMissing(t *testing.T) {
	s := newTestDocStore(t)

	got, err := s.GetDocument(context.Background(), "absent:0:0")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteGetDocumentsBatch(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDocuments(ctx, testDocuments()))

	docs, err := s.GetDocuments(ctx, []string{"bukhari:1:1", "muslim:6:100", "absent:0:0"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = s.GetDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSQLiteUpsertPreservesCreatedAt(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := testDocuments()[0]
	doc.CreatedAt = created
	doc.UpdatedAt = created
	require.NoError(t, s.SaveDocuments(ctx, []*Document{doc}))

	doc.EnglishText = "updated text"
	doc.UpdatedAt = created.Add(time.Hour)
	require.NoError(t, s.SaveDocuments(ctx, []*Document{doc}))

	got, err := s.GetDocument(ctx, doc.DocID)
	require.NoError(t, err)
	assert.Equal(t, "updated text", got.EnglishText)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.UpdatedAt.After(created))
}

func TestSQLiteGetChecksums(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	docs := testDocuments()
	docs[0].Checksum = "aaa"
	docs[1].Checksum = "bbb"
	docs[2].Checksum = "ccc"
	require.NoError(t, s.SaveDocuments(ctx, docs))

	checksums, err := s.GetChecksums(ctx, "bukhari")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"bukhari:1:1":  "aaa",
		"bukhari:2:13": "bbb",
	}, checksums)

	checksums, err = s.GetChecksums(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, checksums)
}

func TestSQLiteCountByCollection(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDocuments(ctx, testDocuments()))

	counts, err := s.CountByCollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bukhari": 2, "muslim": 1}, counts)
}

func TestSQLiteDeleteByCollection(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDocuments(ctx, testDocuments()))
	require.NoError(t, s.DeleteByCollection(ctx, "bukhari"))

	counts, err := s.CountByCollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"muslim": 1}, counts)
}

func TestSQLiteState(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	// Absent keys read as empty.
	value, err := s.GetState(ctx, StateKeyIndexDimension)
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, s.SetState(ctx, StateKeyIndexDimension, "256"))
	require.NoError(t, s.SetState(ctx, StateKeyIndexModel, "static-256"))

	value, err = s.GetState(ctx, StateKeyIndexDimension)
	require.NoError(t, err)
	assert.Equal(t, "256", value)

	// Overwrite.
	require.NoError(t, s.SetState(ctx, StateKeyIndexDimension, "768"))
	value, err = s.GetState(ctx, StateKeyIndexDimension)
	require.NoError(t, err)
	assert.Equal(t, "768", value)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.db")
	ctx := context.Background()

	s, err := NewSQLiteDocumentStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveDocuments(ctx, testDocuments()))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteDocumentStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetDocument(ctx, "muslim:6:100")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Aisha", got.Narrator)
}

func TestSQLiteClosed(t *testing.T) {
	s, err := NewSQLiteDocumentStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.SaveDocuments(context.Background(), testDocuments()))
	_, err = s.GetDocument(context.Background(), "x")
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}
