package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktabalab/maktabamcp/internal/config"
)

func TestNewWatcherValidation(t *testing.T) {
	ts := newTestStores(t)
	ing := newTestIngester(t, ts, Options{})

	_, err := NewWatcher(nil, []config.Collection{{Name: "x", Path: t.TempDir()}}, 0)
	assert.Error(t, err)

	_, err = NewWatcher(ing, nil, 0)
	assert.Error(t, err)

	_, err = NewWatcher(ing, []config.Collection{{Name: "x", Path: "/nonexistent/dir"}}, 0)
	assert.Error(t, err)
}

func TestWatcherMatch(t *testing.T) {
	ts := newTestStores(t)
	ing := newTestIngester(t, ts, Options{})
	dir := t.TempDir()
	col := config.Collection{Name: "bukhari", Path: dir}

	w, err := NewWatcher(ing, []config.Collection{col}, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"book write", fsnotify.Event{Name: dir + "/book_1.jsonl", Op: fsnotify.Write}, true},
		{"book create", fsnotify.Event{Name: dir + "/book_2.jsonl", Op: fsnotify.Create}, true},
		{"book remove", fsnotify.Event{Name: dir + "/book_1.jsonl", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: dir + "/book_1.jsonl", Op: fsnotify.Chmod}, false},
		{"index json", fsnotify.Event{Name: dir + "/index.json", Op: fsnotify.Write}, false},
		{"wrong prefix", fsnotify.Event{Name: dir + "/notes_1.jsonl", Op: fsnotify.Write}, false},
		{"other dir", fsnotify.Event{Name: "/elsewhere/book_1.jsonl", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, ok := w.match(tt.event)
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.Equal(t, "bukhari", matched.Name)
			}
		})
	}
}

func TestWatcherReIngestsOnChange(t *testing.T) {
	ts := newTestStores(t)
	ing := newTestIngester(t, ts, Options{})
	col := seedCollection(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := ing.Ingest(ctx, []config.Collection{col}, false)
	require.NoError(t, err)

	w, err := NewWatcher(ing, []config.Collection{col}, 20*time.Millisecond)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	// A new book file appears after the initial ingest.
	writeBook(t, col.Path, "book_3.jsonl",
		recordLine("bukhari", "3", "50", "Narrated Abu Huraira:",
			"Faith has over seventy branches", "الإيمان بضع وسبعون شعبة"),
	)

	assert.Eventually(t, func() bool {
		counts, err := ts.docs.CountByCollection(context.Background())
		return err == nil && counts["bukhari"] == 4
	}, 5*time.Second, 25*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}
