package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/maktabalab/maktabamcp/internal/config"
)

// DefaultDebounce coalesces rapid file events before re-ingesting.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-ingests collections whose book files change on disk.
// Events are debounced so a multi-file scraper run triggers one pass.
type Watcher struct {
	ingester    *Ingester
	collections []config.Collection
	debounce    time.Duration
	logger      *slog.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	stopped bool
}

// NewWatcher creates a watcher over the given collections' directories.
func NewWatcher(ingester *Ingester, collections []config.Collection, debounce time.Duration) (*Watcher, error) {
	if ingester == nil {
		return nil, fmt.Errorf("ingester is required")
	}
	if len(collections) == 0 {
		return nil, fmt.Errorf("no collections to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	for _, col := range collections {
		if err := fsw.Add(col.Path); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", col.Path, err)
		}
	}

	return &Watcher{
		ingester:    ingester,
		collections: collections,
		debounce:    debounce,
		logger:      slog.Default(),
		fsw:         fsw,
	}, nil
}

// Run watches until the context is canceled. Re-ingest failures are logged
// and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.Close() }()

	dirty := make(map[string]config.Collection)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			col, relevant := w.match(event)
			if !relevant {
				continue
			}
			dirty[col.Name] = col
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", slog.String("error", err.Error()))

		case <-timerC:
			timerC = nil
			cols := make([]config.Collection, 0, len(dirty))
			for _, col := range dirty {
				cols = append(cols, col)
			}
			clear(dirty)

			w.logger.Info("book files changed, re-ingesting",
				slog.Int("collections", len(cols)))
			if _, err := w.ingester.Ingest(ctx, cols, false); err != nil {
				w.logger.Error("re-ingest failed", slog.String("error", err.Error()))
			}
		}
	}
}

// match maps a file event to the collection it belongs to. Only book JSONL
// writes, creates, renames, and removes are relevant.
func (w *Watcher) match(event fsnotify.Event) (config.Collection, bool) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return config.Collection{}, false
	}

	base := filepath.Base(event.Name)
	if !strings.HasPrefix(base, "book_") || !strings.HasSuffix(base, ".jsonl") {
		return config.Collection{}, false
	}

	dir := filepath.Dir(event.Name)
	for _, col := range w.collections {
		if sameDir(dir, col.Path) {
			return col, true
		}
	}
	return config.Collection{}, false
}

func sameDir(a, b string) bool {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return aa == bb
}

// Close stops the watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	return w.fsw.Close()
}
