package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/maktabalab/maktabamcp/internal/config"
	"github.com/maktabalab/maktabamcp/internal/embed"
	maktabaerrors "github.com/maktabalab/maktabamcp/internal/errors"
	"github.com/maktabalab/maktabamcp/internal/store"
)

const (
	// DefaultWorkers is the number of parallel embedding workers.
	DefaultWorkers = 4

	// DefaultBatchSize is the number of documents embedded per request.
	DefaultBatchSize = 32
)

// Options configures an Ingester.
type Options struct {
	// Workers is the number of concurrent embedding batches. Zero means
	// DefaultWorkers.
	Workers int

	// BatchSize is the number of documents per embedding batch. Zero
	// means DefaultBatchSize.
	BatchSize int

	// LockPath is the cross-process ingest lock file. Empty disables
	// locking (tests).
	LockPath string

	// VectorSavePath persists the vector index after each run that
	// embedded documents. Empty skips persistence.
	VectorSavePath string

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Result summarizes one ingested collection.
type Result struct {
	Collection string
	Books      int
	Processed  int
	Indexed    int
	Skipped    int
	Warnings   []string
	Duration   time.Duration
}

// Ingester loads book files into the document store, the lexical index,
// and the vector index. The lexical index and the embedder/vector pair are
// each optional; a nil member skips that stage.
type Ingester struct {
	docs      store.DocumentStore
	lexical   store.LexicalIndex
	vector    store.VectorIndex
	embedder  embed.Embedder
	workers   int
	batchSize int
	lockPath  string
	savePath  string
	logger    *slog.Logger
}

// NewIngester creates an ingester. The document store is required.
func NewIngester(docs store.DocumentStore, lexical store.LexicalIndex, vector store.VectorIndex, embedder embed.Embedder, opts Options) (*Ingester, error) {
	if docs == nil {
		return nil, maktabaerrors.ValidationError("document store is required", nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Ingester{
		docs:      docs,
		lexical:   lexical,
		vector:    vector,
		embedder:  embedder,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		lockPath:  opts.LockPath,
		savePath:  opts.VectorSavePath,
		logger:    opts.Logger,
	}, nil
}

// Ingest processes the given collections under the ingest lock. When force
// is true, checksum comparison is bypassed and every record is re-indexed.
func (in *Ingester) Ingest(ctx context.Context, collections []config.Collection, force bool) ([]*Result, error) {
	unlock, err := in.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	results := make([]*Result, 0, len(collections))
	for _, col := range collections {
		res, err := in.ingestCollection(ctx, col, force)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// acquireLock takes the cross-process ingest lock without blocking.
func (in *Ingester) acquireLock() (func(), error) {
	if in.lockPath == "" {
		return func() {}, nil
	}

	lock := flock.New(in.lockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, maktabaerrors.IOError(fmt.Sprintf("acquiring ingest lock %s", in.lockPath), err)
	}
	if !acquired {
		return nil, maktabaerrors.New(maktabaerrors.ErrCodeIngestLocked,
			fmt.Sprintf("another ingest is running (lock held at %s)", in.lockPath), nil).
			WithSuggestion("Wait for the running ingest to finish, or remove a stale lock file.")
	}
	return func() { _ = lock.Unlock() }, nil
}

func (in *Ingester) ingestCollection(ctx context.Context, col config.Collection, force bool) (*Result, error) {
	start := time.Now()
	res := &Result{Collection: col.Name}

	paths, err := ListBookFiles(col.Path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, maktabaerrors.IOError(fmt.Sprintf("no book files found in %s", col.Path), nil).
			WithSuggestion("Book files are named book_<id>.jsonl. Check the collection path in the config.")
	}
	res.Books = len(paths)

	var docs []*store.Document
	for _, path := range paths {
		bookDocs, stats, err := LoadBook(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, bookDocs...)
		res.Warnings = append(res.Warnings, stats.Warnings...)
	}
	res.Processed = len(docs)

	changed := docs
	if !force {
		checksums, err := in.docs.GetChecksums(ctx, col.Name)
		if err != nil {
			return nil, err
		}
		changed = changed[:0:0]
		for _, doc := range docs {
			if checksums[doc.DocID] != doc.Checksum {
				changed = append(changed, doc)
			}
		}
	}
	res.Skipped = res.Processed - len(changed)

	in.logger.Info("ingesting collection",
		slog.String("collection", col.Name),
		slog.Int("books", res.Books),
		slog.Int("records", res.Processed),
		slog.Int("changed", len(changed)),
		slog.Bool("force", force))

	if len(changed) == 0 {
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := in.docs.SaveDocuments(ctx, changed); err != nil {
		return nil, err
	}
	if in.lexical != nil {
		if err := in.lexical.Index(ctx, changed); err != nil {
			return nil, err
		}
	}
	if in.embedder != nil && in.vector != nil {
		if err := in.embedDocuments(ctx, changed); err != nil {
			return nil, err
		}
		if err := in.recordIndexState(ctx); err != nil {
			return nil, err
		}
		if in.savePath != "" {
			if err := in.vector.Save(in.savePath); err != nil {
				return nil, fmt.Errorf("persist vector index: %w", err)
			}
		}
	}

	res.Indexed = len(changed)
	res.Duration = time.Since(start)

	in.logger.Info("collection ingested",
		slog.String("collection", col.Name),
		slog.Int("indexed", res.Indexed),
		slog.Int("skipped", res.Skipped),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// embedDocuments embeds changed documents in parallel batches and inserts
// the vectors. The vector index serializes writes internally.
func (in *Ingester) embedDocuments(ctx context.Context, docs []*store.Document) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers)

	for offset := 0; offset < len(docs); offset += in.batchSize {
		batch := docs[offset:min(offset+in.batchSize, len(docs))]
		g.Go(func() error {
			ids := make([]string, len(batch))
			payloads := make([]string, len(batch))
			for i, doc := range batch {
				ids[i] = doc.DocID
				payloads[i] = renderDocument(doc)
			}

			vectors, err := in.embedder.EmbedBatch(ctx, payloads)
			if err != nil {
				return fmt.Errorf("embedding batch of %d: %w", len(batch), err)
			}
			return in.vector.Add(ctx, ids, vectors)
		})
	}
	return g.Wait()
}

// recordIndexState stores the embedder identity so a later search run can
// detect a model or dimension change.
func (in *Ingester) recordIndexState(ctx context.Context) error {
	if err := in.docs.SetState(ctx, store.StateKeyIndexDimension, strconv.Itoa(in.embedder.Dimensions())); err != nil {
		return err
	}
	return in.docs.SetState(ctx, store.StateKeyIndexModel, in.embedder.ModelName())
}

// renderDocument builds the embedding payload: narrator header when known,
// then the English and Arabic texts.
func renderDocument(doc *store.Document) string {
	narrator := doc.CanonicalNarrator
	if narrator == "" {
		narrator = doc.Narrator
	}

	payload := doc.EnglishText + "\n\n" + doc.ArabicText
	if narrator != "" {
		payload = "Narrator: " + narrator + "\n" + payload
	}
	return payload
}
