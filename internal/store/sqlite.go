package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, no CGO
)

// SQLiteDocumentStore implements DocumentStore on SQLite with WAL mode.
type SQLiteDocumentStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ DocumentStore = (*SQLiteDocumentStore)(nil)

// NewSQLiteDocumentStore opens or creates a document store at path.
// An empty path creates an in-memory store for testing.
func NewSQLiteDocumentStore(path string) (*SQLiteDocumentStore, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer avoids lock contention under the pure Go driver.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA; modernc.org/sqlite ignores DSN params.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLiteDocumentStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteDocumentStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		doc_id             TEXT PRIMARY KEY,
		collection         TEXT NOT NULL,
		book_id            TEXT NOT NULL,
		chapter_id         TEXT NOT NULL DEFAULT '',
		narrator           TEXT NOT NULL DEFAULT '',
		canonical_narrator TEXT NOT NULL DEFAULT '',
		english_text       TEXT NOT NULL,
		arabic_text        TEXT NOT NULL DEFAULT '',
		checksum           TEXT NOT NULL,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);

	CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDocuments upserts documents in a single transaction.
// Timestamps: CreatedAt is preserved on conflict, UpdatedAt always advances.
func (s *SQLiteDocumentStore) SaveDocuments(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("document store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (
			doc_id, collection, book_id, chapter_id, narrator,
			canonical_narrator, english_text, arabic_text, checksum,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			collection = excluded.collection,
			book_id = excluded.book_id,
			chapter_id = excluded.chapter_id,
			narrator = excluded.narrator,
			canonical_narrator = excluded.canonical_narrator,
			english_text = excluded.english_text,
			arabic_text = excluded.arabic_text,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, doc := range docs {
		created := doc.CreatedAt
		if created.IsZero() {
			created = now
		}
		updated := doc.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		_, err := stmt.ExecContext(ctx,
			doc.DocID, doc.Collection, doc.BookID, doc.ChapterID, doc.Narrator,
			doc.CanonicalNarrator, doc.EnglishText, doc.ArabicText, doc.Checksum,
			created.Format(time.RFC3339Nano), updated.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.DocID, err)
		}
	}

	return tx.Commit()
}

const documentColumns = `doc_id, collection, book_id, chapter_id, narrator,
	canonical_narrator, english_text, arabic_text, checksum, created_at, updated_at`

// GetDocument returns a single document, or nil if absent.
func (s *SQLiteDocumentStore) GetDocument(ctx context.Context, docID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE doc_id = ?`, docID)

	doc, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", docID, err)
	}
	return doc, nil
}

// GetDocuments returns documents for the given IDs in one query.
// Missing IDs are silently absent from the result.
func (s *SQLiteDocumentStore) GetDocuments(ctx context.Context, docIDs []string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}
	if len(docIDs) == 0 {
		return []*Document{}, nil
	}

	placeholders := strings.Repeat("?,", len(docIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(docIDs))
	for i, id := range docIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE doc_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*Document, 0, len(docIDs))
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetChecksums returns doc_id -> checksum for one collection.
func (s *SQLiteDocumentStore) GetChecksums(ctx context.Context, collection string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, checksum FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("get checksums: %w", err)
	}
	defer rows.Close()

	checksums := make(map[string]string)
	for rows.Next() {
		var docID, checksum string
		if err := rows.Scan(&docID, &checksum); err != nil {
			return nil, fmt.Errorf("scan checksum: %w", err)
		}
		checksums[docID] = checksum
	}
	return checksums, rows.Err()
}

// CountByCollection returns document counts per collection.
func (s *SQLiteDocumentStore) CountByCollection(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT collection, COUNT(*) FROM documents GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("count by collection: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var collection string
		var count int
		if err := rows.Scan(&collection, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[collection] = count
	}
	return counts, rows.Err()
}

// DeleteByCollection removes all documents of a collection.
func (s *SQLiteDocumentStore) DeleteByCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("document store is closed")
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", collection, err)
	}
	return nil
}

// GetState returns a state value, or empty string if absent.
func (s *SQLiteDocumentStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("document store is closed")
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

// SetState stores a state value.
func (s *SQLiteDocumentStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("document store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteDocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func scanDocument(scan func(dest ...interface{}) error) (*Document, error) {
	var doc Document
	var createdAt, updatedAt string

	err := scan(&doc.DocID, &doc.Collection, &doc.BookID, &doc.ChapterID,
		&doc.Narrator, &doc.CanonicalNarrator, &doc.EnglishText, &doc.ArabicText,
		&doc.Checksum, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &doc, nil
}
