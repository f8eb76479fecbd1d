// Package ingest loads hadith book files (JSONL) into the document store,
// lexical index, and vector index, skipping records whose checksum is
// unchanged since the last run.
package ingest

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	maktabaerrors "github.com/maktabalab/maktabamcp/internal/errors"
	"github.com/maktabalab/maktabamcp/internal/normalize"
	"github.com/maktabalab/maktabamcp/internal/store"
)

const (
	// maxRecordErrors halts loading a book after this many malformed lines.
	maxRecordErrors = 10

	// checksumSeparator joins checksum payload fields. Matches the
	// separator the scraper uses, so checksums agree across tools.
	checksumSeparator = "␟"

	// maxLineBytes bounds a single JSONL line. Long narrations with
	// footnotes can exceed bufio's default.
	maxLineBytes = 1 << 20
)

// TextSegment is one language rendition of a hadith.
type TextSegment struct {
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Record is a single hadith as serialized by the scraper. Unknown fields
// (gradings, references, topics) are ignored.
type Record struct {
	CollectionSlug string        `json:"collection_slug"`
	BookID         string        `json:"book_id"`
	ChapterID      string        `json:"chapter_id"`
	HadithID       string        `json:"hadith_id_site"`
	Texts          []TextSegment `json:"texts"`
	Narrator       string        `json:"narrator"`
	Checksum       string        `json:"checksum"`
}

// DocID returns the canonical document ID: "{collection}:{book}:{hadith}".
func (r *Record) DocID() string {
	return fmt.Sprintf("%s:%s:%s", r.CollectionSlug, r.BookID, r.HadithID)
}

func (r *Record) textIn(language string) string {
	for _, t := range r.Texts {
		if t.Language == language {
			return t.Content
		}
	}
	return ""
}

// Validate checks that the record carries the fields every downstream
// consumer requires: a full ID triple and both language renditions.
func (r *Record) Validate() error {
	if r.CollectionSlug == "" || r.BookID == "" || r.HadithID == "" {
		return fmt.Errorf("record missing id fields (collection_slug=%q book_id=%q hadith_id_site=%q)",
			r.CollectionSlug, r.BookID, r.HadithID)
	}
	if strings.TrimSpace(r.textIn("en")) == "" {
		return fmt.Errorf("record %s missing English text", r.DocID())
	}
	if strings.TrimSpace(r.textIn("ar")) == "" {
		return fmt.Errorf("record %s missing Arabic text", r.DocID())
	}
	return nil
}

// computeChecksum derives the content checksum for records the scraper
// wrote without one. Payload layout matches the scraper's computed field.
func (r *Record) computeChecksum() string {
	texts := make([]string, 0, len(r.Texts))
	for _, t := range r.Texts {
		texts = append(texts, t.Content)
	}
	payload := strings.Join([]string{
		r.CollectionSlug,
		r.BookID,
		r.HadithID,
		strings.Join(texts, checksumSeparator),
	}, checksumSeparator)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ToDocument converts the record to its store representation.
func (r *Record) ToDocument() *store.Document {
	checksum := r.Checksum
	if checksum == "" {
		checksum = r.computeChecksum()
	}
	now := time.Now().UTC()
	return &store.Document{
		DocID:             r.DocID(),
		Collection:        r.CollectionSlug,
		BookID:            r.BookID,
		ChapterID:         r.ChapterID,
		Narrator:          r.Narrator,
		CanonicalNarrator: normalize.ExtractNarratorName(r.Narrator),
		EnglishText:       strings.TrimSpace(r.textIn("en")),
		ArabicText:        strings.TrimSpace(r.textIn("ar")),
		Checksum:          checksum,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// BookStats summarizes one loaded book file.
type BookStats struct {
	Path            string
	Records         int
	UniqueNarrators int
	Warnings        []string
}

// ListBookFiles returns the book JSONL files under dir in lexical order.
func ListBookFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "book_*.jsonl"))
	if err != nil {
		return nil, maktabaerrors.IOError(fmt.Sprintf("listing book files in %s", dir), err)
	}
	return paths, nil
}

// LoadBook reads and validates one JSONL book file. Malformed lines are
// collected as warnings; loading halts with an error once maxRecordErrors
// is reached.
func LoadBook(path string) ([]*store.Document, *BookStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, maktabaerrors.IOError(fmt.Sprintf("opening book file %s", path), err)
	}
	defer func() { _ = f.Close() }()

	stats := &BookStats{Path: path}
	narrators := make(map[string]struct{})
	var docs []*store.Document
	errorCount := 0
	lineNo := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			errorCount++
			stats.Warnings = append(stats.Warnings, fmt.Sprintf("%s:%d: %v", filepath.Base(path), lineNo, err))
			if errorCount >= maxRecordErrors {
				return nil, nil, maktabaerrors.ValidationError(
					fmt.Sprintf("halted after %d malformed records in %s", errorCount, path), err)
			}
			continue
		}
		if err := rec.Validate(); err != nil {
			errorCount++
			stats.Warnings = append(stats.Warnings, fmt.Sprintf("%s:%d: %v", filepath.Base(path), lineNo, err))
			if errorCount >= maxRecordErrors {
				return nil, nil, maktabaerrors.ValidationError(
					fmt.Sprintf("halted after %d invalid records in %s", errorCount, path), err)
			}
			continue
		}

		doc := rec.ToDocument()
		if doc.CanonicalNarrator != "" {
			narrators[doc.CanonicalNarrator] = struct{}{}
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, maktabaerrors.IOError(fmt.Sprintf("reading book file %s", path), err)
	}

	stats.Records = len(docs)
	stats.UniqueNarrators = len(narrators)
	return docs, stats, nil
}
