// Package store provides entry persistence, the access/failure logs, and the
// lexical index adapters (SQLite FTS5 and Bleve).
package store

import (
	"context"
	"time"
)

// Layer is the memory layer an entry belongs to.
type Layer string

const (
	LayerInscribed Layer = "inscribed"
	LayerEtched    Layer = "etched"
	LayerTraced    Layer = "traced"
)

// EchoEntry is one recorded unit of agent memory. Entries are immutable once
// indexed; a reindex replaces the whole set.
type EchoEntry struct {
	ID         string   `json:"id"`
	Role       string   `json:"role"`
	Layer      Layer    `json:"layer"`
	Date       string   `json:"date"`
	Source     string   `json:"source"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	LineNumber int      `json:"line_number,omitempty"`
	FilePath   string   `json:"file_path,omitempty"`
}

// LexicalHit is a single result from the lexical index.
// Score follows the BM25 convention: more negative is more relevant.
type LexicalHit struct {
	ID      string
	Score   float64
	Preview string
}

// LexicalIndex is the full-text search collaborator. Implementations must
// return scores where more negative means more relevant; adapters over
// engines with positive-is-better scoring negate before returning.
type LexicalIndex interface {
	// Index adds entries to the index.
	Index(ctx context.Context, entries []*EchoEntry) error

	// Search returns up to limit hits for one facet string,
	// sorted most relevant (most negative) first.
	Search(ctx context.Context, facet string, limit int) ([]*LexicalHit, error)

	// Reset removes all indexed entries.
	Reset(ctx context.Context) error

	// Close releases index resources.
	Close() error
}

// FailureRecord tracks one (entry, query-fingerprint) search miss.
type FailureRecord struct {
	EntryID          string
	TokenFingerprint string
	RetryCount       int
	FirstFailedAt    time.Time
	LastRetriedAt    time.Time
}

// AccessLog records entry accesses and answers batched count queries.
type AccessLog interface {
	// RecordAccess appends one row per entry id. Empty ids are skipped.
	RecordAccess(ctx context.Context, entryIDs []string, query string) error

	// AccessCounts returns row counts per id. Ids with zero rows are
	// absent from the map.
	AccessCounts(ctx context.Context, entryIDs []string) (map[string]int, error)
}

// FailureStore persists per-(entry, fingerprint) search-miss state.
type FailureStore interface {
	// RecordSearchFailure inserts or bumps the failure row for the pair.
	// first_failed_at is set once and never rewritten; retry_count is
	// capped at MaxRetries.
	RecordSearchFailure(ctx context.Context, entryID, fingerprint string) error

	// ResetFailureOnMatch deletes exactly the row for the pair.
	ResetFailureOnMatch(ctx context.Context, entryID, fingerprint string) error

	// FailuresForFingerprint returns all rows recorded for a fingerprint.
	FailuresForFingerprint(ctx context.Context, fingerprint string) ([]*FailureRecord, error)

	// CleanupAgedFailures deletes rows whose first failure is older than
	// maxAge and returns the number deleted.
	CleanupAgedFailures(ctx context.Context, maxAge time.Duration) (int, error)
}

// MaxRetries caps retry_count; rows at the cap are excluded from retry
// candidates but kept until age cleanup.
const MaxRetries = 3
