package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// FTSIndex implements LexicalIndex over SQLite FTS5, sharing the store's
// database. FTS5's bm25() ranking is natively negative-is-better, so scores
// pass through unchanged.
type FTSIndex struct {
	db *sql.DB
}

var _ LexicalIndex = (*FTSIndex)(nil)

// previewTokens bounds the snippet size returned with each hit.
const previewTokens = 24

// NewFTSIndex creates the FTS5 virtual table on db if needed.
func NewFTSIndex(db *sql.DB) (*FTSIndex, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	schema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS echo_fts USING fts5(
		entry_id UNINDEXED,
		content
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create fts schema: %w", err)
	}
	return &FTSIndex{db: db}, nil
}

// Index adds entries to the full-text index.
func (f *FTSIndex) Index(ctx context.Context, entries []*EchoEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO echo_fts (entry_id, content) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Content); err != nil {
			return fmt.Errorf("index entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Search runs one facet against the index. Scores come straight from
// bm25(), so more negative is more relevant.
func (f *FTSIndex) Search(ctx context.Context, facet string, limit int) ([]*LexicalHit, error) {
	match := buildMatchExpr(facet)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := f.db.QueryContext(ctx, `
		SELECT entry_id, bm25(echo_fts), snippet(echo_fts, 1, '', '', '…', ?)
		FROM echo_fts
		WHERE echo_fts MATCH ?
		ORDER BY bm25(echo_fts)
		LIMIT ?
	`, previewTokens, match, limit)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []*LexicalHit
	for rows.Next() {
		var h LexicalHit
		if err := rows.Scan(&h.ID, &h.Score, &h.Preview); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, &h)
	}
	return hits, rows.Err()
}

// Reset drops all indexed rows.
func (f *FTSIndex) Reset(ctx context.Context) error {
	if _, err := f.db.ExecContext(ctx, "DELETE FROM echo_fts"); err != nil {
		return fmt.Errorf("reset fts index: %w", err)
	}
	return nil
}

// Close is a no-op; the shared database is owned by the store.
func (f *FTSIndex) Close() error {
	return nil
}

var matchTokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// buildMatchExpr converts a free-form facet into a safe FTS5 MATCH
// expression. Every token is double-quoted so user input can never be
// interpreted as FTS query syntax.
func buildMatchExpr(facet string) string {
	tokens := matchTokenRegex.FindAllString(facet, -1)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}
