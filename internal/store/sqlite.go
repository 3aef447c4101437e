package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteStore persists echo entries, the access log, and the failure log in
// a single SQLite database. WAL mode allows concurrent multi-process access;
// cross-process correctness relies on SQLite's own transactional isolation.
type SQLiteStore struct {
	db   *sql.DB
	path string

	// now is injectable for time-based tests.
	now func() time.Time
}

var (
	_ AccessLog    = (*SQLiteStore)(nil)
	_ FailureStore = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) the store at path.
// An empty path opens an in-memory store for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer connection to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite; DSN params are ignored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS echo_entries (
		id          TEXT PRIMARY KEY,
		role        TEXT NOT NULL DEFAULT '',
		layer       TEXT NOT NULL DEFAULT '',
		date        TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		tags        TEXT NOT NULL DEFAULT '',
		line_number INTEGER NOT NULL DEFAULT 0,
		file_path   TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS echo_access_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id    TEXT NOT NULL,
		accessed_at TEXT NOT NULL,
		query       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_access_entry ON echo_access_log(entry_id);
	CREATE INDEX IF NOT EXISTS idx_access_time  ON echo_access_log(accessed_at);

	CREATE TABLE IF NOT EXISTS echo_search_failures (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id          TEXT NOT NULL REFERENCES echo_entries(id) ON DELETE CASCADE,
		token_fingerprint TEXT NOT NULL,
		retry_count       INTEGER NOT NULL DEFAULT 0,
		first_failed_at   TEXT NOT NULL,
		last_retried_at   TEXT NOT NULL,
		UNIQUE(entry_id, token_fingerprint)
	);
	CREATE INDEX IF NOT EXISTS idx_failures_fingerprint ON echo_search_failures(token_fingerprint);
	CREATE INDEX IF NOT EXISTS idx_failures_entry       ON echo_search_failures(entry_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle so collaborators (FTS index, stats) can
// share the same database file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceEntries swaps the full entry set in one transaction. Entries are
// upserted rather than delete-all-then-insert so failure rows for entries
// that survive the reindex are preserved; rows for removed entries are
// dropped by the foreign-key cascade when the stale ids are pruned.
func (s *SQLiteStore) ReplaceEntries(ctx context.Context, entries []*EchoEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"CREATE TEMP TABLE IF NOT EXISTS reindex_ids (id TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("create id set: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM reindex_ids"); err != nil {
		return fmt.Errorf("clear id set: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO echo_entries (id, role, layer, date, source, content, tags, line_number, file_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role        = excluded.role,
			layer       = excluded.layer,
			date        = excluded.date,
			source      = excluded.source,
			content     = excluded.content,
			tags        = excluded.tags,
			line_number = excluded.line_number,
			file_path   = excluded.file_path
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	idStmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO reindex_ids (id) VALUES (?)")
	if err != nil {
		return fmt.Errorf("prepare id insert: %w", err)
	}
	defer func() { _ = idStmt.Close() }()

	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		_, err := stmt.ExecContext(ctx, e.ID, e.Role, string(e.Layer), e.Date, e.Source,
			e.Content, strings.Join(e.Tags, ","), e.LineNumber, e.FilePath)
		if err != nil {
			return fmt.Errorf("upsert entry %s: %w", e.ID, err)
		}
		if _, err := idStmt.ExecContext(ctx, e.ID); err != nil {
			return fmt.Errorf("track entry id %s: %w", e.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM echo_entries WHERE id NOT IN (SELECT id FROM reindex_ids)"); err != nil {
		return fmt.Errorf("prune removed entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetEntry fetches one entry by id. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*EchoEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, role, layer, date, source, content, tags, line_number, file_path
		FROM echo_entries WHERE id = ?
	`, id)

	var e EchoEntry
	var layer, tags string
	err := row.Scan(&e.ID, &e.Role, &layer, &e.Date, &e.Source, &e.Content, &tags, &e.LineNumber, &e.FilePath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.Layer = Layer(layer)
	if tags != "" {
		e.Tags = strings.Split(tags, ",")
	}
	return &e, nil
}

// AllEntries returns every stored entry, for lexical index rebuilds.
func (s *SQLiteStore) AllEntries(ctx context.Context) ([]*EchoEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, layer, date, source, content, tags, line_number, file_path
		FROM echo_entries ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*EchoEntry
	for rows.Next() {
		var e EchoEntry
		var layer, tags string
		if err := rows.Scan(&e.ID, &e.Role, &layer, &e.Date, &e.Source, &e.Content, &tags, &e.LineNumber, &e.FilePath); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Layer = Layer(layer)
		if tags != "" {
			e.Tags = strings.Split(tags, ",")
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// EntryCount returns the number of stored entries.
func (s *SQLiteStore) EntryCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM echo_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// RecordAccess appends one access row per entry id. Empty ids are skipped,
// not fatal; an empty slice is a no-op. Queries are capped at 500 chars.
func (s *SQLiteStore) RecordAccess(ctx context.Context, entryIDs []string, query string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	if len(query) > 500 {
		query = query[:500]
	}
	accessedAt := s.now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO echo_access_log (entry_id, accessed_at, query) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range entryIDs {
		if id == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, id, accessedAt, query); err != nil {
			return fmt.Errorf("insert access row: %w", err)
		}
	}
	return tx.Commit()
}

// AccessCounts returns access-log row counts per id in one batched query.
// Ids with no rows are absent from the returned map.
func (s *SQLiteStore) AccessCounts(ctx context.Context, entryIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(entryIDs) == 0 {
		return counts, nil
	}

	placeholders := strings.Repeat("?,", len(entryIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(entryIDs))
	for i, id := range entryIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT entry_id, COUNT(*) FROM echo_access_log
		WHERE entry_id IN (%s) GROUP BY entry_id
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query access counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan access count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// PruneAccessLog deletes rows older than maxAge and rows whose entry no
// longer exists. The two prunes are independent; both run during reindex.
func (s *SQLiteStore) PruneAccessLog(ctx context.Context, maxAge time.Duration) (aged, orphans int, err error) {
	cutoff := s.now().UTC().Add(-maxAge).Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx, "DELETE FROM echo_access_log WHERE accessed_at < ?", cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("prune aged access rows: %w", err)
	}
	n, _ := res.RowsAffected()
	aged = int(n)

	res, err = s.db.ExecContext(ctx, `
		DELETE FROM echo_access_log
		WHERE entry_id NOT IN (SELECT id FROM echo_entries)
	`)
	if err != nil {
		return aged, 0, fmt.Errorf("prune orphan access rows: %w", err)
	}
	n, _ = res.RowsAffected()
	orphans = int(n)

	if aged > 0 || orphans > 0 {
		slog.Debug("access_log_pruned",
			slog.Int("aged", aged),
			slog.Int("orphans", orphans))
	}
	return aged, orphans, nil
}

// RecordSearchFailure inserts or bumps the failure row for the pair.
// A no-op when either argument is empty: empty ids indicate an upstream
// defect and must not abort a search. first_failed_at is written once;
// subsequent failures bump retry_count (capped at MaxRetries) and
// last_retried_at only.
func (s *SQLiteStore) RecordSearchFailure(ctx context.Context, entryID, fingerprint string) error {
	if entryID == "" || fingerprint == "" {
		return nil
	}
	now := s.now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO echo_search_failures (entry_id, token_fingerprint, retry_count, first_failed_at, last_retried_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT(entry_id, token_fingerprint) DO UPDATE SET
			retry_count     = MIN(retry_count + 1, ?),
			last_retried_at = excluded.last_retried_at
	`, entryID, fingerprint, now, now, MaxRetries)
	if err != nil {
		return fmt.Errorf("record search failure: %w", err)
	}
	return nil
}

// ResetFailureOnMatch deletes exactly the (entry, fingerprint) row.
// Other fingerprints for the same entry are untouched.
func (s *SQLiteStore) ResetFailureOnMatch(ctx context.Context, entryID, fingerprint string) error {
	if entryID == "" || fingerprint == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM echo_search_failures WHERE entry_id = ? AND token_fingerprint = ?",
		entryID, fingerprint)
	if err != nil {
		return fmt.Errorf("reset failure: %w", err)
	}
	return nil
}

// FailuresForFingerprint returns all failure rows for a fingerprint.
// Eligibility filtering (retry cap, age window) is the caller's concern.
func (s *SQLiteStore) FailuresForFingerprint(ctx context.Context, fingerprint string) ([]*FailureRecord, error) {
	if fingerprint == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, token_fingerprint, retry_count, first_failed_at, last_retried_at
		FROM echo_search_failures
		WHERE token_fingerprint = ?
		ORDER BY first_failed_at
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*FailureRecord
	for rows.Next() {
		var r FailureRecord
		var first, last string
		if err := rows.Scan(&r.EntryID, &r.TokenFingerprint, &r.RetryCount, &first, &last); err != nil {
			return nil, fmt.Errorf("scan failure row: %w", err)
		}
		r.FirstFailedAt, _ = time.Parse(time.RFC3339, first)
		r.LastRetriedAt, _ = time.Parse(time.RFC3339, last)
		records = append(records, &r)
	}
	return records, rows.Err()
}

// CleanupAgedFailures deletes rows whose first failure is older than maxAge.
// Age is measured from first_failed_at, never from the last retry.
func (s *SQLiteStore) CleanupAgedFailures(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge).Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM echo_search_failures WHERE first_failed_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup aged failures: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
