// Package maintain handles reindexing and periodic store hygiene: access
// log pruning, aged failure cleanup, and the change watcher that triggers
// reindexes.
package maintain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"github.com/reverb-labs/echosearch/internal/search"
	"github.com/reverb-labs/echosearch/internal/store"
)

// Maintainer coordinates reindex and pruning against the shared store.
// A file lock serializes reindexes across processes sharing one database.
type Maintainer struct {
	store *store.SQLiteStore
	index store.LexicalIndex
	lock  *flock.Flock
	cron  *cron.Cron
}

// ReindexStats summarizes one reindex run.
type ReindexStats struct {
	Entries      int
	AgedAccess   int
	OrphanAccess int
	AgedFailures int
	Elapsed      time.Duration
}

// New creates a maintainer. dataDir holds the cross-process lock file.
func New(s *store.SQLiteStore, index store.LexicalIndex, dataDir string) *Maintainer {
	return &Maintainer{
		store: s,
		index: index,
		lock:  flock.New(filepath.Join(dataDir, "reindex.lock")),
	}
}

// Reindex replaces the entry set wholesale and runs the opportunistic
// cleanups: aged and orphaned access rows, and failure rows past their age
// window. Entries are immutable once indexed, so replacement is the only
// mutation path.
func (m *Maintainer) Reindex(ctx context.Context, entries []*store.EchoEntry) (ReindexStats, error) {
	start := time.Now()
	var stats ReindexStats

	locked, err := m.lock.TryLock()
	if err != nil {
		return stats, fmt.Errorf("acquire reindex lock: %w", err)
	}
	if !locked {
		return stats, fmt.Errorf("another reindex is in progress")
	}
	defer func() { _ = m.lock.Unlock() }()

	if err := m.store.ReplaceEntries(ctx, entries); err != nil {
		return stats, fmt.Errorf("replace entries: %w", err)
	}
	if err := m.index.Reset(ctx); err != nil {
		return stats, fmt.Errorf("reset lexical index: %w", err)
	}
	if err := m.index.Index(ctx, entries); err != nil {
		return stats, fmt.Errorf("rebuild lexical index: %w", err)
	}
	stats.Entries = len(entries)

	// Hygiene failures don't fail the reindex; the next run retries.
	aged, orphans, err := m.store.PruneAccessLog(ctx, search.AccessLogMaxAge)
	if err != nil {
		slog.Warn("access_log_prune_failed", slog.String("error", err.Error()))
	}
	stats.AgedAccess = aged
	stats.OrphanAccess = orphans

	deleted, err := m.store.CleanupAgedFailures(ctx, search.RetryMaxAge)
	if err != nil {
		slog.Warn("failure_cleanup_failed", slog.String("error", err.Error()))
	}
	stats.AgedFailures = deleted

	stats.Elapsed = time.Since(start)
	slog.Info("reindex_complete",
		slog.Int("entries", stats.Entries),
		slog.Int("aged_access", stats.AgedAccess),
		slog.Int("orphan_access", stats.OrphanAccess),
		slog.Int("aged_failures", stats.AgedFailures),
		slog.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// ReindexFromJSONL loads entries from the parser's JSONL export and
// reindexes.
func (m *Maintainer) ReindexFromJSONL(ctx context.Context, path string) (ReindexStats, error) {
	entries, err := store.ReadEntriesJSONL(path)
	if err != nil {
		return ReindexStats{}, err
	}
	return m.Reindex(ctx, entries)
}

// StartSchedule runs the pruning job on the given cron schedule until
// StopSchedule is called.
func (m *Maintainer) StartSchedule(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, _, err := m.store.PruneAccessLog(ctx, search.AccessLogMaxAge); err != nil {
			slog.Warn("scheduled_access_prune_failed", slog.String("error", err.Error()))
		}
		if _, err := m.store.CleanupAgedFailures(ctx, search.RetryMaxAge); err != nil {
			slog.Warn("scheduled_failure_cleanup_failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	c.Start()
	m.cron = c
	slog.Info("maintenance_scheduled", slog.String("schedule", schedule))
	return nil
}

// StopSchedule stops the cron runner, waiting for a running job.
func (m *Maintainer) StopSchedule() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
		m.cron = nil
	}
}
