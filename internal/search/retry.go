package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/reverb-labs/echosearch/internal/store"
)

// RetryTracker records per-(entry, query-fingerprint) search misses and
// re-injects still-eligible misses as low-confidence candidates. A row moves
// NONE -> FAILING(0..MaxRetries-1) -> RESOLVED (deleted on match) |
// EXHAUSTED (at the cap, excluded but kept) | EXPIRED (deleted by age
// cleanup measured from the first failure).
type RetryTracker struct {
	failures store.FailureStore
	now      func() time.Time
}

// NewRetryTracker creates a tracker over the failure store.
func NewRetryTracker(failures store.FailureStore) *RetryTracker {
	return &RetryTracker{failures: failures, now: time.Now}
}

// Fingerprint computes the stable token fingerprint for a query: tokenize,
// drop stop words and tokens shorter than 2 chars, lowercase, deduplicate,
// sort, join with single spaces, SHA-256 hex digest. Invariant to token
// order, case, and duplication. Returns "" when no tokens survive.
func Fingerprint(query string) string {
	query = truncate(query, QueryTruncateLen)

	seen := make(map[string]struct{})
	var tokens []string
	for _, tok := range queryTokenRegex.FindAllString(strings.ToLower(query), -1) {
		if len(tok) < 2 || isStopWord(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return ""
	}
	sort.Strings(tokens)

	sum := sha256.Sum256([]byte(strings.Join(tokens, " ")))
	return hex.EncodeToString(sum[:])
}

// RecordFailure stores a search miss for the pair. Soft-fail: storage errors
// are logged, never surfaced.
func (t *RetryTracker) RecordFailure(ctx context.Context, entryID, fingerprint string) {
	if entryID == "" || fingerprint == "" {
		return
	}
	if err := t.failures.RecordSearchFailure(ctx, entryID, fingerprint); err != nil {
		slog.Warn("record_failure_failed",
			slog.String("entry_id", entryID),
			slog.String("error", err.Error()))
	}
}

// ResetOnMatch deletes the failure row for the exact pair after a genuine
// match. Soft-fail.
func (t *RetryTracker) ResetOnMatch(ctx context.Context, entryID, fingerprint string) {
	if entryID == "" || fingerprint == "" {
		return
	}
	if err := t.failures.ResetFailureOnMatch(ctx, entryID, fingerprint); err != nil {
		slog.Warn("reset_failure_failed",
			slog.String("entry_id", entryID),
			slog.String("error", err.Error()))
	}
}

// RetryCandidates returns synthetic low-confidence results for eligible
// failure rows: not already matched, under the retry cap, and younger than
// RetryMaxAge by first failure. Each carries score = -FailureScoreBoost
// (4-decimal rounded) and the RetrySource marker.
func (t *RetryTracker) RetryCandidates(ctx context.Context, fingerprint string, matchedIDs map[string]struct{}) []*Result {
	if fingerprint == "" {
		return nil
	}
	records, err := t.failures.FailuresForFingerprint(ctx, fingerprint)
	if err != nil {
		slog.Warn("retry_candidates_failed", slog.String("error", err.Error()))
		return nil
	}

	cutoff := t.now().UTC().Add(-RetryMaxAge)
	score := math.Round(-FailureScoreBoost*10000) / 10000

	var candidates []*Result
	for _, rec := range records {
		if _, matched := matchedIDs[rec.EntryID]; matched {
			continue
		}
		if rec.RetryCount >= store.MaxRetries {
			continue
		}
		if rec.FirstFailedAt.Before(cutoff) {
			continue
		}
		candidates = append(candidates, &Result{
			ID:          rec.EntryID,
			Score:       score,
			RetrySource: true,
		})
	}
	return candidates
}

// CleanupAged deletes failure rows older than RetryMaxAge and returns the
// count. Called opportunistically during reindex.
func (t *RetryTracker) CleanupAged(ctx context.Context) (int, error) {
	return t.failures.CleanupAgedFailures(ctx, RetryMaxAge)
}
