package search

import (
	"context"
	"log/slog"
	"math"

	apperrors "github.com/reverb-labs/echosearch/internal/errors"
	"github.com/reverb-labs/echosearch/internal/store"
)

// FrequencyScorer turns the append-only access log into a popularity signal.
// The log scale compresses count skew so one extremely popular entry does
// not saturate the signal for the rest of the candidate set.
type FrequencyScorer struct {
	log store.AccessLog
}

// NewFrequencyScorer creates a scorer over the given access log.
func NewFrequencyScorer(log store.AccessLog) *FrequencyScorer {
	return &FrequencyScorer{log: log}
}

// RecordAccess appends one access row per returned result. Failures are
// logged, never surfaced: recording popularity must not break a search.
func (s *FrequencyScorer) RecordAccess(ctx context.Context, results []*Result, query string) {
	if len(results) == 0 {
		return
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.ID == "" {
			continue
		}
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		return
	}
	if err := s.log.RecordAccess(ctx, ids, query); err != nil {
		slog.Warn("record_access_failed",
			slog.Int("ids", len(ids)),
			slog.String("error", err.Error()))
	}
}

// Counts fetches access counts for the candidate set. On storage failure it
// returns an empty map, which zeroes the signal for this query.
func (s *FrequencyScorer) Counts(ctx context.Context, ids []string) map[string]int {
	counts, err := s.log.AccessCounts(ctx, ids)
	if err != nil {
		return apperrors.Recover("access_counts", apperrors.Wrap(apperrors.ErrCodeStoreQuery, err), map[string]int{})
	}
	return counts
}

// MaxLogCount returns the normalizer for the current candidate set: the
// maximum log(1+count) across it. The signal is relative to the query's own
// candidates, not a global constant.
func MaxLogCount(counts map[string]int) float64 {
	var max float64
	for _, n := range counts {
		if v := math.Log(1 + float64(n)); v > max {
			max = v
		}
	}
	return max
}

// ScoreFrequency returns log(1+count)/maxLogCount, or 0 when the normalizer
// is zero. Always in [0,1].
func ScoreFrequency(count int, maxLogCount float64) float64 {
	if maxLogCount <= 0 {
		return 0.0
	}
	return math.Log(1+float64(count)) / maxLogCount
}
