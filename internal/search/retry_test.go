package search

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reverb-labs/echosearch/internal/store"
)

// fakeFailureStore is an in-memory FailureStore double keyed by
// (entryID, fingerprint).
type fakeFailureStore struct {
	records map[string]*store.FailureRecord
	err     error
	resets  []string
}

func newFakeFailureStore() *fakeFailureStore {
	return &fakeFailureStore{records: make(map[string]*store.FailureRecord)}
}

func (f *fakeFailureStore) key(entryID, fingerprint string) string {
	return entryID + "|" + fingerprint
}

func (f *fakeFailureStore) RecordSearchFailure(_ context.Context, entryID, fingerprint string) error {
	if f.err != nil {
		return f.err
	}
	k := f.key(entryID, fingerprint)
	if rec, ok := f.records[k]; ok {
		if rec.RetryCount < store.MaxRetries {
			rec.RetryCount++
		}
		rec.LastRetriedAt = time.Now().UTC()
		return nil
	}
	now := time.Now().UTC()
	f.records[k] = &store.FailureRecord{
		EntryID:          entryID,
		TokenFingerprint: fingerprint,
		FirstFailedAt:    now,
		LastRetriedAt:    now,
	}
	return nil
}

func (f *fakeFailureStore) ResetFailureOnMatch(_ context.Context, entryID, fingerprint string) error {
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, f.key(entryID, fingerprint))
	delete(f.records, f.key(entryID, fingerprint))
	return nil
}

func (f *fakeFailureStore) FailuresForFingerprint(_ context.Context, fingerprint string) ([]*store.FailureRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*store.FailureRecord
	for _, rec := range f.records {
		if rec.TokenFingerprint == fingerprint {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeFailureStore) CleanupAgedFailures(_ context.Context, maxAge time.Duration) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	n := 0
	for k, rec := range f.records {
		if rec.FirstFailedAt.Before(cutoff) {
			delete(f.records, k)
			n++
		}
	}
	return n, nil
}

func TestFingerprintInvariance(t *testing.T) {
	base := Fingerprint("team lifecycle cleanup")

	assert.Equal(t, base, Fingerprint("Cleanup Team Lifecycle Team"), "order, case, and duplicates are ignored")
	assert.Equal(t, base, Fingerprint("cleanup   lifecycle\tteam"))
	assert.Equal(t, base, Fingerprint("the team lifecycle is cleanup"), "stop words are ignored")
	assert.NotEqual(t, base, Fingerprint("team lifecycle startup"))
}

func TestFingerprintEmptyWhenNoTokensSurvive(t *testing.T) {
	assert.Empty(t, Fingerprint(""))
	assert.Empty(t, Fingerprint("the and or"))
	assert.Empty(t, Fingerprint("a b c !"))
}

func TestFingerprintTruncatesLongQueries(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "tokenword "
	}
	// Identical after the truncation point.
	assert.Equal(t, Fingerprint(long+"alpha"), Fingerprint(long+"omega"))
}

func TestRetryCandidatesEligibility(t *testing.T) {
	failures := newFakeFailureStore()
	tracker := NewRetryTracker(failures)
	ctx := context.Background()
	fp := "fingerprint"

	now := time.Now().UTC()
	failures.records["eligible|"+fp] = &store.FailureRecord{
		EntryID: "eligible", TokenFingerprint: fp, RetryCount: 1, FirstFailedAt: now,
	}
	failures.records["matched|"+fp] = &store.FailureRecord{
		EntryID: "matched", TokenFingerprint: fp, RetryCount: 0, FirstFailedAt: now,
	}
	failures.records["exhausted|"+fp] = &store.FailureRecord{
		EntryID: "exhausted", TokenFingerprint: fp, RetryCount: store.MaxRetries, FirstFailedAt: now,
	}
	failures.records["expired|"+fp] = &store.FailureRecord{
		EntryID: "expired", TokenFingerprint: fp, RetryCount: 0,
		FirstFailedAt: now.Add(-RetryMaxAge - time.Hour),
	}

	candidates := tracker.RetryCandidates(ctx, fp, map[string]struct{}{"matched": {}})
	require.Len(t, candidates, 1)
	assert.Equal(t, "eligible", candidates[0].ID)
	assert.True(t, candidates[0].RetrySource)

	want := math.Round(-FailureScoreBoost*10000) / 10000
	assert.Equal(t, want, candidates[0].Score)
	assert.Equal(t, -0.5, candidates[0].Score)
}

func TestRetryCandidatesEmptyFingerprint(t *testing.T) {
	tracker := NewRetryTracker(newFakeFailureStore())
	assert.Nil(t, tracker.RetryCandidates(context.Background(), "", nil))
}

func TestRetryCandidatesStorageFailureDegrades(t *testing.T) {
	failures := newFakeFailureStore()
	failures.err = errors.New("storage down")
	tracker := NewRetryTracker(failures)

	assert.Nil(t, tracker.RetryCandidates(context.Background(), "fp", nil))
}

func TestRecordFailureEmptyArgsNoOp(t *testing.T) {
	failures := newFakeFailureStore()
	tracker := NewRetryTracker(failures)
	ctx := context.Background()

	tracker.RecordFailure(ctx, "", "fp")
	tracker.RecordFailure(ctx, "entry", "")
	assert.Empty(t, failures.records)

	tracker.RecordFailure(ctx, "entry", "fp")
	assert.Len(t, failures.records, 1)
}

func TestResetOnMatchSoftFails(t *testing.T) {
	failures := newFakeFailureStore()
	failures.err = errors.New("storage down")
	tracker := NewRetryTracker(failures)

	// Must not panic or surface the error.
	tracker.ResetOnMatch(context.Background(), "entry", "fp")
	tracker.RecordFailure(context.Background(), "entry", "fp")
}
