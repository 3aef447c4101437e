package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reverb-labs/echosearch/internal/store"
)

// DefaultLimit is the result count when the caller does not set one.
const DefaultLimit = 10

// facetSearchMultiplier over-fetches per facet so the merge has enough
// candidates after deduplication.
const facetSearchMultiplier = 2

// EntryLookup resolves an entry id to its stored record. The pipeline uses
// it to read the source field as secondary proximity evidence.
type EntryLookup interface {
	GetEntry(ctx context.Context, id string) (*store.EchoEntry, error)
}

// Pipeline orchestrates one search: decompose, per-facet lexical search,
// merge, signal fusion, retry splice, optional rerank, access recording.
// Enhancement failures degrade to the unenhanced ranking; only the lexical
// index collaborator failing outright surfaces as an error.
type Pipeline struct {
	index      store.LexicalIndex
	decomposer *Decomposer
	frequency  *FrequencyScorer
	retry      *RetryTracker
	reranker   *Reranker
	entries    EntryLookup
	rerankCfg  RerankConfig
}

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithReranker enables semantic reranking.
func WithReranker(r *Reranker, cfg RerankConfig) PipelineOption {
	return func(p *Pipeline) {
		p.reranker = r
		p.rerankCfg = cfg
	}
}

// WithEntryLookup lets the proximity signal read each entry's source field
// as secondary evidence.
func WithEntryLookup(lookup EntryLookup) PipelineOption {
	return func(p *Pipeline) {
		p.entries = lookup
	}
}

// NewPipeline creates a ranking pipeline. Index, decomposer, frequency
// scorer, and retry tracker are required.
func NewPipeline(
	index store.LexicalIndex,
	decomposer *Decomposer,
	frequency *FrequencyScorer,
	retry *RetryTracker,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: lexical index is required", ErrNilDependency)
	}
	if decomposer == nil {
		return nil, fmt.Errorf("%w: decomposer is required", ErrNilDependency)
	}
	if frequency == nil {
		return nil, fmt.Errorf("%w: frequency scorer is required", ErrNilDependency)
	}
	if retry == nil {
		return nil, fmt.Errorf("%w: retry tracker is required", ErrNilDependency)
	}
	p := &Pipeline{
		index:      index,
		decomposer: decomposer,
		frequency:  frequency,
		retry:      retry,
		rerankCfg:  DefaultRerankConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Search runs the full pipeline. An empty index result with no eligible
// retry candidates yields an empty list, not an error; the only error
// surfaced is the lexical index failing for every facet.
func (p *Pipeline) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}

	facets := p.decomposer.Decompose(ctx, query)

	facetResults, err := p.searchFacets(ctx, facets, opts.Limit*facetSearchMultiplier)
	if err != nil {
		return nil, err
	}

	merged := MergeByBestScore(facetResults)

	p.fuseSignals(ctx, merged, opts.ContextFiles)

	fingerprint := Fingerprint(query)
	results := p.spliceRetryCandidates(ctx, fingerprint, merged)

	// Genuine lexical hits resolve their pending failure rows.
	for _, r := range results {
		if !r.RetrySource {
			p.retry.ResetOnMatch(ctx, r.ID, fingerprint)
		}
	}

	if p.reranker != nil {
		cfg := p.rerankCfg
		if opts.Rerank != nil {
			cfg = *opts.Rerank
		}
		results = p.reranker.Rerank(ctx, query, results, cfg)
	}

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	p.frequency.RecordAccess(ctx, results, query)

	slog.Debug("search_complete",
		slog.String("query", truncate(query, 80)),
		slog.Int("facets", len(facets)),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

// ReportMiss records that an entry should have surfaced for a query but did
// not. Callers (the agent adapter) use it to feed the retry tracker.
func (p *Pipeline) ReportMiss(ctx context.Context, entryID, query string) {
	p.retry.RecordFailure(ctx, entryID, Fingerprint(query))
}

// searchFacets queries the lexical index once per facet, concurrently. The
// merge is commutative and associative over the most-negative-wins rule, so
// ordering between facets does not matter. A single facet failing degrades;
// every facet failing is a collaborator failure and propagates.
func (p *Pipeline) searchFacets(ctx context.Context, facets []string, limit int) ([][]*Result, error) {
	lists := make([][]*Result, len(facets))
	errs := make([]error, len(facets))

	g, gctx := errgroup.WithContext(ctx)
	for i, facet := range facets {
		i, facet := i, facet
		g.Go(func() error {
			hits, err := p.index.Search(gctx, facet, limit)
			if err != nil {
				errs[i] = err
				slog.Warn("facet_search_failed",
					slog.String("facet", truncate(facet, 80)),
					slog.String("error", err.Error()))
				return nil
			}
			results := make([]*Result, 0, len(hits))
			for _, h := range hits {
				if h == nil || h.ID == "" {
					continue
				}
				results = append(results, &Result{
					ID:      h.ID,
					Score:   h.Score,
					Preview: h.Preview,
				})
			}
			lists[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(facets) && len(facets) > 0 {
		return nil, fmt.Errorf("lexical index failed for all %d facets: %w", failed, errors.Join(errs...))
	}
	return lists, nil
}

// fuseSignals adds the frequency and proximity signals to the merged
// candidates. Signals are in [0,1] and subtracted from the lexical score,
// preserving the more-negative-is-better convention. The list is re-sorted
// afterwards.
func (p *Pipeline) fuseSignals(ctx context.Context, merged []*Result, contextFiles []string) {
	if len(merged) == 0 {
		return
	}

	ids := make([]string, len(merged))
	for i, r := range merged {
		ids[i] = r.ID
	}
	counts := p.frequency.Counts(ctx, ids)
	maxLog := MaxLogCount(counts)

	for _, r := range merged {
		r.FrequencyScore = ScoreFrequency(counts[r.ID], maxLog)
		r.ProximityScore = p.scoreProximity(ctx, r, contextFiles)
		r.Score -= FrequencyWeight*r.FrequencyScore + ProximityWeight*r.ProximityScore
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score < merged[j].Score
	})
}

// scoreProximity reads the entry's source field as secondary evidence when
// an entry lookup is wired; lookup failures just narrow the evidence.
func (p *Pipeline) scoreProximity(ctx context.Context, r *Result, contextFiles []string) float64 {
	if len(contextFiles) == 0 {
		return 0.0
	}
	source := ""
	if p.entries != nil {
		if entry, err := p.entries.GetEntry(ctx, r.ID); err == nil && entry != nil {
			source = entry.Source
		}
	}
	return ScoreProximity(r.Preview, source, contextFiles)
}

// spliceRetryCandidates appends eligible retry entries (bounded by
// MaxRetryCandidates) and re-sorts, so their low-confidence score places
// them after genuine strong hits.
func (p *Pipeline) spliceRetryCandidates(ctx context.Context, fingerprint string, merged []*Result) []*Result {
	matched := make(map[string]struct{}, len(merged))
	for _, r := range merged {
		matched[r.ID] = struct{}{}
	}

	candidates := p.retry.RetryCandidates(ctx, fingerprint, matched)
	if len(candidates) > MaxRetryCandidates {
		candidates = candidates[:MaxRetryCandidates]
	}
	if len(candidates) == 0 {
		return merged
	}

	results := append(merged, candidates...)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	return results
}
