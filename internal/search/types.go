// Package search implements the ranking and retrieval pipeline: query
// decomposition, multi-facet merge, multi-signal score fusion, retry
// re-injection, and optional semantic reranking. Scores follow the BM25
// convention throughout: more negative is more relevant. Fusion stages add
// orthogonal signals; they never invert the convention.
package search

import "time"

// Result is one ranked candidate flowing through the pipeline.
type Result struct {
	// ID is the echo entry id.
	ID string

	// Score is the fused relevance score; more negative is better.
	Score float64

	// Preview is a short content excerpt from the lexical index.
	Preview string

	// FrequencyScore is the access-popularity signal in [0,1].
	FrequencyScore float64

	// ProximityScore is the file-path proximity signal in [0,1].
	ProximityScore float64

	// RerankScore is the semantic score in [0,1]; only set when the
	// reranker ran for this candidate.
	RerankScore float64

	// RetrySource marks synthetic candidates re-injected from the
	// failure log rather than returned by the lexical index.
	RetrySource bool
}

// clone returns a copy so enhancement stages never mutate caller-held
// results.
func (r *Result) clone() *Result {
	c := *r
	return &c
}

// Hard resource caps. These bound the cost and latency of the LLM-backed
// stages and are not configurable.
const (
	// MaxFacets is the most facets a decomposition may produce.
	MaxFacets = 4

	// FacetMaxLen is the longest accepted facet string.
	FacetMaxLen = 100

	// QueryTruncateLen caps query text before it is embedded in prompts,
	// fingerprinted, or logged.
	QueryTruncateLen = 500

	// CacheCapacity is the decomposition cache size.
	CacheCapacity = 128

	// CacheTTL is the decomposition cache entry lifetime.
	CacheTTL = 5 * time.Minute

	// DecomposeTimeout is the hard time box on the decomposition call.
	DecomposeTimeout = 3 * time.Second

	// RerankHardCap is the absolute ceiling on rerank candidates.
	RerankHardCap = 100

	// MaxEvidencePaths caps evidence extraction per entry.
	MaxEvidencePaths = 10

	// MaxRetryCandidates bounds how many synthetic retry entries are
	// spliced into one search, so re-injected misses cannot dominate.
	MaxRetryCandidates = 5

	// RetryMaxAge is the eligibility window measured from first failure.
	RetryMaxAge = 30 * 24 * time.Hour

	// AccessLogMaxAge is the retention window for access rows.
	AccessLogMaxAge = 180 * 24 * time.Hour

	// FailureScoreBoost sets the low-confidence score for retry
	// candidates: score = -FailureScoreBoost, rounded to 4 decimals.
	FailureScoreBoost = 0.5
)

// Fusion weights for the orthogonal signals. Both signals are in [0,1] and
// are subtracted from the lexical score, so a stronger signal makes the
// fused score more negative.
const (
	FrequencyWeight = 0.3
	ProximityWeight = 0.5
)

// RerankConfig holds the recognized reranking options. Absent configuration
// means reranking is disabled: fail-safe-off.
type RerankConfig struct {
	// Enabled gates reranking entirely (default false).
	Enabled bool

	// Threshold is the minimum result count that triggers reranking
	// (default 25).
	Threshold int

	// MaxCandidates caps how many results are sent to the model
	// (default 40, hard-capped at RerankHardCap).
	MaxCandidates int

	// Timeout bounds the model call (default 4s).
	Timeout time.Duration
}

// DefaultRerankConfig returns the documented defaults with reranking off.
func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		Enabled:       false,
		Threshold:     25,
		MaxCandidates: 40,
		Timeout:       4 * time.Second,
	}
}

// normalized applies defaults and the hard candidate cap.
func (c RerankConfig) normalized() RerankConfig {
	if c.Threshold <= 0 {
		c.Threshold = 25
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 40
	}
	if c.MaxCandidates > RerankHardCap {
		c.MaxCandidates = RerankHardCap
	}
	if c.Timeout <= 0 {
		c.Timeout = 4 * time.Second
	}
	return c
}

// Options configures one pipeline search.
type Options struct {
	// Limit is the maximum number of results to return (default 10).
	Limit int

	// ContextFiles are caller-supplied file paths used by the proximity
	// signal. Nil or empty disables the signal.
	ContextFiles []string

	// Rerank overrides the pipeline's rerank configuration for this
	// call. Nil uses the configured default.
	Rerank *RerankConfig
}
