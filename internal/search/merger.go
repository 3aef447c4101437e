package search

import "sort"

// MergeByBestScore combines per-facet result lists into one deduplicated
// list. For an id seen in multiple lists, the result with the most negative
// score wins; a larger (less negative) value is a worse match, so max-style
// selection here would be a correctness bug. Results with empty ids are
// dropped. Output is sorted ascending by score, ties broken by id for
// determinism. Empty input yields an empty list.
func MergeByBestScore(facetResults [][]*Result) []*Result {
	best := make(map[string]*Result)
	for _, list := range facetResults {
		for _, r := range list {
			if r == nil || r.ID == "" {
				continue
			}
			cur, seen := best[r.ID]
			if !seen || r.Score < cur.Score {
				best[r.ID] = r
			}
		}
	}

	merged := make([]*Result, 0, len(best))
	for _, r := range best {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score < merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}
