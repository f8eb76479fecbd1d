package search

import "sort"

// Rank orders hits by descending total score and truncates to limit.
// The sort is stable: equal scores keep their fusion-insertion order, so
// ranking is deterministic and idempotent. A limit <= 0 yields no hits.
func Rank(hits []Hit, limit int) []Hit {
	if limit <= 0 {
		return []Hit{}
	}

	ranked := make([]Hit, len(hits))
	copy(ranked, hits)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
