package collection

import "sort"

// DefaultRRFK is the k constant in the reciprocal-rank-fusion formula
// 1/(k+rank); 60 is the value conventionally used in the information
// retrieval literature and is this package's default.
const DefaultRRFK = 60.0

// Rerank fuses any number of ranked id lists into one ordering by
// reciprocal rank fusion: each list contributes 1/(k+rank) to every id
// it contains, rank being that id's 1-based position in the list (an id
// absent from a list contributes nothing for it). Ties are broken by id
// ascending for determinism. Rerank touches no database state — it is a
// pure function over whatever ranked lists the caller assembled, e.g.
// from MatchText and MatchFuzzy.
func Rerank(k float64, lists ...[]string) []string {
	if k <= 0 {
		k = DefaultRRFK
	}

	scores := make(map[string]float64)
	for _, list := range lists {
		for i, id := range list {
			rank := float64(i + 1)
			scores[id] += 1.0 / (k + rank)
		}
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
