// Package ranker filters aggregated keyword scores by a minimum frequency
// and orders them. Rows are sorted by frequency descending, then by
// document identifier ascending, so equal scores always come out in the
// same order.
package ranker

import (
	"sort"
)

type Result struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
}

// Rank keeps the scores with frequency >= minFrequency (inclusive) and
// returns them ordered. The result is never nil.
func Rank(scores map[string]int, minFrequency int) []Result {
	result := make([]Result, 0, len(scores))
	for docID, freq := range scores {
		if freq < minFrequency {
			continue
		}
		result = append(result, Result{
			DocID:     docID,
			Frequency: freq,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Frequency != result[j].Frequency {
			return result[i].Frequency > result[j].Frequency
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Top returns at most limit leading rows. A non-positive limit keeps all.
func Top(results []Result, limit int) []Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
