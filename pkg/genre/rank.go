package genre

import (
	"cmp"
	"slices"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"
)

// Rank orders every label in the tally by descending count.
// Labels with equal counts are ordered alphabetically (byte order).
func Rank(t types.Tally) types.Ranking {
	ranking := make(types.Ranking, 0, len(t))
	for label := range t {
		ranking = append(ranking, label)
	}

	slices.SortFunc(ranking, func(a, b string) int {
		if c := cmp.Compare(t[b], t[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ranking
}
