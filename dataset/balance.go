package dataset

import (
	"math/rand/v2"

	"github.com/tisono/diabrisk/pkg/errors"
)

// Balance downsamples every outcome category to the size of the smallest one,
// drawing uniformly without replacement. The result has exactly
// min(category counts) rows per category, No rows first, and is deterministic
// for a given seed. Balancing a table with an empty or missing category is an
// error, never a silently empty result.
func Balance(t *Table, seed int64) (*Table, error) {
	cats, groups := t.indicesByOutcome()
	if len(cats) < 2 {
		return nil, errors.NewValueError("dataset.Balance",
			"need both outcome categories, got "+joinCats(cats))
	}

	minCount := len(groups[cats[0]])
	for _, c := range cats[1:] {
		if n := len(groups[c]); n < minCount {
			minCount = n
		}
	}
	if minCount == 0 {
		return nil, errors.NewValueError("dataset.Balance", "minority category is empty")
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1))
	picked := make([]int, 0, minCount*len(cats))
	for _, c := range cats {
		indices := append([]int(nil), groups[c]...)
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		picked = append(picked, indices[:minCount]...)
	}
	return t.Subset(picked), nil
}

func joinCats(cats []string) string {
	if len(cats) == 0 {
		return "none"
	}
	s := cats[0]
	for _, c := range cats[1:] {
		s += "," + c
	}
	return s
}
