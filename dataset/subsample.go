package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/tisono/diabrisk/pkg/errors"
)

// Subsample draws a stratified sample of the requested size, keeping each
// outcome category's share of rows. Sampling is without replacement and
// deterministic for a given seed. Asking for more rows than the table holds
// returns the table unchanged.
func Subsample(t *Table, size int, seed int64) (*Table, error) {
	if size <= 0 {
		return nil, errors.NewValidationError("size", "must be positive", size)
	}
	total := t.NumRows()
	if size >= total {
		return t, nil
	}

	cats, groups := t.indicesByOutcome()
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1))
	picked := make([]int, 0, size)
	for _, c := range cats {
		indices := append([]int(nil), groups[c]...)
		take := int(math.Round(float64(size) * float64(len(indices)) / float64(total)))
		if take > len(indices) {
			take = len(indices)
		}
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		picked = append(picked, indices[:take]...)
	}
	return t.Subset(picked), nil
}
