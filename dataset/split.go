package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/tisono/diabrisk/pkg/errors"
)

// TrainTestSplit partitions the table into disjoint train and test tables,
// stratified by outcome so both partitions preserve the per-category ratio.
// testFraction must be in (0,1); the split is deterministic for a given seed.
func TrainTestSplit(t *Table, testFraction float64, seed int64) (train, test *Table, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, errors.NewValidationError("testFraction", "must be in (0,1)", testFraction)
	}
	if t.NumRows() == 0 {
		return nil, nil, errors.NewValueError("dataset.TrainTestSplit", "empty table")
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1))
	cats, groups := t.indicesByOutcome()

	var trainIdx, testIdx []int
	for _, c := range cats {
		indices := append([]int(nil), groups[c]...)
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		nTest := int(math.Round(float64(len(indices)) * testFraction))
		if nTest >= len(indices) {
			nTest = len(indices) - 1
		}
		testIdx = append(testIdx, indices[:nTest]...)
		trainIdx = append(trainIdx, indices[nTest:]...)
	}
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, nil, errors.NewValueError("dataset.TrainTestSplit", "a partition is empty; table too small")
	}
	return t.Subset(trainIdx), t.Subset(testIdx), nil
}
