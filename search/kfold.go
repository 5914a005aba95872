// Package search tunes the boosted classifier with a seeded random scan of
// a bounded hyperparameter space, scored by stratified cross-validation.
package search

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CVFold holds the row indices of one cross-validation fold.
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold splits rows into folds that preserve the class mix of the
// outcome column.
type StratifiedKFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewStratifiedKFold creates a splitter; fewer than 2 splits falls back to 5.
func NewStratifiedKFold(nSplits int, shuffle bool, seed int64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// Split generates train/test indices for each fold from a single-column
// label matrix. Classes are visited in sorted order so the assignment is
// reproducible for a given seed.
func (skf *StratifiedKFold) Split(y mat.Matrix) []CVFold {
	nSamples, _ := y.Dims()

	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.Seed), uint64(skf.Seed)))
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	folds := make([]CVFold, skf.NSplits)
	for _, label := range labels {
		indices := classIndices[label]
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		current := 0
		for i := 0; i < skf.NSplits; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}
			for j := 0; j < testSize && current < nClass; j++ {
				folds[i].TestIndices = append(folds[i].TestIndices, indices[current])
				current++
			}
		}
	}

	for i := range folds {
		inTest := make(map[int]bool, len(folds[i].TestIndices))
		for _, idx := range folds[i].TestIndices {
			inTest[idx] = true
		}
		folds[i].TrainIndices = make([]int, 0, nSamples-len(folds[i].TestIndices))
		for j := 0; j < nSamples; j++ {
			if !inTest[j] {
				folds[i].TrainIndices = append(folds[i].TrainIndices, j)
			}
		}
		sort.Ints(folds[i].TestIndices)
	}
	return folds
}
