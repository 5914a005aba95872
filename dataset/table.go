// Package dataset loads the survey table and provides the row-sampling
// operations the pipeline is built on: outcome recoding, class balancing and
// stratified train/test splitting.
package dataset

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/pkg/errors"
)

// Outcome categories after recoding the three-valued survey code.
const (
	OutcomeNo  = "No"
	OutcomeYes = "Yes"
)

// Table is an immutable collection of survey records: a numeric feature
// matrix plus a binary outcome category per row. Derived tables (balanced
// samples, partitions, feature drops) are new Table values sharing nothing
// mutable with their source.
type Table struct {
	Features []string
	X        *mat.Dense // nRows x len(Features)
	Outcome  []string   // OutcomeNo or OutcomeYes per row
}

// NumRows returns the number of records.
func (t *Table) NumRows() int {
	if t.X == nil {
		return 0
	}
	r, _ := t.X.Dims()
	return r
}

// NumFeatures returns the number of predictors.
func (t *Table) NumFeatures() int {
	return len(t.Features)
}

// FeatureIndex returns the column index of a named predictor.
func (t *Table) FeatureIndex(name string) (int, error) {
	for i, f := range t.Features {
		if f == name {
			return i, nil
		}
	}
	return 0, errors.NewValueError("dataset.FeatureIndex", "unknown feature "+name)
}

// FeatureColumn returns a copy of one predictor's values.
func (t *Table) FeatureColumn(name string) ([]float64, error) {
	j, err := t.FeatureIndex(name)
	if err != nil {
		return nil, err
	}
	col := make([]float64, t.NumRows())
	mat.Col(col, j, t.X)
	return col, nil
}

// Y returns the outcome as a column vector with OutcomeNo=0, OutcomeYes=1.
func (t *Table) Y() *mat.Dense {
	n := t.NumRows()
	y := mat.NewDense(n, 1, nil)
	for i, o := range t.Outcome {
		if o == OutcomeYes {
			y.Set(i, 0, 1)
		}
	}
	return y
}

// LabelFor maps a 0/1 model output back to the outcome category.
func LabelFor(v float64) string {
	if v == 1 {
		return OutcomeYes
	}
	return OutcomeNo
}

// CountByOutcome returns the number of rows per outcome category.
func (t *Table) CountByOutcome() map[string]int {
	counts := make(map[string]int, 2)
	for _, o := range t.Outcome {
		counts[o]++
	}
	return counts
}

// Subset returns a new table containing the given rows, in order.
func (t *Table) Subset(indices []int) *Table {
	nf := t.NumFeatures()
	x := mat.NewDense(len(indices), nf, nil)
	outcome := make([]string, len(indices))
	for i, idx := range indices {
		for j := 0; j < nf; j++ {
			x.Set(i, j, t.X.At(idx, j))
		}
		outcome[i] = t.Outcome[idx]
	}
	features := make([]string, nf)
	copy(features, t.Features)
	return &Table{Features: features, X: x, Outcome: outcome}
}

// DropFeature returns a new table without the named predictor. Dropping a
// feature after selection must be applied to every partition identically;
// callers drop before splitting or drop from each partition with the same
// name.
func (t *Table) DropFeature(name string) (*Table, error) {
	drop, err := t.FeatureIndex(name)
	if err != nil {
		return nil, err
	}
	n, nf := t.NumRows(), t.NumFeatures()
	if nf < 2 {
		return nil, errors.NewValueError("dataset.DropFeature", "cannot drop the last predictor")
	}
	x := mat.NewDense(n, nf-1, nil)
	features := make([]string, 0, nf-1)
	for j := 0; j < nf; j++ {
		if j == drop {
			continue
		}
		features = append(features, t.Features[j])
		dst := len(features) - 1
		for i := 0; i < n; i++ {
			x.Set(i, dst, t.X.At(i, j))
		}
	}
	outcome := make([]string, n)
	copy(outcome, t.Outcome)
	return &Table{Features: features, X: x, Outcome: outcome}, nil
}

// indicesByOutcome groups row indices per outcome category, categories in
// sorted order for determinism.
func (t *Table) indicesByOutcome() ([]string, map[string][]int) {
	groups := make(map[string][]int)
	for i, o := range t.Outcome {
		groups[o] = append(groups[o], i)
	}
	cats := make([]string, 0, len(groups))
	for c := range groups {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats, groups
}
