// Package eda computes the descriptive statistics of the balanced dataset:
// per-feature summaries, the rank-correlation matrix among predictors and
// outcome-proportion tables per predictor level. All functions are read-only
// over the table.
package eda

import (
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	gstat "gonum.org/v1/gonum/stat"

	"github.com/tisono/diabrisk/dataset"
	"github.com/tisono/diabrisk/pkg/errors"
)

// Summary holds the descriptive statistics of one predictor.
type Summary struct {
	Feature string
	Mean    float64
	Std     float64
	Min     float64
	Q1      float64
	Median  float64
	Q3      float64
	Max     float64
}

// Describe returns a summary per predictor, in table column order.
func Describe(t *dataset.Table) ([]Summary, error) {
	if t.NumRows() == 0 {
		return nil, errors.NewValueError("eda.Describe", "empty table")
	}
	out := make([]Summary, 0, t.NumFeatures())
	for _, name := range t.Features {
		col, err := t.FeatureColumn(name)
		if err != nil {
			return nil, err
		}
		data := stats.Float64Data(col)
		mean, _ := stats.Mean(data)
		std, _ := stats.StandardDeviationPopulation(data)
		minV, _ := stats.Min(data)
		maxV, _ := stats.Max(data)
		median, _ := stats.Median(data)
		quartiles, err := stats.Quartile(data)
		if err != nil {
			return nil, errors.Wrapf(err, "eda: quartiles for %s", name)
		}
		out = append(out, Summary{
			Feature: name,
			Mean:    mean,
			Std:     std,
			Min:     minV,
			Q1:      quartiles.Q1,
			Median:  median,
			Q3:      quartiles.Q3,
			Max:     maxV,
		})
	}
	return out, nil
}

// CorrelationMatrix is a symmetric rank-correlation matrix over predictors.
type CorrelationMatrix struct {
	Features []string
	R        *mat.SymDense
}

// At returns the correlation between two features by index.
func (m *CorrelationMatrix) At(i, j int) float64 {
	return m.R.At(i, j)
}

// SpearmanMatrix computes Spearman's rho between every pair of predictors:
// Pearson correlation over average ranks, which handles the heavily tied
// ordinal survey scales. A zero-variance predictor correlates 0 with
// everything and is reported as a warning.
func SpearmanMatrix(t *dataset.Table) (*CorrelationMatrix, error) {
	n, nf := t.NumRows(), t.NumFeatures()
	if n < 3 {
		return nil, errors.NewValueError("eda.SpearmanMatrix", "need at least 3 rows")
	}

	ranks := make([][]float64, nf)
	constant := make([]bool, nf)
	for j, name := range t.Features {
		col, err := t.FeatureColumn(name)
		if err != nil {
			return nil, err
		}
		ranks[j] = averageRanks(col)
		constant[j] = isConstant(col)
		if constant[j] {
			errors.Warn(errors.NewZeroVarianceWarning("eda.SpearmanMatrix", name))
		}
	}

	r := mat.NewSymDense(nf, nil)
	for i := 0; i < nf; i++ {
		r.SetSym(i, i, 1)
		for j := i + 1; j < nf; j++ {
			if constant[i] || constant[j] {
				r.SetSym(i, j, 0)
				continue
			}
			r.SetSym(i, j, gstat.Correlation(ranks[i], ranks[j], nil))
		}
	}
	features := make([]string, nf)
	copy(features, t.Features)
	return &CorrelationMatrix{Features: features, R: r}, nil
}

// Pair is one off-diagonal entry of the correlation matrix, keeping its sign.
type Pair struct {
	A, B string
	Rho  float64
}

// TopPairs returns the k most strongly associated predictor pairs by absolute
// rho, excluding self-pairs, each unordered pair once. Ties break on feature
// names so re-runs rank identically.
func (m *CorrelationMatrix) TopPairs(k int) []Pair {
	var pairs []Pair
	for i := 0; i < len(m.Features); i++ {
		for j := i + 1; j < len(m.Features); j++ {
			pairs = append(pairs, Pair{A: m.Features[i], B: m.Features[j], Rho: m.R.At(i, j)})
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		pa, pb := pairs[a], pairs[b]
		if abs(pa.Rho) != abs(pb.Rho) {
			return abs(pa.Rho) > abs(pb.Rho)
		}
		if pa.A != pb.A {
			return pa.A < pb.A
		}
		return pa.B < pb.B
	})
	if k > len(pairs) {
		k = len(pairs)
	}
	return pairs[:k]
}

// ProportionRow is the outcome composition of one level of a predictor,
// normalized to sum to 1 across categories.
type ProportionRow struct {
	Level float64
	Count int
	Share map[string]float64
}

// GroupedProportions returns, for each level of the named predictor, the
// share of each outcome category among rows at that level. Levels ascend.
func GroupedProportions(t *dataset.Table, feature string) ([]ProportionRow, error) {
	col, err := t.FeatureColumn(feature)
	if err != nil {
		return nil, err
	}

	counts := make(map[float64]map[string]int)
	for i, level := range col {
		if counts[level] == nil {
			counts[level] = make(map[string]int)
		}
		counts[level][t.Outcome[i]]++
	}

	levels := make([]float64, 0, len(counts))
	for level := range counts {
		levels = append(levels, level)
	}
	sort.Float64s(levels)

	out := make([]ProportionRow, 0, len(levels))
	for _, level := range levels {
		total := 0
		for _, c := range counts[level] {
			total += c
		}
		share := make(map[string]float64, len(counts[level]))
		for cat, c := range counts[level] {
			share[cat] = float64(c) / float64(total)
		}
		out = append(out, ProportionRow{Level: level, Count: total, Share: share})
	}
	return out, nil
}

// averageRanks assigns 1-based ranks, ties sharing their average rank.
func averageRanks(x []float64) []float64 {
	n := len(x)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && x[order[j+1]] == x[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
