// Package featsel implements the two feature-screening procedures: the
// chi-squared association scorer and the Boruta all-relevant filter.
package featsel

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tisono/diabrisk/dataset"
	"github.com/tisono/diabrisk/pkg/errors"
)

// FeatureScore is one row of the ranked association table.
type FeatureScore struct {
	Feature  string
	Chi2     float64
	PValue   float64
	CramersV float64
	DF       int
}

// ChiSquaredScores builds, for every predictor, a contingency table of its
// levels against the outcome and computes the chi-squared statistic, p-value
// and Cramér's V. The result is sorted descending by statistic with a
// deterministic name tie-break. A zero-variance predictor scores 0 with a
// warning instead of failing the run.
func ChiSquaredScores(t *dataset.Table) ([]FeatureScore, error) {
	n := t.NumRows()
	if n == 0 {
		return nil, errors.NewValueError("featsel.ChiSquaredScores", "empty table")
	}

	scores := make([]FeatureScore, 0, t.NumFeatures())
	for _, name := range t.Features {
		col, err := t.FeatureColumn(name)
		if err != nil {
			return nil, err
		}
		score := scoreFeature(name, col, t.Outcome)
		scores = append(scores, score)
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Chi2 != scores[j].Chi2 {
			return scores[i].Chi2 > scores[j].Chi2
		}
		return scores[i].Feature < scores[j].Feature
	})
	return scores, nil
}

func scoreFeature(name string, col []float64, outcome []string) FeatureScore {
	table, rows, cols := contingency(col, outcome)
	if rows < 2 || cols < 2 {
		errors.Warn(errors.NewZeroVarianceWarning("featsel.ChiSquaredScores", name))
		return FeatureScore{Feature: name, Chi2: 0, PValue: 1, DF: 0}
	}

	total := 0
	rowTotals := make([]int, rows)
	colTotals := make([]int, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rowTotals[i] += table[i][j]
			colTotals[j] += table[i][j]
			total += table[i][j]
		}
	}

	chi2 := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			expected := float64(rowTotals[i]*colTotals[j]) / float64(total)
			if expected > 0 {
				d := float64(table[i][j]) - expected
				chi2 += d * d / expected
			}
		}
	}

	df := (rows - 1) * (cols - 1)
	p := distuv.ChiSquared{K: float64(df)}.Survival(chi2)

	minDim := rows - 1
	if cols-1 < minDim {
		minDim = cols - 1
	}
	v := 0.0
	if total > 0 && minDim > 0 {
		v = math.Sqrt(chi2 / (float64(total) * float64(minDim)))
	}
	return FeatureScore{Feature: name, Chi2: chi2, PValue: p, CramersV: v, DF: df}
}

// contingency cross-tabulates feature levels (rows) against outcome
// categories (columns), both in sorted order.
func contingency(col []float64, outcome []string) (table [][]int, rows, cols int) {
	levelIdx := make(map[float64]int)
	var levels []float64
	for _, v := range col {
		if _, ok := levelIdx[v]; !ok {
			levelIdx[v] = 0
			levels = append(levels, v)
		}
	}
	sort.Float64s(levels)
	for i, v := range levels {
		levelIdx[v] = i
	}

	catIdx := make(map[string]int)
	var cats []string
	for _, o := range outcome {
		if _, ok := catIdx[o]; !ok {
			catIdx[o] = 0
			cats = append(cats, o)
		}
	}
	sort.Strings(cats)
	for i, c := range cats {
		catIdx[c] = i
	}

	table = make([][]int, len(levels))
	for i := range table {
		table[i] = make([]int, len(cats))
	}
	for i, v := range col {
		table[levelIdx[v]][catIdx[outcome[i]]]++
	}
	return table, len(levels), len(cats)
}
