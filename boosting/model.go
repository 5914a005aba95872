package boosting

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/pkg/errors"
)

// Model is a trained ensemble bound to a fixed predictor schema. It exists
// for one training/evaluation cycle and is never persisted.
type Model struct {
	Trees        []Tree
	NumFeatures  int
	FeatureNames []string
	InitScore    float64
}

// PredictRaw returns the accumulated log-odds for one sample.
func (m *Model) PredictRaw(features []float64) float64 {
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// PredictProba returns P(outcome=1) for every row of X as a column vector.
func (m *Model) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("boosting.PredictProba", m.NumFeatures, cols)
	}
	out := mat.NewDense(rows, 1, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			features[j] = X.At(i, j)
		}
		out.Set(i, 0, sigmoid(m.PredictRaw(features)))
	}
	return out, nil
}

// Importance is one entry of the ranked gain-importance table.
type Importance struct {
	Feature string
	Gain    float64
}

// GainImportance sums split gains per feature across all trees, normalizes
// to sum to 1 and ranks descending with a deterministic name tie-break.
func (m *Model) GainImportance() []Importance {
	gains := m.RawGains()
	total := 0.0
	for _, g := range gains {
		total += g
	}

	out := make([]Importance, m.NumFeatures)
	for j := range out {
		name := ""
		if j < len(m.FeatureNames) {
			name = m.FeatureNames[j]
		}
		g := gains[j]
		if total > 0 {
			g /= total
		}
		out[j] = Importance{Feature: name, Gain: g}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Gain != out[j].Gain {
			return out[i].Gain > out[j].Gain
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// RawGains returns un-normalized per-feature split gains, indexed by column.
func (m *Model) RawGains() []float64 {
	gains := make([]float64, m.NumFeatures)
	for ti := range m.Trees {
		for ni := range m.Trees[ti].Nodes {
			node := &m.Trees[ti].Nodes[ni]
			if !node.IsLeaf() {
				gains[node.SplitFeature] += node.Gain
			}
		}
	}
	return gains
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
