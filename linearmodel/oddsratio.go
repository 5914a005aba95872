package linearmodel

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tisono/diabrisk/pkg/errors"
)

// OddsRatio summarizes one fitted coefficient on the odds scale.
type OddsRatio struct {
	Feature string
	Coef    float64
	StdErr  float64
	OR      float64
	CILow   float64
	CIHigh  float64
}

// OddsRatios exponentiates the fitted slopes and attaches Wald confidence
// intervals at the given level. Feature names are positional; pass nil to
// get generated labels. Rows are ordered by descending odds ratio.
func (lr *LogisticRegression) OddsRatios(features []string, level float64) ([]OddsRatio, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "OddsRatios")
	}
	if level <= 0 || level >= 1 {
		return nil, errors.NewValidationError("level", "must be in (0, 1)", level)
	}
	if features != nil && len(features) != len(lr.Coef) {
		return nil, errors.NewDimensionError("LogisticRegression.OddsRatios", len(lr.Coef), len(features))
	}

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(1 - (1-level)/2)
	out := make([]OddsRatio, len(lr.Coef))
	for j, b := range lr.Coef {
		name := featureLabel(j)
		if features != nil {
			name = features[j]
		}
		se := lr.StdErr[j]
		out[j] = OddsRatio{
			Feature: name,
			Coef:    b,
			StdErr:  se,
			OR:      math.Exp(b),
			CILow:   math.Exp(b - z*se),
			CIHigh:  math.Exp(b + z*se),
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OR != out[j].OR {
			return out[i].OR > out[j].OR
		}
		return out[i].Feature < out[j].Feature
	})
	return out, nil
}

func featureLabel(j int) string {
	return "x" + strconv.Itoa(j)
}
