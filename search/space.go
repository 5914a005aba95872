package search

import (
	"math/rand/v2"

	"github.com/tisono/diabrisk/boosting"
	"github.com/tisono/diabrisk/pkg/errors"
)

// IntRange is an inclusive integer interval.
type IntRange struct {
	Low, High int
}

// FloatRange is a half-open float interval [Low, High).
type FloatRange struct {
	Low, High float64
}

// ParamSpace bounds every tunable of the boosted classifier. Sample draws
// uniformly within each range.
type ParamSpace struct {
	NumTrees        IntRange
	NumLeaves       IntRange
	MaxDepth        IntRange
	MinDataInLeaf   IntRange
	LearningRate    FloatRange
	FeatureFraction FloatRange
	MinGainToSplit  FloatRange
	Lambda          FloatRange
}

// DefaultParamSpace returns the ranges used by the risk pipeline.
func DefaultParamSpace() ParamSpace {
	return ParamSpace{
		NumTrees:        IntRange{Low: 300, High: 1500},
		NumLeaves:       IntRange{Low: 8, High: 64},
		MaxDepth:        IntRange{Low: 3, High: 12},
		MinDataInLeaf:   IntRange{Low: 10, High: 60},
		LearningRate:    FloatRange{Low: 0.01, High: 0.2},
		FeatureFraction: FloatRange{Low: 0.5, High: 1.0},
		MinGainToSplit:  FloatRange{Low: 0, High: 0.1},
		Lambda:          FloatRange{Low: 0, High: 1.0},
	}
}

// Validate rejects inverted or out-of-domain ranges before any sampling
// happens.
func (s ParamSpace) Validate() error {
	ints := []struct {
		name string
		r    IntRange
		min  int
	}{
		{"numTrees", s.NumTrees, 1},
		{"numLeaves", s.NumLeaves, 2},
		{"maxDepth", s.MaxDepth, 1},
		{"minDataInLeaf", s.MinDataInLeaf, 1},
	}
	for _, p := range ints {
		if p.r.Low > p.r.High {
			return errors.NewValidationError(p.name, "low bound exceeds high bound", p.r)
		}
		if p.r.Low < p.min {
			return errors.NewValidationError(p.name, "low bound below minimum", p.r)
		}
	}
	floats := []struct {
		name string
		r    FloatRange
	}{
		{"learningRate", s.LearningRate},
		{"featureFraction", s.FeatureFraction},
		{"minGainToSplit", s.MinGainToSplit},
		{"lambda", s.Lambda},
	}
	for _, p := range floats {
		if p.r.Low > p.r.High {
			return errors.NewValidationError(p.name, "low bound exceeds high bound", p.r)
		}
		if p.r.Low < 0 {
			return errors.NewValidationError(p.name, "low bound must be non-negative", p.r)
		}
	}
	if s.LearningRate.Low <= 0 {
		return errors.NewValidationError("learningRate", "low bound must be positive", s.LearningRate)
	}
	if s.FeatureFraction.High > 1 {
		return errors.NewValidationError("featureFraction", "high bound exceeds 1", s.FeatureFraction)
	}
	return nil
}

// Sample draws one parameter set from the space.
func (s ParamSpace) Sample(rng *rand.Rand) boosting.Params {
	return boosting.Params{
		NumTrees:        sampleInt(rng, s.NumTrees),
		NumLeaves:       sampleInt(rng, s.NumLeaves),
		MaxDepth:        sampleInt(rng, s.MaxDepth),
		MinDataInLeaf:   sampleInt(rng, s.MinDataInLeaf),
		LearningRate:    sampleFloat(rng, s.LearningRate),
		FeatureFraction: sampleFloat(rng, s.FeatureFraction),
		MinGainToSplit:  sampleFloat(rng, s.MinGainToSplit),
		Lambda:          sampleFloat(rng, s.Lambda),
	}
}

func sampleInt(rng *rand.Rand, r IntRange) int {
	if r.Low == r.High {
		return r.Low
	}
	return r.Low + rng.IntN(r.High-r.Low+1)
}

func sampleFloat(rng *rand.Rand, r FloatRange) float64 {
	if r.Low == r.High {
		return r.Low
	}
	return r.Low + rng.Float64()*(r.High-r.Low)
}
