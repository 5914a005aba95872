// Package boosting implements the gradient-boosted decision-tree classifier
// used by the Boruta filter and the tuned modeling stage: exact split
// finding on sorted feature values, a binary-logistic objective, per-tree
// feature subsampling and gain-based feature importance.
package boosting

import "github.com/tisono/diabrisk/pkg/errors"

// Params are the training hyperparameters. The zero value of a field selects
// its default.
type Params struct {
	NumTrees        int     // boosting iterations (default 100)
	LearningRate    float64 // shrinkage per tree (default 0.1)
	NumLeaves       int     // maximum leaves per tree (default 31)
	MaxDepth        int     // maximum tree depth, 0 means unlimited
	MinDataInLeaf   int     // minimum samples per leaf (default 20)
	FeatureFraction float64 // fraction of features considered per tree (default 1.0)
	MinGainToSplit  float64 // loss-reduction threshold for a split
	Lambda          float64 // L2 regularization on leaf values
	Seed            int64   // feature-subsampling seed
}

func (p Params) withDefaults() Params {
	if p.NumTrees == 0 {
		p.NumTrees = 100
	}
	if p.LearningRate == 0 {
		p.LearningRate = 0.1
	}
	if p.NumLeaves == 0 {
		p.NumLeaves = 31
	}
	if p.MinDataInLeaf == 0 {
		p.MinDataInLeaf = 20
	}
	if p.FeatureFraction == 0 {
		p.FeatureFraction = 1.0
	}
	return p
}

// Validate rejects parameter values the trainer cannot honor.
func (p Params) Validate() error {
	if p.NumTrees < 0 {
		return errors.NewValidationError("NumTrees", "must be non-negative", p.NumTrees)
	}
	if p.LearningRate < 0 {
		return errors.NewValidationError("LearningRate", "must be non-negative", p.LearningRate)
	}
	if p.NumLeaves < 0 {
		return errors.NewValidationError("NumLeaves", "must be non-negative", p.NumLeaves)
	}
	if p.MaxDepth < 0 {
		return errors.NewValidationError("MaxDepth", "must be non-negative", p.MaxDepth)
	}
	if p.MinDataInLeaf < 0 {
		return errors.NewValidationError("MinDataInLeaf", "must be non-negative", p.MinDataInLeaf)
	}
	if p.FeatureFraction < 0 || p.FeatureFraction > 1 {
		return errors.NewValidationError("FeatureFraction", "must be in [0,1]", p.FeatureFraction)
	}
	if p.MinGainToSplit < 0 {
		return errors.NewValidationError("MinGainToSplit", "must be non-negative", p.MinGainToSplit)
	}
	if p.Lambda < 0 {
		return errors.NewValidationError("Lambda", "must be non-negative", p.Lambda)
	}
	return nil
}
