package search

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/boosting"
	"github.com/tisono/diabrisk/preprocessing"
)

// Pipeline chains the power transform and the boosted classifier so that
// every fold and the final refit normalize features the same way. The
// transform is estimated only from the rows passed to Fit.
type Pipeline struct {
	Transformer *preprocessing.PowerTransformer
	Classifier  *boosting.Classifier
}

// NewPipeline creates an unfitted pipeline for one parameter set.
func NewPipeline(params boosting.Params) *Pipeline {
	return &Pipeline{
		Transformer: preprocessing.NewPowerTransformer(),
		Classifier:  boosting.NewClassifier(params),
	}
}

// Fit estimates the transform on X, then trains the classifier on the
// transformed matrix.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	xt, err := p.Transformer.FitTransform(X)
	if err != nil {
		return err
	}
	return p.Classifier.Fit(xt, y)
}

// PredictProba transforms X with the fold-fitted parameters and scores it.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	xt, err := p.Transformer.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Classifier.PredictProba(xt)
}

// Predict thresholds PredictProba at 0.5.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	xt, err := p.Transformer.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Classifier.Predict(xt)
}
