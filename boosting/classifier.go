package boosting

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/core"
	"github.com/tisono/diabrisk/pkg/errors"
)

// Classifier is the estimator wrapper around Train: it carries the
// hyperparameters, the fitted Model and the predictor schema.
type Classifier struct {
	state  *core.StateManager
	Params Params
	Model  *Model
}

var _ core.ProbaPredictor = (*Classifier)(nil)

// NewClassifier creates an unfitted classifier.
func NewClassifier(params Params) *Classifier {
	return &Classifier{state: core.NewStateManager(), Params: params}
}

// Fit trains the ensemble on a 0/1 target column.
func (c *Classifier) Fit(X, y mat.Matrix) error {
	model, err := Train(c.Params, X, y)
	if err != nil {
		return err
	}
	c.Model = model
	rows, cols := X.Dims()
	c.state.SetDimensions(cols, rows)
	c.state.SetFitted()
	return nil
}

// SetFeatureNames attaches the predictor schema for importance reporting.
func (c *Classifier) SetFeatureNames(names []string) {
	if c.Model != nil {
		c.Model.FeatureNames = append([]string(nil), names...)
	}
}

// PredictProba returns P(outcome=1) per row as a column vector.
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !c.state.IsFitted() {
		return nil, errors.NewNotFittedError("boosting.Classifier", "PredictProba")
	}
	return c.Model.PredictProba(X)
}

// Predict thresholds the probability at 0.5 into 0/1 labels.
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		if proba.At(i, 0) >= 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}
