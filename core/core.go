// Package core defines the estimator contracts shared by every stage of the
// analysis pipeline.
package core

import "gonum.org/v1/gonum/mat"

// Fitter is a model that can be trained on a feature matrix and target vector.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor produces discrete predictions for a feature matrix.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbaPredictor produces class-probability estimates in addition to
// discrete predictions.
type ProbaPredictor interface {
	Predictor
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Transformer learns statistics from data and applies a transformation.
// Fit must only ever see training data; Transform may then be applied to
// held-out data without leaking its statistics.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Model is a supervised estimator.
type Model interface {
	Fitter
	Predictor
}
