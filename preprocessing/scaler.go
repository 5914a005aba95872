// Package preprocessing provides the feature transformations fitted on
// training data only: standardization and the skew-reducing power transform.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/core"
	"github.com/tisono/diabrisk/pkg/errors"
)

// StandardScaler rescales each feature to zero mean and unit variance using
// statistics learned in Fit. Constant features keep a scale of 1 so they map
// to zero instead of NaN.
type StandardScaler struct {
	state *core.StateManager

	Mean  []float64
	Scale []float64
}

// NewStandardScaler creates an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{state: core.NewStateManager()}
}

// Fit computes per-feature mean and standard deviation.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewValueError("StandardScaler.Fit", "empty matrix")
	}

	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += X.At(i, j)
		}
		mean := sum / float64(rows)

		varSum := 0.0
		for i := 0; i < rows; i++ {
			d := X.At(i, j) - mean
			varSum += d * d
		}
		scale := math.Sqrt(varSum / float64(rows))
		if scale == 0 {
			scale = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = scale
	}

	s.state.SetDimensions(cols, rows)
	s.state.SetFitted()
	return nil
}

// Transform applies the learned standardization.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.state.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	rows, cols := X.Dims()
	if cols != len(s.Mean) {
		return nil, errors.NewDimensionError("StandardScaler.Transform", len(s.Mean), cols)
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return out, nil
}

// FitTransform fits the scaler and transforms the same data.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
