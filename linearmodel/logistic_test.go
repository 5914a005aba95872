package linearmodel

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	pkgerrors "github.com/tisono/diabrisk/pkg/errors"
)

// simulate draws rows from a logistic model with the given intercept and
// slopes, so the fit can be checked against the generating values.
func simulate(n int, intercept float64, slopes []float64, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed>>1))
	p := len(slopes)
	X := mat.NewDense(n, p, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		z := intercept
		for j := 0; j < p; j++ {
			v := rng.NormFloat64()
			X.Set(i, j, v)
			z += slopes[j] * v
		}
		if rng.Float64() < 1/(1+math.Exp(-z)) {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func TestLogisticRegressionRecoversSlopes(t *testing.T) {
	X, y := simulate(4000, -0.5, []float64{1.2, -0.8}, 42)

	lr := NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))
	require.True(t, lr.IsFitted())

	assert.InDelta(t, 1.2, lr.Coef[0], 0.25)
	assert.InDelta(t, -0.8, lr.Coef[1], 0.25)
	assert.InDelta(t, -0.5, lr.Intercept, 0.25)
	for j, se := range lr.StdErr {
		assert.Greater(t, se, 0.0, "standard error for slope %d", j)
	}
}

func TestLogisticRegressionPredict(t *testing.T) {
	X, y := simulate(1000, 0, []float64{2.0}, 7)

	lr := NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	require.Equal(t, 1000, rows)
	require.Equal(t, 1, cols)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := 0; i < rows; i++ {
		p := proba.At(i, 0)
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
		v := pred.At(i, 0)
		assert.Contains(t, []float64{0, 1}, v)
		if v == y.At(i, 0) {
			correct++
		}
	}
	// A slope of 2 gives well separated classes.
	assert.Greater(t, float64(correct)/float64(rows), 0.7)
}

func TestOddsRatios(t *testing.T) {
	X, y := simulate(2000, 0, []float64{1.0, -0.5}, 99)

	lr := NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))

	ratios, err := lr.OddsRatios([]string{"BMI", "PhysActivity"}, 0.95)
	require.NoError(t, err)
	require.Len(t, ratios, 2)

	for _, r := range ratios {
		assert.InDelta(t, math.Exp(r.Coef), r.OR, 1e-12)
		assert.Less(t, r.CILow, r.OR)
		assert.Greater(t, r.CIHigh, r.OR)
	}
	// Sorted by descending odds ratio, so the positive slope comes first.
	assert.Equal(t, "BMI", ratios[0].Feature)
	assert.Equal(t, "PhysActivity", ratios[1].Feature)
	assert.Greater(t, ratios[0].OR, 1.0)
	assert.Less(t, ratios[1].OR, 1.0)
}

func TestOddsRatiosValidation(t *testing.T) {
	lr := NewLogisticRegression()
	_, err := lr.OddsRatios(nil, 0.95)
	assert.Error(t, err)

	X, y := simulate(300, 0, []float64{1.0}, 3)
	require.NoError(t, lr.Fit(X, y))

	_, err = lr.OddsRatios(nil, 1.5)
	assert.Error(t, err)
	_, err = lr.OddsRatios([]string{"a", "b"}, 0.95)
	assert.Error(t, err)
}

func TestLogisticRegressionRejectsBadInput(t *testing.T) {
	lr := NewLogisticRegression()

	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	single := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	assert.Error(t, lr.Fit(X, single), "single class")

	coded := mat.NewDense(4, 1, []float64{0, 1, 2, 1})
	assert.Error(t, lr.Fit(X, coded), "outcome not 0/1")

	short := mat.NewDense(2, 1, []float64{0, 1})
	assert.Error(t, lr.Fit(X, short), "row mismatch")

	_, err := lr.PredictProba(X)
	assert.Error(t, err, "not fitted")
}

func TestLogisticRegressionZeroVarianceWarning(t *testing.T) {
	var captured []error
	pkgerrors.SetWarningHandler(func(err error) { captured = append(captured, err) })
	defer pkgerrors.SetWarningHandler(nil)

	rng := rand.New(rand.NewPCG(11, 5))
	X := mat.NewDense(200, 2, nil)
	y := mat.NewDense(200, 1, nil)
	for i := 0; i < 200; i++ {
		v := rng.NormFloat64()
		X.Set(i, 0, v)
		X.Set(i, 1, 3.0)
		if rng.Float64() < 1/(1+math.Exp(-v)) {
			y.Set(i, 0, 1)
		}
	}

	// The constant column makes the information matrix collinear with the
	// intercept, so fit without one.
	lr := NewLogisticRegression(WithIntercept(false), WithL2(1e-6))
	require.NoError(t, lr.Fit(X, y))

	found := false
	for _, err := range captured {
		var w *pkgerrors.ZeroVarianceWarning
		if pkgerrors.As(err, &w) {
			found = true
		}
	}
	assert.True(t, found, "expected a zero variance warning")
}
