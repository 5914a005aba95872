package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func columnStats(m mat.Matrix, j int) (mean, std float64) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		mean += m.At(i, j)
	}
	mean /= float64(rows)
	for i := 0; i < rows; i++ {
		d := m.At(i, j) - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(rows))
}

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScaler()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	for j := 0; j < 2; j++ {
		mean, std := columnStats(out, j)
		assert.InDelta(t, 0, mean, 1e-12)
		assert.InDelta(t, 1, std, 1e-12)
	}
}

func TestStandardScalerConstantColumn(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})

	scaler := NewStandardScaler()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, out.At(i, 0))
	}
}

func TestStandardScalerNotFitted(t *testing.T) {
	scaler := NewStandardScaler()
	_, err := scaler.Transform(mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err)
}

func TestYeoJohnsonIdentityAtLambdaOne(t *testing.T) {
	for _, x := range []float64{-3, -0.5, 0, 0.5, 7} {
		assert.InDelta(t, x, yeoJohnson(x, 1), 1e-9, "x=%v", x)
	}
}

func TestYeoJohnsonLogBranches(t *testing.T) {
	assert.InDelta(t, math.Log1p(4), yeoJohnson(4, 0), 1e-9)
	assert.InDelta(t, -math.Log1p(4), yeoJohnson(-4, 2), 1e-9)
}

func TestPowerTransformerReducesSkew(t *testing.T) {
	// Strongly right-skewed column.
	n := 200
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Exp(float64(i%20) / 4.0)
	}
	X := mat.NewDense(n, 1, data)

	pt := NewPowerTransformer()
	out, err := pt.FitTransform(X)
	require.NoError(t, err)

	// Standardized output.
	mean, std := columnStats(out, 0)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, std, 1e-9)

	// Skewness should shrink substantially.
	assert.Less(t, math.Abs(skewness(matCol(out, 0))), math.Abs(skewness(data)))
}

func TestPowerTransformerNoLeakage(t *testing.T) {
	train := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	test := mat.NewDense(2, 1, []float64{100, 200})

	pt := NewPowerTransformer()
	_, err := pt.FitTransform(train)
	require.NoError(t, err)
	lambdaAfterFit := pt.Lambdas[0]

	_, err = pt.Transform(test)
	require.NoError(t, err)
	assert.Equal(t, lambdaAfterFit, pt.Lambdas[0], "Transform must not refit")
}

func matCol(m mat.Matrix, j int) []float64 {
	rows, _ := m.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = m.At(i, j)
	}
	return out
}

func skewness(x []float64) float64 {
	n := float64(len(x))
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= n
	m2, m3 := 0.0, 0.0
	for _, v := range x {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	return m3 / math.Pow(m2, 1.5)
}
