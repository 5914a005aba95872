package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/core"
	"github.com/tisono/diabrisk/pkg/errors"
)

// PowerTransformer applies a per-feature Yeo-Johnson transform to reduce
// skew, with the lambda exponent chosen by maximum likelihood on the training
// data, followed by standardization. Fit must only see training rows; the
// evaluation partition is transformed with the training lambdas.
type PowerTransformer struct {
	state *core.StateManager

	Lambdas []float64
	scaler  *StandardScaler
}

// NewPowerTransformer creates an unfitted transformer.
func NewPowerTransformer() *PowerTransformer {
	return &PowerTransformer{state: core.NewStateManager()}
}

// Fit estimates one Yeo-Johnson lambda per feature and the post-transform
// standardization statistics.
func (p *PowerTransformer) Fit(X mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewValueError("PowerTransformer.Fit", "empty matrix")
	}

	p.Lambdas = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			col[i] = X.At(i, j)
		}
		p.Lambdas[j] = optimalLambda(col)
	}

	transformed, err := p.applyLambdas(X)
	if err != nil {
		return err
	}
	p.scaler = NewStandardScaler()
	if err := p.scaler.Fit(transformed); err != nil {
		return err
	}

	p.state.SetDimensions(cols, rows)
	p.state.SetFitted()
	return nil
}

// Transform applies the learned transform and standardization.
func (p *PowerTransformer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !p.state.IsFitted() {
		return nil, errors.NewNotFittedError("PowerTransformer", "Transform")
	}
	_, cols := X.Dims()
	if cols != len(p.Lambdas) {
		return nil, errors.NewDimensionError("PowerTransformer.Transform", len(p.Lambdas), cols)
	}
	transformed, err := p.applyLambdas(X)
	if err != nil {
		return nil, err
	}
	return p.scaler.Transform(transformed)
}

// FitTransform fits the transformer and transforms the same data.
func (p *PowerTransformer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

func (p *PowerTransformer) applyLambdas(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		lambda := p.Lambdas[j]
		for i := 0; i < rows; i++ {
			out.Set(i, j, yeoJohnson(X.At(i, j), lambda))
		}
	}
	return out, nil
}

// yeoJohnson applies the Yeo-Johnson transform for a given lambda.
func yeoJohnson(x, lambda float64) float64 {
	const eps = 1e-8
	if x >= 0 {
		if math.Abs(lambda) < eps {
			return math.Log1p(x)
		}
		return (math.Pow(x+1, lambda) - 1) / lambda
	}
	if math.Abs(lambda-2) < eps {
		return -math.Log1p(-x)
	}
	return -(math.Pow(1-x, 2-lambda) - 1) / (2 - lambda)
}

// optimalLambda maximizes the Yeo-Johnson log-likelihood with a
// golden-section search over a bounded interval.
func optimalLambda(x []float64) float64 {
	const (
		lo, hi = -3.0, 3.0
		iters  = 80
	)
	phi := (math.Sqrt(5) - 1) / 2

	a, b := lo, hi
	c := b - phi*(b-a)
	d := a + phi*(b-a)
	fc := yeoJohnsonLogLik(x, c)
	fd := yeoJohnsonLogLik(x, d)
	for i := 0; i < iters; i++ {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - phi*(b-a)
			fc = yeoJohnsonLogLik(x, c)
		} else {
			a, c, fc = c, d, fd
			d = a + phi*(b-a)
			fd = yeoJohnsonLogLik(x, d)
		}
	}
	return (a + b) / 2
}

func yeoJohnsonLogLik(x []float64, lambda float64) float64 {
	n := float64(len(x))
	transformed := make([]float64, len(x))
	logTerm := 0.0
	for i, v := range x {
		transformed[i] = yeoJohnson(v, lambda)
		if v >= 0 {
			logTerm += math.Log1p(v)
		} else {
			logTerm -= math.Log1p(-v)
		}
	}

	mean := 0.0
	for _, v := range transformed {
		mean += v
	}
	mean /= n
	variance := 0.0
	for _, v := range transformed {
		d := v - mean
		variance += d * d
	}
	variance /= n
	if variance <= 0 {
		// Constant column: every lambda is equally (un)informative.
		return math.Inf(-1)
	}
	return -n/2*math.Log(variance) + (lambda-1)*logTerm
}
