// Package linearmodel provides a binary logistic regression estimator with
// Wald inference on the fitted coefficients.
package linearmodel

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/core"
	"github.com/tisono/diabrisk/pkg/errors"
)

const zeroVarianceTol = 1e-12

// LogisticRegression fits a binary classifier by iteratively reweighted
// least squares. The observed information matrix from the final iteration
// is kept so that standard errors and confidence intervals can be derived
// without refitting.
type LogisticRegression struct {
	state *core.StateManager

	maxIter      int
	tol          float64
	lambda       float64
	fitIntercept bool

	// Coef holds one slope per feature column, Intercept the bias term.
	Coef      []float64
	Intercept float64

	// StdErr mirrors Coef, InterceptStdErr the bias term.
	StdErr          []float64
	InterceptStdErr float64

	// NIter is the number of IRLS iterations actually performed.
	NIter int
}

// Option configures a LogisticRegression.
type Option func(*LogisticRegression)

// WithMaxIter sets the iteration cap (default 100).
func WithMaxIter(n int) Option {
	return func(lr *LogisticRegression) { lr.maxIter = n }
}

// WithTol sets the convergence tolerance on the coefficient update
// (default 1e-8).
func WithTol(tol float64) Option {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithL2 sets the ridge penalty applied to the slopes (default 0).
func WithL2(lambda float64) Option {
	return func(lr *LogisticRegression) { lr.lambda = lambda }
}

// WithIntercept toggles the bias term (default true).
func WithIntercept(fit bool) Option {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

// NewLogisticRegression creates an unfitted estimator.
func NewLogisticRegression(opts ...Option) *LogisticRegression {
	lr := &LogisticRegression{
		state:        core.NewStateManager(),
		maxIter:      100,
		tol:          1e-8,
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

var _ core.ProbaPredictor = (*LogisticRegression)(nil)

// Fit estimates the coefficients from X and a 0/1 outcome column y.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yr, yc := y.Dims()
	if yc != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yc)
	}
	if yr != rows {
		return errors.NewDimensionError("LogisticRegression.Fit", rows, yr)
	}
	if rows == 0 || cols == 0 {
		return errors.NewValueError("LogisticRegression.Fit", "empty design matrix")
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("maxIter", "must be positive", lr.maxIter)
	}
	if lr.lambda < 0 {
		return errors.NewValidationError("lambda", "must be non-negative", lr.lambda)
	}

	target := make([]float64, rows)
	pos := 0
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return errors.NewValueError("LogisticRegression.Fit", "outcome must be coded 0/1")
		}
		target[i] = v
		if v == 1 {
			pos++
		}
	}
	if pos == 0 || pos == rows {
		return errors.NewValueError("LogisticRegression.Fit", "outcome has a single class")
	}

	warnZeroVariance(X)

	// Design matrix with a leading intercept column when requested.
	p := cols
	offset := 0
	if lr.fitIntercept {
		p++
		offset = 1
	}
	design := mat.NewDense(rows, p, nil)
	for i := 0; i < rows; i++ {
		if lr.fitIntercept {
			design.Set(i, 0, 1)
		}
		for j := 0; j < cols; j++ {
			design.Set(i, offset+j, X.At(i, j))
		}
	}

	beta := make([]float64, p)
	probs := make([]float64, rows)
	info := mat.NewDense(p, p, nil)
	score := mat.NewVecDense(p, nil)
	converged := false

	for iter := 0; iter < lr.maxIter; iter++ {
		lr.NIter = iter + 1

		for i := 0; i < rows; i++ {
			probs[i] = sigmoid(rowDot(design, i, beta))
		}
		lr.fillInformation(design, probs, info)
		lr.fillScore(design, probs, target, beta, score)

		var step mat.VecDense
		if err := step.SolveVec(info, score); err != nil {
			return errors.Wrap(err, "LogisticRegression.Fit: singular information matrix")
		}

		maxStep := 0.0
		for j := 0; j < p; j++ {
			d := step.AtVec(j)
			beta[j] += d
			if a := math.Abs(d); a > maxStep {
				maxStep = a
			}
		}
		if maxStep < lr.tol {
			converged = true
			break
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter))
	}

	// Standard errors from the inverse of the information matrix at the
	// final estimate.
	for i := 0; i < rows; i++ {
		probs[i] = sigmoid(rowDot(design, i, beta))
	}
	lr.fillInformation(design, probs, info)
	var cov mat.Dense
	if err := cov.Inverse(info); err != nil {
		return errors.Wrap(err, "LogisticRegression.Fit: information matrix not invertible")
	}

	lr.Coef = make([]float64, cols)
	lr.StdErr = make([]float64, cols)
	copy(lr.Coef, beta[offset:])
	for j := 0; j < cols; j++ {
		lr.StdErr[j] = math.Sqrt(cov.At(offset+j, offset+j))
	}
	if lr.fitIntercept {
		lr.Intercept = beta[0]
		lr.InterceptStdErr = math.Sqrt(cov.At(0, 0))
	}

	lr.state.SetDimensions(cols, rows)
	lr.state.SetFitted()
	return nil
}

// PredictProba returns an n x 1 matrix of positive-class probabilities.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}
	rows, cols := X.Dims()
	nf, _ := lr.state.Dimensions()
	if cols != nf {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", nf, cols)
	}
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		z := lr.Intercept
		for j := 0; j < cols; j++ {
			z += lr.Coef[j] * X.At(i, j)
		}
		out.Set(i, 0, sigmoid(z))
	}
	return out, nil
}

// Predict thresholds PredictProba at 0.5.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
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

// IsFitted reports whether Fit has completed.
func (lr *LogisticRegression) IsFitted() bool { return lr.state.IsFitted() }

// fillInformation computes X'WX + lambda*I with W = diag(p(1-p)). The
// intercept row is never penalized.
func (lr *LogisticRegression) fillInformation(design *mat.Dense, probs []float64, info *mat.Dense) {
	rows, p := design.Dims()
	info.Zero()
	for i := 0; i < rows; i++ {
		w := probs[i] * (1 - probs[i])
		for a := 0; a < p; a++ {
			xa := design.At(i, a) * w
			for b := a; b < p; b++ {
				info.Set(a, b, info.At(a, b)+xa*design.At(i, b))
			}
		}
	}
	for a := 0; a < p; a++ {
		for b := 0; b < a; b++ {
			info.Set(a, b, info.At(b, a))
		}
	}
	if lr.lambda > 0 {
		start := 0
		if lr.fitIntercept {
			start = 1
		}
		for j := start; j < p; j++ {
			info.Set(j, j, info.At(j, j)+lr.lambda)
		}
	}
}

// fillScore computes X'(y - p) - lambda*beta.
func (lr *LogisticRegression) fillScore(design *mat.Dense, probs, target, beta []float64, score *mat.VecDense) {
	rows, p := design.Dims()
	for j := 0; j < p; j++ {
		score.SetVec(j, 0)
	}
	for i := 0; i < rows; i++ {
		r := target[i] - probs[i]
		for j := 0; j < p; j++ {
			score.SetVec(j, score.AtVec(j)+design.At(i, j)*r)
		}
	}
	if lr.lambda > 0 {
		start := 0
		if lr.fitIntercept {
			start = 1
		}
		for j := start; j < p; j++ {
			score.SetVec(j, score.AtVec(j)-lr.lambda*beta[j])
		}
	}
}

func warnZeroVariance(X mat.Matrix) {
	rows, cols := X.Dims()
	for j := 0; j < cols; j++ {
		mean := 0.0
		for i := 0; i < rows; i++ {
			mean += X.At(i, j)
		}
		mean /= float64(rows)
		ss := 0.0
		for i := 0; i < rows; i++ {
			d := X.At(i, j) - mean
			ss += d * d
		}
		if ss/float64(rows) < zeroVarianceTol {
			errors.Warn(errors.NewZeroVarianceWarning("LogisticRegression.Fit", featureLabel(j)))
		}
	}
}

func rowDot(m *mat.Dense, i int, beta []float64) float64 {
	z := 0.0
	for j := range beta {
		z += m.At(i, j) * beta[j]
	}
	return z
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
