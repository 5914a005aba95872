package search

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sort"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/boosting"
	"github.com/tisono/diabrisk/metrics"
	"github.com/tisono/diabrisk/pkg/errors"
)

// Metric names accepted by Config.Metric.
const (
	MetricAccuracy = "accuracy"
	MetricAUC      = "auc"
	MetricMCC      = "mcc"
)

// Metrics lists the supported ranking metrics.
func Metrics() []string {
	return []string{MetricAccuracy, MetricAUC, MetricMCC}
}

// Config controls a random hyperparameter search.
type Config struct {
	// Candidates is the number of parameter sets drawn (default 25).
	Candidates int
	// Folds is the number of stratified CV folds (default 10).
	Folds int
	// Metric ranks candidates; accuracy when empty.
	Metric string
	// Workers caps concurrent fold evaluations (default runtime.NumCPU()).
	Workers int
	Seed    int64
	Space   ParamSpace
}

func (c Config) withDefaults() Config {
	if c.Candidates == 0 {
		c.Candidates = 25
	}
	if c.Folds == 0 {
		c.Folds = 10
	}
	if c.Metric == "" {
		c.Metric = MetricAccuracy
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	zero := ParamSpace{}
	if c.Space == zero {
		c.Space = DefaultParamSpace()
	}
	return c
}

func (c Config) validate() error {
	if c.Candidates < 1 {
		return errors.NewValidationError("candidates", "must be positive", c.Candidates)
	}
	if c.Folds < 2 {
		return errors.NewValidationError("folds", "need at least 2", c.Folds)
	}
	if c.Workers < 1 {
		return errors.NewValidationError("workers", "must be positive", c.Workers)
	}
	switch c.Metric {
	case MetricAccuracy, MetricAUC, MetricMCC:
	default:
		return errors.NewValidationError("metric", "unknown ranking metric", c.Metric)
	}
	return c.Space.Validate()
}

// FoldScore holds the three scores of one CV cell. Valid is false when the
// fold was degenerate and the scores carry no information.
type FoldScore struct {
	Fold     int
	Accuracy float64
	AUC      float64
	MCC      float64
	Valid    bool
}

// CandidateResult aggregates one parameter set across all folds.
type CandidateResult struct {
	Index  int
	Params boosting.Params
	Folds  []FoldScore

	MeanAccuracy, StdAccuracy float64
	MeanAUC, StdAUC           float64
	MeanMCC, StdMCC           float64
	ValidFolds                int
}

// Mean returns the candidate's mean for the named metric.
func (r CandidateResult) Mean(metric string) float64 {
	switch metric {
	case MetricAUC:
		return r.MeanAUC
	case MetricMCC:
		return r.MeanMCC
	default:
		return r.MeanAccuracy
	}
}

// Result is the outcome of a search: the full leaderboard, the winning
// candidate, and a pipeline refit on every training row with the winning
// parameters. Model is nil when the search was interrupted before the refit.
type Result struct {
	Leaderboard []CandidateResult
	Best        CandidateResult
	Model       *Pipeline
}

// RandomSearch draws Candidates parameter sets, scores each with stratified
// k-fold CV, and refits the winner on the full data. Fold cells run
// concurrently up to Workers at a time. A fold whose train or test part
// collapses to a single class is recorded as invalid and warned about, not
// treated as a failure. Cancelling the context stops new cells from starting;
// the cells already scored come back in a partial Result alongside the
// context error.
func RandomSearch(ctx context.Context, cfg Config, X, y mat.Matrix) (*Result, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	yr, yc := y.Dims()
	if yc != 1 || yr != rows {
		return nil, errors.NewDimensionError("RandomSearch", rows, yr)
	}

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)>>1))
	results := make([]CandidateResult, cfg.Candidates)
	for c := range results {
		params := cfg.Space.Sample(rng)
		results[c] = CandidateResult{
			Index:  c,
			Params: params,
			Folds:  make([]FoldScore, cfg.Folds),
		}
	}

	folds := NewStratifiedKFold(cfg.Folds, true, cfg.Seed).Split(y)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for c := range results {
		for f := range folds {
			c, f := c, f
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[c].Folds[f] = evaluateCell(cfg, results[c].Params, c, f, folds[f], X, y)
				return nil
			})
		}
	}
	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	for c := range results {
		aggregate(&results[c])
	}

	leaderboard := make([]CandidateResult, len(results))
	copy(leaderboard, results)
	sort.SliceStable(leaderboard, func(i, j int) bool {
		return leaderboard[i].Mean(cfg.Metric) > leaderboard[j].Mean(cfg.Metric)
	})

	best := leaderboard[0]
	if waitErr != nil {
		// Interrupted: every cell that finished is still reported, only
		// the refit is skipped.
		return &Result{Leaderboard: leaderboard, Best: best},
			errors.Wrap(waitErr, "random search interrupted")
	}
	if best.ValidFolds == 0 {
		return nil, errors.NewValueError("RandomSearch", "no candidate produced a valid fold")
	}

	refitParams := best.Params
	refitParams.Seed = cfg.Seed
	model := NewPipeline(refitParams)
	if err := model.Fit(X, y); err != nil {
		return nil, errors.Wrap(err, "refit of best candidate failed")
	}

	return &Result{Leaderboard: leaderboard, Best: best, Model: model}, nil
}

// evaluateCell trains one candidate on one fold and scores it. Degenerate
// folds come back with Valid false after emitting a warning.
func evaluateCell(cfg Config, params boosting.Params, candidate, fold int, cv CVFold, X, y mat.Matrix) FoldScore {
	score := FoldScore{Fold: fold}

	trainX, trainY := subsetRows(X, y, cv.TrainIndices)
	testX, testY := subsetRows(X, y, cv.TestIndices)
	if singleClass(trainY) {
		errors.Warn(errors.NewDegenerateFoldWarning(candidate, fold, "training part has a single class"))
		return score
	}
	if singleClass(testY) {
		errors.Warn(errors.NewDegenerateFoldWarning(candidate, fold, "test part has a single class"))
		return score
	}

	params.Seed = cfg.Seed + int64(candidate*cfg.Folds+fold+1)
	pl := NewPipeline(params)
	if err := pl.Fit(trainX, trainY); err != nil {
		errors.Warn(errors.NewDegenerateFoldWarning(candidate, fold, err.Error()))
		return score
	}
	proba, err := pl.PredictProba(testX)
	if err != nil {
		errors.Warn(errors.NewDegenerateFoldWarning(candidate, fold, err.Error()))
		return score
	}

	n := len(cv.TestIndices)
	yTrue := make([]float64, n)
	yScore := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		yTrue[i] = testY.At(i, 0)
		yScore[i] = proba.At(i, 0)
		if yScore[i] >= 0.5 {
			yPred[i] = 1
		}
	}

	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		errors.Warn(errors.NewDegenerateFoldWarning(candidate, fold, err.Error()))
		return score
	}
	auc, err := metrics.AUC(yTrue, yScore)
	if err != nil {
		errors.Warn(errors.NewDegenerateFoldWarning(candidate, fold, err.Error()))
		return score
	}
	mcc, err := metrics.MCC(yTrue, yPred)
	if err != nil {
		errors.Warn(errors.NewDegenerateFoldWarning(candidate, fold, err.Error()))
		return score
	}

	score.Accuracy = acc
	score.AUC = auc
	score.MCC = mcc
	score.Valid = true
	return score
}

func aggregate(r *CandidateResult) {
	var accs, aucs, mccs []float64
	for _, f := range r.Folds {
		if !f.Valid {
			continue
		}
		accs = append(accs, f.Accuracy)
		aucs = append(aucs, f.AUC)
		mccs = append(mccs, f.MCC)
	}
	r.ValidFolds = len(accs)
	r.MeanAccuracy, r.StdAccuracy = meanStd(accs)
	r.MeanAUC, r.StdAUC = meanStd(aucs)
	r.MeanMCC, r.StdMCC = meanStd(mccs)
}

func meanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	mean, _ := stats.Mean(vals)
	if len(vals) < 2 {
		return mean, 0
	}
	sd, _ := stats.StandardDeviationSample(vals)
	return mean, sd
}

func subsetRows(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, cols := X.Dims()
	xs := mat.NewDense(len(indices), cols, nil)
	ys := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			xs.Set(i, j, X.At(idx, j))
		}
		ys.Set(i, 0, y.At(idx, 0))
	}
	return xs, ys
}

func singleClass(y *mat.Dense) bool {
	rows, _ := y.Dims()
	if rows == 0 {
		return true
	}
	first := y.At(0, 0)
	for i := 1; i < rows; i++ {
		if y.At(i, 0) != first {
			return false
		}
	}
	return true
}
