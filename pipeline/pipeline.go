// Package pipeline runs the eight-stage diabetes-risk workflow end to end:
// load, balance, explore, project, score, baseline, filter, tune. Each stage
// logs its row counts and headline numbers and drops its figures in the
// output directory.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/boosting"
	"github.com/tisono/diabrisk/dataset"
	"github.com/tisono/diabrisk/eda"
	"github.com/tisono/diabrisk/featsel"
	"github.com/tisono/diabrisk/linearmodel"
	"github.com/tisono/diabrisk/metrics"
	"github.com/tisono/diabrisk/pkg/errors"
	"github.com/tisono/diabrisk/plots"
	"github.com/tisono/diabrisk/preprocessing"
	"github.com/tisono/diabrisk/projection"
	"github.com/tisono/diabrisk/search"
)

// DefaultTarget is the BRFSS three-level diabetes status column.
const DefaultTarget = "Diabetes_012"

// Config collects every knob of the workflow. Zero values select the
// defaults used by the published analysis.
type Config struct {
	InputPath string
	OutDir    string
	// Target is the outcome column (default Diabetes_012).
	Target string
	Seed   int64
	// TestFraction is the held-out share of the 75/25 split (default 0.25).
	TestFraction float64
	// TopPairs is how many correlated pairs the report keeps (default 10).
	TopPairs int
	// GroupFeatures are the predictors whose per-level outcome shares are
	// tabulated and plotted.
	GroupFeatures []string
	// SubsampleSize caps the rows fed to the 2-D embedding (default 2000).
	SubsampleSize int
	Projection    projection.Config
	// BorutaRounds and BorutaAlpha control the importance filter
	// (defaults 11 and 0.05).
	BorutaRounds int
	BorutaAlpha  float64
	// Metric, Candidates and Folds control the random search.
	Metric     string
	Candidates int
	Folds      int

	Logger zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Target == "" {
		c.Target = DefaultTarget
	}
	if c.TestFraction == 0 {
		c.TestFraction = 0.25
	}
	if c.TopPairs == 0 {
		c.TopPairs = 10
	}
	if c.SubsampleSize == 0 {
		c.SubsampleSize = 2000
	}
	if c.Metric == "" {
		c.Metric = search.MetricAccuracy
	}
	return c
}

// Evaluation bundles the test-partition quality numbers of one classifier.
type Evaluation struct {
	Accuracy  float64
	AUC       float64
	MCC       float64
	Confusion metrics.ConfusionMatrix
	FPR       []float64
	TPR       []float64
}

// BaselineReport is the stage-6 logistic regression outcome.
type BaselineReport struct {
	OddsRatios []linearmodel.OddsRatio
	Eval       Evaluation
}

// SearchReport is the stage-8 tuned classifier outcome.
type SearchReport struct {
	Best        search.CandidateResult
	Leaderboard []search.CandidateResult
	Eval        Evaluation
	Importance  []boosting.Importance
}

// Report is everything a run produces besides the figures on disk.
type Report struct {
	CountsRaw      map[string]int
	CountsBalanced map[string]int

	Summaries   []eda.Summary
	TopPairs    []eda.Pair
	Proportions map[string][]eda.ProportionRow

	ChiScores []featsel.FeatureScore
	Baseline  BaselineReport
	Boruta    *featsel.BorutaResult
	Dropped   []string
	Search    SearchReport
}

// Run executes the workflow. The context bounds the hyperparameter search;
// everything else is quick by comparison.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	if cfg.InputPath == "" {
		return nil, errors.NewValidationError("input", "path is required", cfg.InputPath)
	}
	if cfg.OutDir == "" {
		return nil, errors.NewValidationError("outdir", "path is required", cfg.OutDir)
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	log := cfg.Logger
	report := &Report{Proportions: make(map[string][]eda.ProportionRow)}

	// Stage 1: load and recode.
	start := time.Now()
	tbl, err := dataset.Load(cfg.InputPath, cfg.Target)
	if err != nil {
		return nil, err
	}
	report.CountsRaw = tbl.CountByOutcome()
	log.Info().
		Int("rows", tbl.NumRows()).
		Int("features", tbl.NumFeatures()).
		Interface("counts", report.CountsRaw).
		Dur("elapsed", time.Since(start)).
		Msg("loaded survey table")

	// Stage 2: balance classes.
	balanced, err := dataset.Balance(tbl, cfg.Seed)
	if err != nil {
		return nil, err
	}
	report.CountsBalanced = balanced.CountByOutcome()
	log.Info().
		Int("rows", balanced.NumRows()).
		Interface("counts", report.CountsBalanced).
		Msg("balanced outcome categories")

	// Stage 3: descriptive statistics and correlation structure.
	if err := runEDA(cfg, balanced, report, log); err != nil {
		return nil, err
	}

	// Stage 4: 2-D embedding of a stratified subsample.
	if err := runProjection(cfg, balanced, log); err != nil {
		return nil, err
	}

	// Stage 5: chi-squared feature scores.
	report.ChiScores, err = featsel.ChiSquaredScores(balanced)
	if err != nil {
		return nil, err
	}
	if len(report.ChiScores) > 0 {
		top := report.ChiScores[0]
		log.Info().
			Str("top_feature", top.Feature).
			Float64("chi2", top.Chi2).
			Float64("p", top.PValue).
			Msg("scored features against outcome")
	}

	// One stratified split feeds the baseline, the filter and the tuned
	// model so feature removal can hit both partitions identically.
	train, test, err := dataset.TrainTestSplit(balanced, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("train_rows", train.NumRows()).
		Int("test_rows", test.NumRows()).
		Msg("split into train and test partitions")

	// Stage 6: logistic regression baseline with odds ratios.
	if err := runBaseline(cfg, train, test, report, log); err != nil {
		return nil, err
	}

	// Stage 7: Boruta importance filter on the training partition.
	train, test, err = runBoruta(cfg, train, test, report, log)
	if err != nil {
		return nil, err
	}

	// Stage 8: random-search-tuned boosted classifier.
	if err := runSearch(ctx, cfg, train, test, report, log); err != nil {
		return nil, err
	}

	return report, nil
}

func runEDA(cfg Config, t *dataset.Table, report *Report, log zerolog.Logger) error {
	var err error
	report.Summaries, err = eda.Describe(t)
	if err != nil {
		return err
	}
	corr, err := eda.SpearmanMatrix(t)
	if err != nil {
		return err
	}
	report.TopPairs = corr.TopPairs(cfg.TopPairs)
	if err := plots.CorrelationHeatmap(corr, filepath.Join(cfg.OutDir, "spearman_heatmap.png")); err != nil {
		return err
	}

	for _, feature := range cfg.GroupFeatures {
		rows, err := eda.GroupedProportions(t, feature)
		if err != nil {
			return err
		}
		report.Proportions[feature] = rows
		if err := plots.OutcomeBars(rows, feature,
			filepath.Join(cfg.OutDir, "shares_"+feature+".png")); err != nil {
			return err
		}
		col, err := t.FeatureColumn(feature)
		if err != nil {
			return err
		}
		if err := plots.FeatureHistogram(col, feature,
			filepath.Join(cfg.OutDir, "hist_"+feature+".png")); err != nil {
			return err
		}
	}
	log.Info().
		Int("features", len(report.Summaries)).
		Int("top_pairs", len(report.TopPairs)).
		Msg("computed summary statistics and correlations")
	return nil
}

func runProjection(cfg Config, t *dataset.Table, log zerolog.Logger) error {
	start := time.Now()
	sub, err := dataset.Subsample(t, cfg.SubsampleSize, cfg.Seed)
	if err != nil {
		return err
	}
	scaler := preprocessing.NewStandardScaler()
	scaled, err := scaler.FitTransform(sub.X)
	if err != nil {
		return err
	}
	pcfg := cfg.Projection
	pcfg.Seed = cfg.Seed
	layout, err := projection.Embed(pcfg, scaled)
	if err != nil {
		return err
	}
	if err := plots.EmbeddingScatter(layout, sub.Outcome,
		filepath.Join(cfg.OutDir, "embedding.png")); err != nil {
		return err
	}
	log.Info().
		Int("rows", sub.NumRows()).
		Dur("elapsed", time.Since(start)).
		Msg("embedded subsample in two dimensions")
	return nil
}

func runBaseline(cfg Config, train, test *dataset.Table, report *Report, log zerolog.Logger) error {
	lr := linearmodel.NewLogisticRegression()
	if err := lr.Fit(train.X, train.Y()); err != nil {
		return err
	}
	ratios, err := lr.OddsRatios(train.Features, 0.95)
	if err != nil {
		return err
	}
	proba, err := lr.PredictProba(test.X)
	if err != nil {
		return err
	}
	eval, err := evaluate(test.Y(), proba)
	if err != nil {
		return err
	}
	if err := plots.ROCCurve(eval.FPR, eval.TPR, eval.AUC,
		filepath.Join(cfg.OutDir, "roc_baseline.png")); err != nil {
		return err
	}
	report.Baseline = BaselineReport{OddsRatios: ratios, Eval: eval}
	log.Info().
		Float64("accuracy", eval.Accuracy).
		Float64("auc", eval.AUC).
		Float64("mcc", eval.MCC).
		Msg("fitted logistic baseline")
	return nil
}

func runBoruta(cfg Config, train, test *dataset.Table, report *Report, log zerolog.Logger) (*dataset.Table, *dataset.Table, error) {
	res, err := featsel.Boruta(featsel.BorutaConfig{
		Rounds: cfg.BorutaRounds,
		Alpha:  cfg.BorutaAlpha,
		Seed:   cfg.Seed,
	}, train)
	if err != nil {
		return nil, nil, err
	}
	report.Boruta = res

	// Rejected features leave both partitions before any further fitting.
	for _, feature := range res.ByDecision(featsel.Rejected) {
		train, err = train.DropFeature(feature)
		if err != nil {
			return nil, nil, err
		}
		test, err = test.DropFeature(feature)
		if err != nil {
			return nil, nil, err
		}
		report.Dropped = append(report.Dropped, feature)
	}
	log.Info().
		Int("confirmed", len(res.ByDecision(featsel.Confirmed))).
		Int("tentative", len(res.ByDecision(featsel.Tentative))).
		Strs("dropped", report.Dropped).
		Msg("filtered features with shadow importance")
	return train, test, nil
}

func runSearch(ctx context.Context, cfg Config, train, test *dataset.Table, report *Report, log zerolog.Logger) error {
	start := time.Now()
	res, err := search.RandomSearch(ctx, search.Config{
		Candidates: cfg.Candidates,
		Folds:      cfg.Folds,
		Metric:     cfg.Metric,
		Seed:       cfg.Seed,
	}, train.X, train.Y())
	if err != nil {
		return err
	}

	proba, err := res.Model.PredictProba(test.X)
	if err != nil {
		return err
	}
	eval, err := evaluate(test.Y(), proba)
	if err != nil {
		return err
	}
	if err := plots.ROCCurve(eval.FPR, eval.TPR, eval.AUC,
		filepath.Join(cfg.OutDir, "roc_tuned.png")); err != nil {
		return err
	}

	res.Model.Classifier.SetFeatureNames(train.Features)
	importance := res.Model.Classifier.Model.GainImportance()

	report.Search = SearchReport{
		Best:        res.Best,
		Leaderboard: res.Leaderboard,
		Eval:        eval,
		Importance:  importance,
	}
	log.Info().
		Int("candidates", len(res.Leaderboard)).
		Str("metric", cfg.Metric).
		Float64("cv_mean", res.Best.Mean(cfg.Metric)).
		Float64("test_accuracy", eval.Accuracy).
		Float64("test_auc", eval.AUC).
		Float64("test_mcc", eval.MCC).
		Dur("elapsed", time.Since(start)).
		Msg("tuned boosted classifier")
	return nil
}

// evaluate derives every test metric from one probability column.
func evaluate(y, proba mat.Matrix) (Evaluation, error) {
	rows, _ := y.Dims()
	yTrue := make([]float64, rows)
	yScore := make([]float64, rows)
	yPred := make([]float64, rows)
	for i := 0; i < rows; i++ {
		yTrue[i] = y.At(i, 0)
		yScore[i] = proba.At(i, 0)
		if yScore[i] >= 0.5 {
			yPred[i] = 1
		}
	}

	var eval Evaluation
	var err error
	eval.Accuracy, err = metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return eval, err
	}
	eval.MCC, err = metrics.MCC(yTrue, yPred)
	if err != nil {
		return eval, err
	}
	eval.Confusion, err = metrics.NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return eval, err
	}
	eval.FPR, eval.TPR, _, err = metrics.ROCCurve(yTrue, yScore)
	if err != nil {
		return eval, err
	}
	eval.AUC, err = metrics.AUC(yTrue, yScore)
	if err != nil {
		return eval, err
	}
	return eval, nil
}
