// Command diabrisk runs the diabetes-risk analysis workflow against a BRFSS
// style survey table and writes figures plus tabulated results to an output
// directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/tisono/diabrisk/pipeline"
	"github.com/tisono/diabrisk/pkg/log"
	"github.com/tisono/diabrisk/search"
)

func main() {
	var (
		input  = flag.String("input", "", "survey table (.xlsx or .csv)")
		outdir = flag.String("outdir", "out", "directory for figures")
		target = flag.String("target", pipeline.DefaultTarget, "outcome column")
		seed   = flag.Int64("seed", 42, "seed for every random draw")
		metric = flag.String("metric", search.MetricAccuracy,
			"model selection metric: "+strings.Join(search.Metrics(), ", "))
		candidates   = flag.Int("candidates", 25, "random search candidates")
		folds        = flag.Int("folds", 10, "cross-validation folds")
		subsample    = flag.Int("subsample", 2000, "rows fed to the 2-D embedding")
		borutaRounds = flag.Int("boruta-rounds", 11, "shadow-feature rounds")
		groups       = flag.String("groups", "GenHlth,HighBP,Age",
			"comma-separated predictors for grouped proportion tables")
		level = flag.String("log-level", "info", "debug, info, warn or error")
	)
	flag.Parse()

	logger := log.Setup(*level)
	if *input == "" {
		logger.Error().Msg("missing -input")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := pipeline.Config{
		InputPath:     *input,
		OutDir:        *outdir,
		Target:        *target,
		Seed:          *seed,
		GroupFeatures: splitList(*groups),
		SubsampleSize: *subsample,
		BorutaRounds:  *borutaRounds,
		Metric:        *metric,
		Candidates:    *candidates,
		Folds:         *folds,
		Logger:        log.WithComponent(logger, "pipeline"),
	}
	report, err := pipeline.Run(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
	printReport(report, *metric)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printReport(r *pipeline.Report, metric string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "\nOutcome counts\traw\tbalanced\n")
	for _, cat := range []string{"No", "Yes"} {
		fmt.Fprintf(w, "%s\t%d\t%d\n", cat, r.CountsRaw[cat], r.CountsBalanced[cat])
	}

	fmt.Fprintf(w, "\nTop correlated pairs\trho\n")
	for _, p := range r.TopPairs {
		fmt.Fprintf(w, "%s / %s\t%.3f\n", p.A, p.B, p.Rho)
	}

	fmt.Fprintf(w, "\nChi-squared scores\tchi2\tp\tCramer's V\n")
	for _, s := range r.ChiScores {
		fmt.Fprintf(w, "%s\t%.2f\t%.4g\t%.3f\n", s.Feature, s.Chi2, s.PValue, s.CramersV)
	}

	fmt.Fprintf(w, "\nBaseline odds ratios\tOR\t95%% CI\n")
	for _, or := range r.Baseline.OddsRatios {
		fmt.Fprintf(w, "%s\t%.3f\t[%.3f, %.3f]\n", or.Feature, or.OR, or.CILow, or.CIHigh)
	}
	b := r.Baseline.Eval
	fmt.Fprintf(w, "Baseline test\taccuracy %.3f\tAUC %.3f\tMCC %.3f\n", b.Accuracy, b.AUC, b.MCC)

	fmt.Fprintf(w, "\nBoruta decisions\thits/%d\tmean importance\n", r.Boruta.Rounds)
	for _, s := range r.Boruta.Stats {
		fmt.Fprintf(w, "%s (%s)\t%d\t%.4f\n", s.Feature, s.Decision, s.Hits, s.MeanImportance)
	}
	if len(r.Dropped) > 0 {
		fmt.Fprintf(w, "dropped\t%s\n", strings.Join(r.Dropped, ", "))
	}

	fmt.Fprintf(w, "\nSearch leaderboard (by %s)\tmean\tstd\tvalid folds\n", metric)
	for _, c := range r.Search.Leaderboard {
		fmt.Fprintf(w, "#%d trees=%d depth=%d lr=%.3f\t%.4f\t%.4f\t%d\n",
			c.Index, c.Params.NumTrees, c.Params.MaxDepth, c.Params.LearningRate,
			c.Mean(metric), stdFor(c, metric), c.ValidFolds)
	}
	t := r.Search.Eval
	fmt.Fprintf(w, "Tuned test\taccuracy %.3f\tAUC %.3f\tMCC %.3f\n", t.Accuracy, t.AUC, t.MCC)
	cm := t.Confusion
	fmt.Fprintf(w, "Confusion\tTN %d FP %d\tFN %d TP %d\n", cm.TN, cm.FP, cm.FN, cm.TP)

	fmt.Fprintf(w, "\nGain importance\tshare\n")
	for _, imp := range r.Search.Importance {
		fmt.Fprintf(w, "%s\t%.4f\n", imp.Feature, imp.Gain)
	}
	w.Flush()
}

func stdFor(c search.CandidateResult, metric string) float64 {
	switch metric {
	case search.MetricAUC:
		return c.StdAUC
	case search.MetricMCC:
		return c.StdMCC
	default:
		return c.StdAccuracy
	}
}
