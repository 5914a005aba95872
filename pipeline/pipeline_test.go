package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tisono/diabrisk/projection"
	"github.com/tisono/diabrisk/search"
)

// writeSurveyCSV fabricates a small survey file: GenHlth drives the outcome,
// Noise does not, and a sprinkling of code-1 rows must be dropped on load.
func writeSurveyCSV(t *testing.T, rows int) string {
	t.Helper()
	rng := rand.New(rand.NewPCG(99, 7))
	var sb strings.Builder
	sb.WriteString("GenHlth,BMI,Noise,Diabetes_012\n")
	for i := 0; i < rows; i++ {
		if i%25 == 24 {
			sb.WriteString("3,25,0,1\n")
			continue
		}
		code := 0
		genHlth := 1 + rng.IntN(3)
		if i%2 == 0 {
			code = 2
			genHlth = 3 + rng.IntN(3)
		}
		bmi := 20 + rng.IntN(20)
		sb.WriteString(fmt.Sprintf("%d,%d,%d,%d\n", genHlth, bmi, rng.IntN(2), code))
	}
	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func testConfig(t *testing.T, input string) Config {
	return Config{
		InputPath:     input,
		OutDir:        t.TempDir(),
		Seed:          42,
		GroupFeatures: []string{"GenHlth"},
		SubsampleSize: 80,
		Projection:    projection.Config{NNeighbors: 5, Epochs: 30},
		BorutaRounds:  7,
		Candidates:    2,
		Folds:         3,
		Logger:        zerolog.Nop(),
	}
}

func TestRunEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("full workflow is slow")
	}
	input := writeSurveyCSV(t, 300)
	cfg := testConfig(t, input)

	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	// Code-1 rows are gone and balancing equalized the categories.
	counts := report.CountsBalanced
	assert.Equal(t, counts["No"], counts["Yes"])
	assert.Less(t, counts["No"]+counts["Yes"], 300)

	assert.Len(t, report.Summaries, 3)
	assert.NotEmpty(t, report.TopPairs)
	assert.Contains(t, report.Proportions, "GenHlth")

	require.NotEmpty(t, report.ChiScores)
	assert.Equal(t, "GenHlth", report.ChiScores[0].Feature)

	require.NotEmpty(t, report.Baseline.OddsRatios)
	cm := report.Baseline.Eval.Confusion
	assert.Greater(t, cm.Total(), 0)

	require.NotNil(t, report.Boruta)
	assert.Equal(t, search.MetricAccuracy, cfg.withDefaults().Metric)
	require.NotEmpty(t, report.Search.Leaderboard)
	assert.Equal(t, report.Search.Leaderboard[0].Params, report.Search.Best.Params)
	assert.NotEmpty(t, report.Search.Importance)

	for _, name := range []string{
		"spearman_heatmap.png",
		"shares_GenHlth.png",
		"hist_GenHlth.png",
		"embedding.png",
		"roc_baseline.png",
		"roc_tuned.png",
	} {
		info, err := os.Stat(filepath.Join(cfg.OutDir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestRunValidatesConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{OutDir: t.TempDir()})
	assert.Error(t, err, "missing input path")

	_, err = Run(context.Background(), Config{InputPath: "survey.csv"})
	assert.Error(t, err, "missing output dir")
}

func TestRunMissingTargetColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,B\n1,2\n"), 0o600))

	cfg := testConfig(t, path)
	_, err := Run(context.Background(), cfg)
	assert.Error(t, err)
}
