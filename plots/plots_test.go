package plots

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/dataset"
	"github.com/tisono/diabrisk/eda"
)

func assertPNG(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestCorrelationHeatmap(t *testing.T) {
	m := &eda.CorrelationMatrix{
		Features: []string{"BMI", "Age", "GenHlth"},
		R: mat.NewSymDense(3, []float64{
			1, 0.4, -0.2,
			0.4, 1, 0.1,
			-0.2, 0.1, 1,
		}),
	}
	path := filepath.Join(t.TempDir(), "corr.png")
	require.NoError(t, CorrelationHeatmap(m, path))
	assertPNG(t, path)

	err := CorrelationHeatmap(&eda.CorrelationMatrix{}, path)
	assert.Error(t, err)
}

func TestOutcomeBars(t *testing.T) {
	rows := []eda.ProportionRow{
		{Level: 1, Count: 40, Share: map[string]float64{dataset.OutcomeNo: 0.8, dataset.OutcomeYes: 0.2}},
		{Level: 2, Count: 30, Share: map[string]float64{dataset.OutcomeNo: 0.5, dataset.OutcomeYes: 0.5}},
		{Level: 3, Count: 30, Share: map[string]float64{dataset.OutcomeNo: 0.2, dataset.OutcomeYes: 0.8}},
	}
	path := filepath.Join(t.TempDir(), "bars.png")
	require.NoError(t, OutcomeBars(rows, "GenHlth", path))
	assertPNG(t, path)

	assert.Error(t, OutcomeBars(nil, "GenHlth", path))
}

func TestEmbeddingScatter(t *testing.T) {
	layout := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 1,
		5, 5,
		6, 6,
	})
	outcome := []string{
		dataset.OutcomeNo, dataset.OutcomeNo,
		dataset.OutcomeYes, dataset.OutcomeYes,
	}
	path := filepath.Join(t.TempDir(), "embedding.png")
	require.NoError(t, EmbeddingScatter(layout, outcome, path))
	assertPNG(t, path)

	assert.Error(t, EmbeddingScatter(layout, outcome[:2], path))
}

func TestROCCurve(t *testing.T) {
	fpr := []float64{0, 0, 0.5, 1}
	tpr := []float64{0, 0.5, 1, 1}
	path := filepath.Join(t.TempDir(), "roc.png")
	require.NoError(t, ROCCurve(fpr, tpr, 0.875, path))
	assertPNG(t, path)

	assert.Error(t, ROCCurve(fpr, tpr[:2], 0.5, path))
	assert.Error(t, ROCCurve(nil, nil, 0.5, path))
}

func TestFeatureHistogram(t *testing.T) {
	values := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5, 30}
	path := filepath.Join(t.TempDir(), "bmi_hist.png")
	require.NoError(t, FeatureHistogram(values, "BMI", path))
	assertPNG(t, path)

	assert.Error(t, FeatureHistogram(nil, "BMI", path))
}
