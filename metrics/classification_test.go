package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tisono/diabrisk/pkg/errors"
)

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yScore  []float64
		want    float64
		wantErr bool
	}{
		{
			name:   "perfect classifier",
			yTrue:  []float64{0, 0, 0, 1, 1, 1},
			yScore: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:   1.0,
		},
		{
			name:   "worst classifier",
			yTrue:  []float64{0, 0, 0, 1, 1, 1},
			yScore: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1},
			want:   0.0,
		},
		{
			name:   "random classifier",
			yTrue:  []float64{0, 1, 0, 1},
			yScore: []float64{0.5, 0.5, 0.5, 0.5},
			want:   0.5,
		},
		{
			name:   "typical case",
			yTrue:  []float64{0, 0, 1, 1},
			yScore: []float64{0.1, 0.4, 0.35, 0.8},
			want:   0.75,
		},
		{
			name:   "single class falls back to 0.5",
			yTrue:  []float64{1, 1, 1, 1},
			yScore: []float64{0.1, 0.4, 0.35, 0.8},
			want:   0.5,
		},
		{
			name:    "non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yScore:  []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "length mismatch",
			yTrue:   []float64{0, 1},
			yScore:  []float64{0.5},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.yTrue, tt.yScore)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestAUCWarnsOnSingleClass(t *testing.T) {
	var captured []error
	errors.SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer errors.SetWarningHandler(nil)

	_, err := AUC([]float64{1, 1, 1}, []float64{0.2, 0.5, 0.9})
	require.NoError(t, err)
	require.Len(t, captured, 1)

	var umw *errors.UndefinedMetricWarning
	assert.True(t, errors.As(captured[0], &umw))
}

func TestROCCurveEndpoints(t *testing.T) {
	fpr, tpr, thresholds, err := ROCCurve(
		[]float64{0, 0, 1, 1},
		[]float64{0.1, 0.4, 0.35, 0.8},
	)
	require.NoError(t, err)
	require.Equal(t, len(fpr), len(tpr))
	require.Equal(t, len(fpr), len(thresholds))

	assert.Equal(t, 0.0, fpr[0])
	assert.Equal(t, 0.0, tpr[0])
	assert.True(t, math.IsInf(thresholds[0], 1))
	assert.Equal(t, 1.0, fpr[len(fpr)-1])
	assert.Equal(t, 1.0, tpr[len(tpr)-1])

	// Monotone non-decreasing in both axes.
	for i := 1; i < len(fpr); i++ {
		assert.GreaterOrEqual(t, fpr[i], fpr[i-1])
		assert.GreaterOrEqual(t, tpr[i], tpr[i-1])
	}
}

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]float64{0, 1, 1, 0}, []float64{0, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)

	_, err = Accuracy(nil, nil)
	assert.Error(t, err)
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := []float64{1, 1, 1, 0, 0, 0, 0}
	yPred := []float64{1, 1, 0, 0, 0, 1, 1}

	cm, err := NewConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, 2, cm.TP)
	assert.Equal(t, 1, cm.FN)
	assert.Equal(t, 2, cm.FP)
	assert.Equal(t, 2, cm.TN)
	assert.Equal(t, len(yTrue), cm.Total())
}

func TestMCC(t *testing.T) {
	// Perfect predictions.
	mcc, err := MCC([]float64{0, 0, 1, 1}, []float64{0, 0, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mcc, 1e-12)

	// Inverted predictions.
	mcc, err = MCC([]float64{0, 0, 1, 1}, []float64{1, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, mcc, 1e-12)

	// Degenerate: all predictions one class -> 0 with warning, not an error.
	errors.SetWarningHandler(func(error) {})
	defer errors.SetWarningHandler(nil)
	mcc, err = MCC([]float64{0, 1, 0, 1}, []float64{1, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, mcc)
}
