// Package metrics implements the binary-classification metrics reported by
// the pipeline: accuracy, confusion matrix, Matthews correlation coefficient
// and the ROC curve with its area.
package metrics

import (
	"math"
	"sort"

	"github.com/tisono/diabrisk/pkg/errors"
)

// Accuracy returns the fraction of predictions equal to the true labels.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// ConfusionMatrix holds the four cell counts of a binary confusion matrix
// with 1 as the positive label.
type ConfusionMatrix struct {
	TN, FP, FN, TP int
}

// Total returns the number of samples counted, i.e. the sum of all cells.
func (c ConfusionMatrix) Total() int {
	return c.TN + c.FP + c.FN + c.TP
}

// NewConfusionMatrix counts prediction outcomes against 0/1 labels.
func NewConfusionMatrix(yTrue, yPred []float64) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	if err := checkPair("ConfusionMatrix", yTrue, yPred); err != nil {
		return cm, err
	}
	for i := range yTrue {
		if err := checkBinary("ConfusionMatrix", yTrue[i]); err != nil {
			return cm, err
		}
		if err := checkBinary("ConfusionMatrix", yPred[i]); err != nil {
			return cm, err
		}
		switch {
		case yTrue[i] == 1 && yPred[i] == 1:
			cm.TP++
		case yTrue[i] == 1:
			cm.FN++
		case yPred[i] == 1:
			cm.FP++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// MCC returns the Matthews correlation coefficient. When any marginal count
// is zero the coefficient is undefined; 0 is reported with a warning.
func MCC(yTrue, yPred []float64) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	tp, tn := float64(cm.TP), float64(cm.TN)
	fp, fn := float64(cm.FP), float64(cm.FN)
	denom := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("mcc", "a marginal count is zero", 0))
		return 0, nil
	}
	return (tp*tn - fp*fn) / denom, nil
}

// ROCCurve computes the receiver operating characteristic for 0/1 labels and
// real-valued scores. Points are ordered from (0,0) to (1,1); tied scores
// collapse into a single point. Thresholds[i] is the lowest score classified
// positive at point i+1 (the leading (0,0) point has threshold +Inf).
func ROCCurve(yTrue, yScore []float64) (fpr, tpr, thresholds []float64, err error) {
	if err := checkPair("ROCCurve", yTrue, yScore); err != nil {
		return nil, nil, nil, err
	}
	nPos, nNeg := 0, 0
	for _, y := range yTrue {
		if err := checkBinary("ROCCurve", y); err != nil {
			return nil, nil, nil, err
		}
		if y == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return nil, nil, nil, errors.NewValueError("ROCCurve", "need both classes present")
	}

	order := make([]int, len(yScore))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return yScore[order[a]] > yScore[order[b]]
	})

	fpr = []float64{0}
	tpr = []float64{0}
	thresholds = []float64{math.Inf(1)}
	tp, fp := 0, 0
	for k := 0; k < len(order); {
		threshold := yScore[order[k]]
		for k < len(order) && yScore[order[k]] == threshold {
			if yTrue[order[k]] == 1 {
				tp++
			} else {
				fp++
			}
			k++
		}
		fpr = append(fpr, float64(fp)/float64(nNeg))
		tpr = append(tpr, float64(tp)/float64(nPos))
		thresholds = append(thresholds, threshold)
	}
	return fpr, tpr, thresholds, nil
}

// AUC returns the area under the ROC curve. A single-class label vector makes
// the area undefined; 0.5 is reported with a warning.
func AUC(yTrue, yScore []float64) (float64, error) {
	if err := checkPair("AUC", yTrue, yScore); err != nil {
		return 0, err
	}
	for _, y := range yTrue {
		if err := checkBinary("AUC", y); err != nil {
			return 0, err
		}
	}
	fpr, tpr, _, err := ROCCurve(yTrue, yScore)
	if err != nil {
		var ve *errors.ValueError
		if errors.As(err, &ve) {
			errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present", 0.5))
			return 0.5, nil
		}
		return 0, err
	}
	area := 0.0
	for i := 1; i < len(fpr); i++ {
		area += (fpr[i] - fpr[i-1]) * (tpr[i] + tpr[i-1]) / 2
	}
	return area, nil
}

func checkPair(op string, a, b []float64) error {
	if len(a) == 0 {
		return errors.NewValueError(op, "empty input")
	}
	if len(a) != len(b) {
		return errors.NewDimensionError(op, len(a), len(b))
	}
	return nil
}

func checkBinary(op string, y float64) error {
	if y != 0 && y != 1 {
		return errors.NewValueError(op, "labels must be 0 or 1")
	}
	return nil
}
