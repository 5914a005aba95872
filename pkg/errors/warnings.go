package errors

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var (
	warningMu      sync.Mutex
	warningHandler = func(w error) {
		if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
			zlog.Warn().EmbedObject(obj).Msg(w.Error())
			return
		}
		zlog.Warn().Msg(w.Error())
	}
)

// SetWarningHandler replaces the process-wide warning handler. Tests use this
// to capture warnings instead of logging them.
func SetWarningHandler(handler func(w error)) {
	warningMu.Lock()
	defer warningMu.Unlock()
	warningHandler = handler
}

// Warn routes a warning through the current handler.
func Warn(w error) {
	warningMu.Lock()
	handler := warningHandler
	warningMu.Unlock()
	if handler != nil {
		handler(w)
	}
}

// ConvergenceWarning is raised when an iterative fit stops at its iteration
// limit before reaching tolerance.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("%s did not converge after %d iterations", w.Algorithm, w.Iterations)
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations}
}

// ZeroVarianceWarning is raised when a predictor is constant across all rows.
// Such predictors score zero in association tests and inflate linear-model
// coefficients, so the condition is reported rather than silently accepted.
type ZeroVarianceWarning struct {
	Feature string
	Stage   string
}

func (w *ZeroVarianceWarning) Error() string {
	return fmt.Sprintf("%s: predictor %q has (near-)zero variance", w.Stage, w.Feature)
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (w *ZeroVarianceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("feature", w.Feature).
		Str("stage", w.Stage).
		Str("type", "ZeroVarianceWarning")
}

// NewZeroVarianceWarning creates a ZeroVarianceWarning.
func NewZeroVarianceWarning(stage, feature string) *ZeroVarianceWarning {
	return &ZeroVarianceWarning{Feature: feature, Stage: stage}
}

// UndefinedMetricWarning is raised when a metric cannot be computed and a
// fallback value is reported instead, e.g. AUC over a single-class partition.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("%q is ill-defined and set to %g due to %s", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates an UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// DegenerateFoldWarning is raised when one cross-validation cell produces a
// degenerate model (single-class predictions or a training failure). The cell
// records a null score and the search continues.
type DegenerateFoldWarning struct {
	Candidate int
	Fold      int
	Reason    string
}

func (w *DegenerateFoldWarning) Error() string {
	return fmt.Sprintf("candidate %d fold %d degenerate: %s", w.Candidate, w.Fold, w.Reason)
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (w *DegenerateFoldWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("candidate", w.Candidate).
		Int("fold", w.Fold).
		Str("reason", w.Reason).
		Str("type", "DegenerateFoldWarning")
}

// NewDegenerateFoldWarning creates a DegenerateFoldWarning.
func NewDegenerateFoldWarning(candidate, fold int, reason string) *DegenerateFoldWarning {
	return &DegenerateFoldWarning{Candidate: candidate, Fold: fold, Reason: reason}
}
