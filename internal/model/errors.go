package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUndefinedMetric is returned when a metric cannot be computed, e.g.
// AUROC over a batch containing a single class.
var ErrUndefinedMetric = errors.New("undefined metric")

// SchemaMismatchError reports a feature vector or model that does not fit
// the registered feature schema.
type SchemaMismatchError struct {
	Version string
	Missing []string
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema mismatch for %q", e.Version)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing features [%s]", strings.Join(e.Missing, ", "))
	}
	return b.String()
}

// TrainingDidNotConvergeError is returned when an optimizer exhausts its
// iteration budget. No model is produced.
type TrainingDidNotConvergeError struct {
	ModelID      string
	DatasetHash  string
	Stage        string
	Iterations   int
	GradientNorm float64
}

func (e *TrainingDidNotConvergeError) Error() string {
	return fmt.Sprintf("training %q did not converge (%s) after %d iterations: gradient norm %.3g (dataset %s)",
		e.ModelID, e.Stage, e.Iterations, e.GradientNorm, e.DatasetHash)
}

// ModelNotFoundError is returned when a model id cannot be resolved.
type ModelNotFoundError struct {
	ModelID string
	Version int
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", ModelRef(e.ModelID, e.Version))
}

// IsSchemaMismatch reports whether err wraps a SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var se *SchemaMismatchError
	return errors.As(err, &se)
}

// IsTrainingDidNotConverge reports whether err wraps a TrainingDidNotConvergeError.
func IsTrainingDidNotConverge(err error) bool {
	var te *TrainingDidNotConvergeError
	return errors.As(err, &te)
}

// IsModelNotFound reports whether err wraps a ModelNotFoundError.
func IsModelNotFound(err error) bool {
	var me *ModelNotFoundError
	return errors.As(err, &me)
}
