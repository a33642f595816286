// Package scoring evaluates feature vectors with the baseline or a trained
// model, calibrates the raw score into a probability and labels it.
package scoring

import (
	"github.com/sells-group/veracity-cli/internal/model"
)

// Model computes a raw score from a feature vector. Baseline and trained
// models differ only in how raw and calibration are obtained.
type Model interface {
	ID() string
	Version() int
	Kind() model.ModelKind
	SchemaVersion() string
	Raw(fv *model.FeatureVector) (float64, []model.Contribution, error)
	Calibrator() Calibrator
	Thresholds() model.Thresholds
}

// Ref renders the model reference recorded in scores and reports.
func Ref(m Model) string {
	return model.ModelRef(m.ID(), m.Version())
}
