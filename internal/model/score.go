package model

import (
	"fmt"
	"time"
)

// Label is the 3-way credibility verdict.
type Label string

const (
	LabelNotCredible Label = "not_credible"
	LabelUncertain   Label = "uncertain"
	LabelCredible    Label = "credible"
)

// Binary maps a label to the positive class used by binary metrics.
// Only credible counts as positive; uncertain is scored as negative.
func (l Label) Binary() int {
	if l == LabelCredible {
		return 1
	}
	return 0
}

// ModelKind distinguishes the fixed-weight baseline from trained models.
type ModelKind string

const (
	ModelKindBaseline ModelKind = "baseline"
	ModelKindTrained  ModelKind = "trained"
)

// Thresholds split a probability into not_credible | uncertain | credible.
type Thresholds struct {
	Low  float64 `json:"t_low"`
	High float64 `json:"t_high"`
}

// CalibrationMethod names the probability transform of a model.
type CalibrationMethod string

const (
	CalibrationIdentity CalibrationMethod = "identity"
	CalibrationAffine   CalibrationMethod = "affine"
	CalibrationPlatt    CalibrationMethod = "platt"
)

// CalibrationParams stores the 2-parameter monotone map of a model.
// For platt: p = sigmoid(A*raw + B). For affine: p = clamp(B + A*sigmoid(raw)).
type CalibrationParams struct {
	Method CalibrationMethod `json:"method"`
	A      float64           `json:"a"`
	B      float64           `json:"b"`
}

// Contribution is one feature's signed term in the raw score.
type Contribution struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// ScoreResult is the outcome of scoring one run with one model.
type ScoreResult struct {
	RunID         string         `json:"run_id"`
	ModelID       string         `json:"model_id"`
	ModelVersion  int            `json:"model_version"`
	ModelKind     ModelKind      `json:"model_kind"`
	SchemaVersion string         `json:"feature_schema_version"`
	RawScore      float64        `json:"raw_score"`
	Probability   float64        `json:"probability"`
	Label         Label          `json:"label"`
	Contributions []Contribution `json:"contributions"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TrainedModel is an immutable logistic-regression record.
type TrainedModel struct {
	ModelID            string             `json:"model_id"`
	Version            int                `json:"version"`
	SchemaVersion      string             `json:"feature_schema_version"`
	FeatureNames       []string           `json:"feature_names"`
	Weights            []float64          `json:"weights"`
	Bias               float64            `json:"bias"`
	Calibration        CalibrationParams  `json:"calibration"`
	Thresholds         Thresholds         `json:"thresholds"`
	ThresholdObjective string             `json:"threshold_objective"`
	Metrics            map[string]float64 `json:"metrics"`
	DatasetName        string             `json:"dataset_name"`
	DatasetHash        string             `json:"dataset_hash"`
	ConfigHash         string             `json:"config_hash"`
	Iterations         int                `json:"iterations"`
	TrainSize          int                `json:"train_size"`
	ValidationSize     int                `json:"validation_size"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Ref renders the id@version reference used in reports.
func (m *TrainedModel) Ref() string {
	return ModelRef(m.ModelID, m.Version)
}

// ModelRef renders a model reference. Version 0 denotes an unversioned model.
func ModelRef(id string, version int) string {
	if version == 0 {
		return id
	}
	return fmt.Sprintf("%s@%d", id, version)
}
