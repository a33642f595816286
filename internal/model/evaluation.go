package model

import "time"

// VariantFull marks predictions made with every feature present.
const VariantFull = "full"

// AblationVariant names the predictions made with group ablated.
func AblationVariant(group FeatureGroup) string {
	return "ablate:" + string(group)
}

// EvalRecord is a per-example prediction artifact of a benchmark.
type EvalRecord struct {
	ReportID       string            `json:"report_id,omitempty"`
	Dataset        string            `json:"dataset"`
	ClaimID        string            `json:"claim_id"`
	Model          string            `json:"model"`
	Variant        string            `json:"variant"`
	PredictedLabel Label             `json:"predicted_label"`
	Probability    float64           `json:"probability"`
	TrueLabel      Label             `json:"true_label"`
	Strata         map[string]string `json:"strata,omitempty"`
}

// ReportRecord indexes a write-once benchmark report.
type ReportRecord struct {
	ID          string    `json:"id"`
	DatasetName string    `json:"dataset_name"`
	DatasetHash string    `json:"dataset_hash"`
	CodeVersion string    `json:"code_version"`
	Models      []string  `json:"models"`
	Body        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
