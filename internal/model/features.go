package model

import (
	"maps"
	"time"
)

// FeatureGroup names a family of features removed together during ablation.
type FeatureGroup string

const (
	GroupVolume        FeatureGroup = "volume"
	GroupSourceQuality FeatureGroup = "source_quality"
	GroupTemporal      FeatureGroup = "temporal"
	GroupCorroboration FeatureGroup = "corroboration"
	GroupText          FeatureGroup = "text"
)

// FeatureVector is the named feature mapping extracted for one run.
type FeatureVector struct {
	RunID         string             `json:"run_id"`
	SchemaVersion string             `json:"feature_schema_version"`
	Values        map[string]float64 `json:"values"`
	ExtractedAt   time.Time          `json:"extracted_at"`
	// InsufficientEvidence is set when the run had no evidence and every
	// feature carries its neutral default.
	InsufficientEvidence bool `json:"insufficient_evidence,omitempty"`
}

// Get returns the value for name and whether it was present.
func (fv *FeatureVector) Get(name string) (float64, bool) {
	v, ok := fv.Values[name]
	return v, ok
}

// Clone returns a deep copy so callers can mutate values (e.g. ablation)
// without touching the original.
func (fv *FeatureVector) Clone() *FeatureVector {
	out := *fv
	out.Values = maps.Clone(fv.Values)
	return &out
}
