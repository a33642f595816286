package benchmark

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/features"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
)

// AblationMode selects the value an ablated feature takes.
type AblationMode string

const (
	AblationZero    AblationMode = "zero"
	AblationNeutral AblationMode = "neutral"
)

// ParseAblationMode validates a configured mode. Empty means zero.
func ParseAblationMode(s string) (AblationMode, error) {
	switch AblationMode(s) {
	case "", AblationZero:
		return AblationZero, nil
	case AblationNeutral:
		return AblationNeutral, nil
	}
	return "", eris.Errorf("benchmark: unknown ablation mode %q (want zero or neutral)", s)
}

// Ablator rewrites the features of one group in a vector.
type Ablator struct {
	mode    AblationMode
	schema  *schema.Schema
	neutral map[string]float64
}

// NewAblator builds an Ablator over the groups of the given schema version.
func NewAblator(version string, mode AblationMode) (*Ablator, error) {
	s, err := schema.Get(version)
	if err != nil {
		return nil, eris.Wrap(err, "benchmark: ablation schema")
	}
	neutral, err := features.NeutralValues(s.Version)
	if err != nil {
		return nil, eris.Wrap(err, "benchmark: neutral values")
	}
	return &Ablator{mode: mode, schema: s, neutral: neutral}, nil
}

// Groups lists the schema's feature groups in schema order.
func (a *Ablator) Groups() []model.FeatureGroup {
	return a.schema.Groups()
}

// CheckGroups rejects groups the schema does not define.
func (a *Ablator) CheckGroups(groups []model.FeatureGroup) error {
	known := make(map[model.FeatureGroup]bool)
	for _, g := range a.schema.Groups() {
		known[g] = true
	}
	for _, g := range groups {
		if !known[g] {
			return eris.Errorf("benchmark: schema %s has no feature group %q", a.schema.Version, g)
		}
	}
	return nil
}

// Apply returns a copy of fv with every feature of group that fv carries
// set to zero or to its neutral default. Features outside the group are
// untouched.
func (a *Ablator) Apply(fv *model.FeatureVector, group model.FeatureGroup) *model.FeatureVector {
	out := fv.Clone()
	for _, name := range a.schema.InGroup(group) {
		if _, ok := out.Values[name]; !ok {
			continue
		}
		v := 0.0
		if a.mode == AblationNeutral {
			v = a.neutral[name]
		}
		out.Values[name] = v
	}
	return out
}
