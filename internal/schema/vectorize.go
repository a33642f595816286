package schema

import (
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
)

// Vectorize maps fv to a dense array in schema order. Every schema feature
// must be present; extra features in fv are ignored, so a v2 vector can feed
// a v1 model.
func (s *Schema) Vectorize(fv *model.FeatureVector) ([]float64, error) {
	if fv == nil {
		return nil, &model.SchemaMismatchError{Version: s.Version, Reason: "nil feature vector"}
	}
	out := make([]float64, len(s.Features))
	var missing []string
	for i, f := range s.Features {
		v, ok := fv.Values[f.Name]
		if !ok {
			missing = append(missing, f.Name)
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, eris.Errorf("schema: %s: feature %q is not finite", s.Version, f.Name)
		}
		out[i] = v
	}
	if len(missing) > 0 {
		return nil, &model.SchemaMismatchError{Version: s.Version, Missing: missing}
	}
	return out, nil
}

// Devectorize maps a dense array back to a named feature vector.
func (s *Schema) Devectorize(runID string, values []float64, extractedAt time.Time) (*model.FeatureVector, error) {
	if len(values) != len(s.Features) {
		return nil, &model.SchemaMismatchError{
			Version: s.Version,
			Reason:  fmt.Sprintf("vector has %d values, schema has %d", len(values), len(s.Features)),
		}
	}
	m := make(map[string]float64, len(values))
	for i, f := range s.Features {
		m[f.Name] = values[i]
	}
	return &model.FeatureVector{
		RunID:         runID,
		SchemaVersion: s.Version,
		Values:        m,
		ExtractedAt:   extractedAt,
	}, nil
}
