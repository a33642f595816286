package scoring

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
)

// Trained scores with a stored logistic-regression record.
type Trained struct {
	rec        *model.TrainedModel
	schema     *schema.Schema
	calibrator Calibrator
}

// NewTrained validates a trained model record against its declared schema.
func NewTrained(rec *model.TrainedModel) (*Trained, error) {
	if rec == nil {
		return nil, eris.New("scoring: nil trained model")
	}
	s, err := schema.Get(rec.SchemaVersion)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: model %s", rec.Ref())
	}
	if len(rec.Weights) != s.Dim() {
		return nil, &model.SchemaMismatchError{
			Version: rec.SchemaVersion,
			Reason:  "model " + rec.Ref() + " weight vector length does not match schema dimension",
		}
	}
	if len(rec.FeatureNames) > 0 && !slices.Equal(rec.FeatureNames, s.Names()) {
		return nil, &model.SchemaMismatchError{
			Version: rec.SchemaVersion,
			Reason:  "model " + rec.Ref() + " feature order differs from schema",
		}
	}
	for i, w := range rec.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, eris.Errorf("scoring: model %s weight %d is not finite", rec.Ref(), i)
		}
	}
	cal, err := CalibratorFor(rec.Calibration)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: model %s", rec.Ref())
	}
	if err := ValidateThresholds(rec.Thresholds); err != nil {
		return nil, eris.Wrapf(err, "scoring: model %s", rec.Ref())
	}
	return &Trained{rec: rec, schema: s, calibrator: cal}, nil
}

func (t *Trained) ID() string                   { return t.rec.ModelID }
func (t *Trained) Version() int                 { return t.rec.Version }
func (t *Trained) Kind() model.ModelKind        { return model.ModelKindTrained }
func (t *Trained) SchemaVersion() string        { return t.rec.SchemaVersion }
func (t *Trained) Calibrator() Calibrator       { return t.calibrator }
func (t *Trained) Thresholds() model.Thresholds { return t.rec.Thresholds }

// Record returns the underlying model record.
func (t *Trained) Record() *model.TrainedModel { return t.rec }

// Raw computes weights·x + bias.
func (t *Trained) Raw(fv *model.FeatureVector) (float64, []model.Contribution, error) {
	vec, err := t.schema.Vectorize(fv)
	if err != nil {
		return 0, nil, eris.Wrapf(err, "scoring: model %s", t.rec.Ref())
	}
	raw := t.rec.Bias
	contributions := make([]model.Contribution, len(vec))
	for i, x := range vec {
		c := t.rec.Weights[i] * x
		raw += c
		contributions[i] = model.Contribution{
			Feature:      t.schema.Features[i].Name,
			Value:        x,
			Contribution: c,
		}
	}
	return raw, contributions, nil
}
