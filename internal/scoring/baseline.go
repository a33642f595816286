package scoring

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
)

// BaselineID identifies the fixed-weight heuristic model.
const BaselineID = "baseline_v1"

// Baseline calibration and thresholds.
var (
	BaselineCalibration = Affine{Offset: 0.05, Scale: 0.90}
	BaselineThresholds  = model.Thresholds{Low: 0.33, High: 0.67}
)

type baselineTerm struct {
	feature   string
	weight    float64
	transform func(float64) float64
}

func identity(x float64) float64 { return x }

// log1pNonNeg compresses a count. Negative inputs are treated as zero.
func log1pNonNeg(x float64) float64 { return math.Log1p(math.Max(0, x)) }

// Unbounded counts are log1p-compressed before weighting.
var baselineTerms = []baselineTerm{
	{schema.WeightedPriorMean, 2.0, identity},
	{schema.DomainDiversity, 1.0, identity},
	{schema.RecencyScore, 0.75, identity},
	{schema.UniqueDomains, 0.25, log1pNonNeg},
	{schema.MaxDomainConcentration, -1.5, identity},
	{schema.MissingTimestampRatio, -0.5, identity},
	{schema.UnknownSourceRatio, -1.0, identity},
	{schema.TotalArticles, 0.1, log1pNonNeg},
}

// Baseline is the hard-coded heuristic model over schema v1.
type Baseline struct{}

func (Baseline) ID() string                   { return BaselineID }
func (Baseline) Version() int                 { return 0 }
func (Baseline) Kind() model.ModelKind        { return model.ModelKindBaseline }
func (Baseline) SchemaVersion() string        { return schema.V1 }
func (Baseline) Calibrator() Calibrator       { return BaselineCalibration }
func (Baseline) Thresholds() model.Thresholds { return BaselineThresholds }

// Raw sums positive signals, subtracts negative ones and adds the log1p
// volume stabilizers.
func (Baseline) Raw(fv *model.FeatureVector) (float64, []model.Contribution, error) {
	s := schema.MustGet(schema.V1)
	vec, err := s.Vectorize(fv)
	if err != nil {
		return 0, nil, eris.Wrap(err, "scoring: baseline")
	}

	var raw float64
	contributions := make([]model.Contribution, 0, len(baselineTerms))
	for _, term := range baselineTerms {
		i, _ := s.Index(term.feature)
		c := term.weight * term.transform(vec[i])
		raw += c
		contributions = append(contributions, model.Contribution{
			Feature:      term.feature,
			Value:        vec[i],
			Contribution: c,
		})
	}
	return raw, contributions, nil
}
