package scoring

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
)

// Score evaluates fv with m, calibrates the raw score and labels it. The
// result carries contributions ranked for explanation.
func Score(fv *model.FeatureVector, m Model) (*model.ScoreResult, error) {
	if fv == nil {
		return nil, eris.New("scoring: nil feature vector")
	}
	raw, contributions, err := m.Raw(fv)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return nil, eris.Errorf("scoring: %s: non-finite raw score %v for run %s", Ref(m), raw, fv.RunID)
	}
	p := m.Calibrator().Probability(raw)

	return &model.ScoreResult{
		RunID:         fv.RunID,
		ModelID:       m.ID(),
		ModelVersion:  m.Version(),
		ModelKind:     m.Kind(),
		SchemaVersion: m.SchemaVersion(),
		RawScore:      raw,
		Probability:   p,
		Label:         LabelFor(p, m.Thresholds()),
		Contributions: RankContributions(contributions),
	}, nil
}

// RankContributions orders contributions by |contribution| descending,
// breaking ties by feature name. The input is not modified.
func RankContributions(cs []model.Contribution) []model.Contribution {
	out := slices.Clone(cs)
	slices.SortStableFunc(out, func(a, b model.Contribution) int {
		return cmp.Or(
			cmp.Compare(math.Abs(b.Contribution), math.Abs(a.Contribution)),
			strings.Compare(a.Feature, b.Feature),
		)
	})
	return out
}

// TopContributions returns at most n ranked contributions.
func TopContributions(res *model.ScoreResult, n int) []model.Contribution {
	if n <= 0 || n >= len(res.Contributions) {
		return res.Contributions
	}
	return res.Contributions[:n]
}
