package priors

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/fetcher"
	"github.com/sells-group/veracity-cli/internal/model"
)

// Prior values assigned to each reliability label.
const (
	LowReliabilityPrior     = 0.15
	UnknownReliabilityPrior = 0.50
	HighReliabilityPrior    = 0.85
)

// LabelPrior maps a reliability label to its base prior.
func LabelPrior(label model.ReliabilityLabel) float64 {
	switch label {
	case model.ReliabilityLow:
		return LowReliabilityPrior
	case model.ReliabilityHigh:
		return HighReliabilityPrior
	default:
		return UnknownReliabilityPrior
	}
}

// Derive computes prior_score. An external score on a 0-100 scale is
// blended half and half with the label prior.
func Derive(label model.ReliabilityLabel, externalScore *float64) float64 {
	p := LabelPrior(label)
	if externalScore != nil && !math.IsNaN(*externalScore) {
		p = 0.5*p + 0.5*(*externalScore/100)
	}
	return math.Max(0, math.Min(1, p))
}

// New validates the inputs and builds a SourcePrior.
func New(domain string, label model.ReliabilityLabel, externalScore *float64, now time.Time) (model.SourcePrior, error) {
	d := NormalizeDomain(domain)
	if d == "" {
		return model.SourcePrior{}, eris.Errorf("priors: empty domain %q", domain)
	}
	if !label.Valid() {
		return model.SourcePrior{}, eris.Errorf("priors: invalid reliability label %d for %s", label, d)
	}
	if externalScore != nil && (*externalScore < 0 || *externalScore > 100) {
		return model.SourcePrior{}, eris.Errorf("priors: external score %.2f for %s outside [0,100]", *externalScore, d)
	}
	return model.SourcePrior{
		Domain:           d,
		ReliabilityLabel: label,
		ExternalScore:    externalScore,
		PriorScore:       Derive(label, externalScore),
		UpdatedAt:        now,
	}, nil
}

// fileRow is one row of a prior source file.
type fileRow struct {
	Domain string `csv:"domain" json:"domain"`
	Label  string `csv:"reliability_label" json:"reliability_label"`
	Score  string `csv:"score,omitempty" json:"score,omitempty"`
}

// LoadFile reads priors from a CSV, XLSX, JSON or JSONL file with columns
// domain, reliability_label and an optional score. Later rows for the same
// domain replace earlier ones; the result is ordered by domain.
func LoadFile(path string, now time.Time) ([]model.SourcePrior, error) {
	rows, err := fetcher.ReadFile[fileRow](path)
	if err != nil {
		return nil, eris.Wrap(err, "priors: read file")
	}

	byDomain := make(map[string]model.SourcePrior, len(rows))
	var order []string
	for i, r := range rows {
		label, err := strconv.Atoi(strings.TrimSpace(r.Label))
		if err != nil {
			return nil, eris.Wrapf(err, "priors: row %d: parse reliability_label %q", i+1, r.Label)
		}
		var score *float64
		if s := strings.TrimSpace(r.Score); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "priors: row %d: parse score %q", i+1, r.Score)
			}
			score = &v
		}
		p, err := New(r.Domain, model.ReliabilityLabel(label), score, now)
		if err != nil {
			return nil, eris.Wrapf(err, "priors: row %d", i+1)
		}
		if _, seen := byDomain[p.Domain]; !seen {
			order = append(order, p.Domain)
		}
		byDomain[p.Domain] = p
	}

	out := make([]model.SourcePrior, 0, len(order))
	for _, d := range order {
		out = append(out, byDomain[d])
	}
	sortByDomain(out)
	return out, nil
}
