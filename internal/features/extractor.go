// Package features computes the named credibility features of a run from
// its evidence and the source-prior lookup. Extraction is a pure function
// of its inputs: the reference time is a parameter and no result depends
// on evidence order.
package features

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/priors"
	"github.com/sells-group/veracity-cli/internal/schema"
)

// Business constants. Benchmark comparability depends on these exact
// values.
const (
	NeutralPrior             = 0.5
	HighReliabilityThreshold = 0.7
	MissingTimestampDecay    = 0.5
	RecencyLambdaPerHour     = 1.0 / 24
	TopK                     = 3
)

// PriorLookup resolves a normalized domain to its source prior.
type PriorLookup interface {
	Get(domain string) (model.SourcePrior, bool)
}

// Input is everything extraction depends on.
type Input struct {
	RunID         string
	ClaimText     string
	Evidence      []model.EvidenceItem
	Priors        PriorLookup
	AsOf          time.Time
	SchemaVersion string
}

// item is an evidence record with its resolved domain and prior.
type item struct {
	ev       model.EvidenceItem
	domain   string
	prior    float64
	hasPrior bool
}

// Extract computes the feature vector for in.SchemaVersion. The only error
// is an unknown schema version; empty evidence yields neutral values and
// sets InsufficientEvidence.
func Extract(in Input) (*model.FeatureVector, error) {
	version := in.SchemaVersion
	if version == "" {
		version = schema.Latest
	}
	s, err := schema.Get(version)
	if err != nil {
		return nil, eris.Wrap(err, "features: extract")
	}

	items := resolve(in.Evidence, in.Priors)
	all := make(map[string]float64, 32)
	volumeFeatures(all, items)
	sourceQualityFeatures(all, items)
	temporalFeatures(all, items, in.AsOf)
	corroborationFeatures(all, items)
	textFeatures(all, items, in.ClaimText)

	values := make(map[string]float64, s.Dim())
	for _, name := range s.Names() {
		v, ok := all[name]
		if !ok {
			return nil, eris.Errorf("features: schema %s names %q but no extractor computes it", s.Version, name)
		}
		values[name] = v
	}

	return &model.FeatureVector{
		RunID:                in.RunID,
		SchemaVersion:        s.Version,
		Values:               values,
		ExtractedAt:          in.AsOf,
		InsufficientEvidence: len(items) == 0,
	}, nil
}

// NeutralValues returns the values extraction assigns when a run has no
// evidence.
func NeutralValues(version string) (map[string]float64, error) {
	fv, err := Extract(Input{SchemaVersion: version})
	if err != nil {
		return nil, err
	}
	return fv.Values, nil
}

// resolve normalizes domains, attaches priors and sorts items canonically
// so floating-point sums do not depend on input order.
func resolve(evidence []model.EvidenceItem, lookup PriorLookup) []item {
	items := make([]item, 0, len(evidence))
	for _, ev := range evidence {
		d := priors.NormalizeDomain(ev.Domain)
		if d == "" {
			d = priors.NormalizeDomain(ev.URL)
		}
		it := item{ev: ev, domain: d, prior: NeutralPrior}
		if lookup != nil && d != "" {
			if p, ok := lookup.Get(d); ok {
				it.prior = p.PriorScore
				it.hasPrior = true
			}
		}
		items = append(items, it)
	}
	slices.SortFunc(items, func(a, b item) int {
		return cmp.Or(
			strings.Compare(a.ev.URL, b.ev.URL),
			strings.Compare(a.domain, b.domain),
			strings.Compare(a.ev.Title, b.ev.Title),
			strings.Compare(a.ev.Snippet, b.ev.Snippet),
		)
	})
	return items
}

// domainCounts returns item counts per domain and the domains sorted
// lexicographically.
func domainCounts(items []item) (map[string]int, []string) {
	counts := make(map[string]int)
	for _, it := range items {
		counts[it.domain]++
	}
	domains := make([]string, 0, len(counts))
	for d := range counts {
		domains = append(domains, d)
	}
	slices.Sort(domains)
	return counts, domains
}

func volumeFeatures(out map[string]float64, items []item) {
	_, domains := domainCounts(items)
	out[schema.TotalArticles] = float64(len(items))
	out[schema.UniqueDomains] = float64(len(domains))
}

func sourceQualityFeatures(out map[string]float64, items []item) {
	n := len(items)
	if n == 0 {
		out[schema.WeightedPriorMean] = NeutralPrior
		out[schema.HighReliabilityRatio] = 0
		out[schema.UnknownSourceRatio] = 0
		out[schema.MedianPrior] = NeutralPrior
		out[schema.MinPrior] = NeutralPrior
		out[schema.MaxPrior] = NeutralPrior
		return
	}

	var sum float64
	unknown := 0
	domainPrior := make(map[string]float64)
	for _, it := range items {
		sum += it.prior
		if !it.hasPrior {
			unknown++
		}
		domainPrior[it.domain] = it.prior
	}

	domainPriors := make([]float64, 0, len(domainPrior))
	high := 0
	for _, p := range domainPrior {
		domainPriors = append(domainPriors, p)
		if p >= HighReliabilityThreshold {
			high++
		}
	}
	slices.Sort(domainPriors)

	out[schema.WeightedPriorMean] = sum / float64(n)
	out[schema.HighReliabilityRatio] = float64(high) / float64(len(domainPriors))
	out[schema.UnknownSourceRatio] = float64(unknown) / float64(n)
	out[schema.MedianPrior] = median(domainPriors)
	out[schema.MinPrior] = domainPriors[0]
	out[schema.MaxPrior] = domainPriors[len(domainPriors)-1]
}

func temporalFeatures(out map[string]float64, items []item, asOf time.Time) {
	n := len(items)
	if n == 0 {
		out[schema.RecencyScore] = MissingTimestampDecay
		out[schema.PublicationSpanHours] = 0
		out[schema.MissingTimestampRatio] = 0
		return
	}

	var sum float64
	missing := 0
	var stamps []time.Time
	for _, it := range items {
		sum += RecencyWeight(it.ev.PublishedAt, asOf, RecencyLambdaPerHour)
		if it.ev.PublishedAt == nil || it.ev.PublishedAt.IsZero() {
			missing++
			continue
		}
		stamps = append(stamps, *it.ev.PublishedAt)
	}

	span := 0.0
	if len(stamps) >= 2 {
		minT, maxT := stamps[0], stamps[0]
		for _, ts := range stamps[1:] {
			if ts.Before(minT) {
				minT = ts
			}
			if ts.After(maxT) {
				maxT = ts
			}
		}
		span = maxT.Sub(minT).Hours()
	}

	out[schema.RecencyScore] = sum / float64(n)
	out[schema.PublicationSpanHours] = span
	out[schema.MissingTimestampRatio] = float64(missing) / float64(n)
}

func corroborationFeatures(out map[string]float64, items []item) {
	n := len(items)
	if n == 0 {
		out[schema.DomainDiversity] = 0
		out[schema.MaxDomainConcentration] = 0
		return
	}

	counts, domains := domainCounts(items)
	entropy := 0.0
	maxCount := 0
	for _, d := range domains {
		c := counts[d]
		if c > maxCount {
			maxCount = c
		}
		if n > 1 {
			p := float64(c) / float64(n)
			entropy -= p * math.Log2(p)
		}
	}
	out[schema.DomainDiversity] = math.Abs(entropy) // -0 from a single domain
	out[schema.MaxDomainConcentration] = float64(maxCount) / float64(n)
}

func textFeatures(out map[string]float64, items []item, claim string) {
	names := []string{
		schema.MeanJaccard, schema.MaxJaccard, schema.TopKMeanJaccard,
		schema.EntityOverlapMean, schema.EntityOverlapMax, schema.ContradictionSignalRatio,
	}
	for _, name := range names {
		out[name] = 0
	}

	claimTokens := tokenSet(claim)
	if len(items) == 0 || len(claimTokens) == 0 {
		return
	}
	claimEntities := entitySet(claim)

	sims := make([]float64, 0, len(items))
	overlaps := make([]float64, 0, len(items))
	contradictions := 0
	for _, it := range items {
		text := it.ev.Text()
		tokens := tokenSet(text)
		sims = append(sims, jaccard(claimTokens, tokens))
		overlaps = append(overlaps, coverage(claimEntities, entitySet(text)))
		if hasContradictionSignal(tokens) {
			contradictions++
		}
	}

	slices.SortFunc(sims, func(a, b float64) int { return cmp.Compare(b, a) })
	k := min(TopK, len(sims))

	out[schema.MeanJaccard] = mean(sims)
	out[schema.MaxJaccard] = sims[0]
	out[schema.TopKMeanJaccard] = mean(sims[:k])
	out[schema.EntityOverlapMean] = mean(overlaps)
	out[schema.EntityOverlapMax] = slices.Max(overlaps)
	out[schema.ContradictionSignalRatio] = float64(contradictions) / float64(len(items))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
