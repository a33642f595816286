package pipeline

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/veracity-cli/internal/dataset"
	"github.com/sells-group/veracity-cli/internal/features"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/priors"
	"github.com/sells-group/veracity-cli/internal/schema"
	"github.com/sells-group/veracity-cli/internal/store"
)

// FeatureSource records where an example's features came from.
type FeatureSource string

const (
	SourceEmbedded  FeatureSource = "embedded"
	SourceEvidence  FeatureSource = "evidence"
	SourceRun       FeatureSource = "run"
	SourceSynthetic FeatureSource = "synthetic"
)

// Resolver produces feature vectors for dataset examples. It is safe for
// concurrent use.
type Resolver struct {
	store          store.Store
	schemaVersion  string
	allowSynthetic bool

	once      sync.Once
	lookup    priors.Lookup
	lookupErr error
}

// NewResolver creates a Resolver. st may be nil, in which case evidence is
// extracted without priors and stored runs are not consulted.
func NewResolver(st store.Store, schemaVersion string, allowSynthetic bool) *Resolver {
	if schemaVersion == "" {
		schemaVersion = schema.Latest
	}
	return &Resolver{store: st, schemaVersion: schemaVersion, allowSynthetic: allowSynthetic}
}

// Resolver returns a dataset feature resolver over this pipeline's store.
func (p *Pipeline) Resolver(schemaVersion string, allowSynthetic bool) *Resolver {
	if schemaVersion == "" {
		schemaVersion = p.cfg.Extract.SchemaVersion
	}
	return NewResolver(p.store, schemaVersion, allowSynthetic)
}

// Features implements the benchmark's feature source.
func (r *Resolver) Features(ctx context.Context, ex dataset.Example) (*model.FeatureVector, error) {
	fv, _, err := r.Resolve(ctx, ex)
	return fv, err
}

// Resolve tries, in order: features embedded in the example, extraction
// from embedded evidence, the stored features of the example's run, and
// synthetic features when allowed.
func (r *Resolver) Resolve(ctx context.Context, ex dataset.Example) (*model.FeatureVector, FeatureSource, error) {
	id := ex.RunID
	if id == "" {
		id = ex.ClaimID
	}

	if len(ex.Features) > 0 {
		return &model.FeatureVector{
			RunID:         id,
			SchemaVersion: r.schemaVersion,
			Values:        ex.Features,
		}, SourceEmbedded, nil
	}

	if len(ex.Evidence) > 0 {
		lookup, err := r.priors(ctx)
		if err != nil {
			return nil, "", err
		}
		items, err := datasetEvidence(ex.Evidence)
		if err != nil {
			return nil, "", eris.Wrapf(err, "pipeline: example %s", ex.ClaimID)
		}
		fv, err := features.Extract(features.Input{
			RunID:         id,
			ClaimText:     ex.Claim,
			Evidence:      items,
			Priors:        lookup,
			AsOf:          latestTimestamp(items),
			SchemaVersion: r.schemaVersion,
		})
		if err != nil {
			return nil, "", eris.Wrapf(err, "pipeline: example %s", ex.ClaimID)
		}
		return fv, SourceEvidence, nil
	}

	if ex.RunID != "" && r.store != nil {
		fv, err := r.store.GetFeatures(ctx, ex.RunID)
		switch {
		case err == nil:
			return fv, SourceRun, nil
		case !store.IsNotFound(err):
			return nil, "", eris.Wrapf(err, "pipeline: example %s", ex.ClaimID)
		}
	}

	if r.allowSynthetic {
		fv, err := dataset.SyntheticFeatures(ex, r.schemaVersion)
		if err != nil {
			return nil, "", eris.Wrapf(err, "pipeline: example %s", ex.ClaimID)
		}
		fv.RunID = id
		return fv, SourceSynthetic, nil
	}

	return nil, "", eris.Errorf("pipeline: example %s has no features, evidence or extracted run", ex.ClaimID)
}

func (r *Resolver) priors(ctx context.Context) (priors.Lookup, error) {
	r.once.Do(func() {
		if r.store == nil {
			r.lookup = priors.Lookup{}
			return
		}
		ps, err := r.store.ListPriors(ctx)
		if err != nil {
			r.lookupErr = eris.Wrap(err, "pipeline: load priors")
			return
		}
		r.lookup = priors.NewLookup(ps)
		zap.L().Debug("pipeline: priors loaded for dataset extraction", zap.Int("priors", len(ps)))
	})
	return r.lookup, r.lookupErr
}

// datasetEvidence normalizes embedded evidence the way ingestion does. Items
// are put in a canonical order first, so which of several items sharing a url
// survives does not depend on file order. Missing retrieved_at defaults to
// the latest timestamp present.
func datasetEvidence(raw []model.EvidenceItem) ([]model.EvidenceItem, error) {
	sorted := slices.Clone(raw)
	slices.SortStableFunc(sorted, func(a, b model.EvidenceItem) int {
		return cmp.Or(
			strings.Compare(strings.TrimSpace(a.URL), strings.TrimSpace(b.URL)),
			compareOptionalTime(a.PublishedAt, b.PublishedAt),
			a.RetrievedAt.Compare(b.RetrievedAt),
			strings.Compare(a.Title, b.Title),
			strings.Compare(a.Snippet, b.Snippet),
			strings.Compare(a.Domain, b.Domain),
		)
	})
	return normalizeEvidence(sorted, latestTimestamp(raw))
}

// compareOptionalTime orders missing timestamps first.
func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

// latestTimestamp is the extraction reference time for dataset evidence:
// the newest retrieved_at or published_at among the items.
func latestTimestamp(items []model.EvidenceItem) time.Time {
	var latest time.Time
	for _, it := range items {
		if it.RetrievedAt.After(latest) {
			latest = it.RetrievedAt
		}
		if it.PublishedAt != nil && it.PublishedAt.After(latest) {
			latest = *it.PublishedAt
		}
	}
	return latest.UTC()
}
