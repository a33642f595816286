// Package pipeline orchestrates per-run work over the store: evidence
// ingestion, feature extraction, scoring, training and evaluation.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/veracity-cli/internal/config"
	"github.com/sells-group/veracity-cli/internal/features"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/priors"
	"github.com/sells-group/veracity-cli/internal/scoring"
	"github.com/sells-group/veracity-cli/internal/store"
)

// Pipeline binds the pure core to a store.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
	now   func() time.Time
}

// New creates a Pipeline. cfg supplies schema and training defaults.
func New(cfg *config.Config, st store.Store) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ExtractOptions override the defaults of Extract.
type ExtractOptions struct {
	// SchemaVersion defaults to extract.schema_version.
	SchemaVersion string
	// AsOf defaults to the run's creation time.
	AsOf          *time.Time
}

// Extract computes and stores the feature vector of a run. Re-extraction
// with the same evidence, priors and reference time yields the same vector.
func (p *Pipeline) Extract(ctx context.Context, runID string, opts ExtractOptions) (*model.FeatureVector, error) {
	log := zap.L().With(zap.String("run_id", runID))

	run, err := p.store.GetRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extract")
	}
	evidence, err := p.store.ListEvidence(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extract")
	}
	lookup, err := p.priorLookup(ctx)
	if err != nil {
		return nil, err
	}

	version := opts.SchemaVersion
	if version == "" {
		version = p.cfg.Extract.SchemaVersion
	}
	asOf := run.CreatedAt
	if opts.AsOf != nil {
		asOf = opts.AsOf.UTC()
	}

	fv, err := features.Extract(features.Input{
		RunID:         run.ID,
		ClaimText:     run.ClaimText,
		Evidence:      evidence,
		Priors:        lookup,
		AsOf:          asOf,
		SchemaVersion: version,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: extract run %s", runID)
	}
	if err := p.store.SaveFeatures(ctx, fv); err != nil {
		return nil, eris.Wrap(err, "pipeline: extract")
	}
	p.setStatus(ctx, runID, model.RunStatusExtracted)

	log.Info("pipeline: features extracted",
		zap.String("schema_version", fv.SchemaVersion),
		zap.Int("evidence", len(evidence)),
		zap.Bool("insufficient_evidence", fv.InsufficientEvidence),
		zap.Time("as_of", asOf),
	)
	return fv, nil
}

// Score scores a run's stored features with each model reference and
// stores one result per (run, model id), overwriting earlier results.
func (p *Pipeline) Score(ctx context.Context, runID string, refs []string) ([]*model.ScoreResult, error) {
	log := zap.L().With(zap.String("run_id", runID))

	fv, err := p.store.GetFeatures(ctx, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: score run %s", runID)
	}

	results := make([]*model.ScoreResult, 0, len(refs))
	for _, ref := range refs {
		m, err := scoring.Resolve(ctx, p.store, ref)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: score run %s", runID)
		}
		res, err := scoring.Score(fv, m)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: score run %s with %s", runID, scoring.Ref(m))
		}
		res.CreatedAt = p.now()
		if err := p.store.SaveScore(ctx, res); err != nil {
			return nil, eris.Wrap(err, "pipeline: score")
		}
		log.Info("pipeline: run scored",
			zap.String("model_id", res.ModelID),
			zap.Int("model_version", res.ModelVersion),
			zap.Float64("probability", res.Probability),
			zap.String("label", string(res.Label)),
		)
		results = append(results, res)
	}
	p.setStatus(ctx, runID, model.RunStatusScored)
	return results, nil
}

func (p *Pipeline) priorLookup(ctx context.Context) (priors.Lookup, error) {
	ps, err := p.store.ListPriors(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load priors")
	}
	return priors.NewLookup(ps), nil
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus) {
	if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
		zap.L().Warn("pipeline: failed to update status",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
