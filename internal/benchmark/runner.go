// Package benchmark runs datasets through one or more scoring models, with
// optional feature-group ablation, and writes content-addressed reports.
package benchmark

import (
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/veracity-cli/internal/config"
	"github.com/sells-group/veracity-cli/internal/dataset"
	"github.com/sells-group/veracity-cli/internal/evaluation"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
	"github.com/sells-group/veracity-cli/internal/scoring"
)

// FeatureSource resolves the feature vector of a dataset example.
type FeatureSource interface {
	Features(ctx context.Context, ex dataset.Example) (*model.FeatureVector, error)
}

// Store resolves trained models and indexes written reports.
type Store interface {
	scoring.ModelSource
	SaveReport(ctx context.Context, rep *model.ReportRecord, records []model.EvalRecord) (bool, error)
}

// Options select the models and ablation of one benchmark.
type Options struct {
	Models []string
	// SchemaVersion is the feature schema the source produces; it defines
	// the ablation groups.
	SchemaVersion string
	Ablate        bool
	AblationMode  AblationMode
	// Groups defaults to every group of the schema.
	Groups    []model.FeatureGroup
	OutputDir string
}

// Result is a finished benchmark.
type Result struct {
	Report  *Report
	Records []model.EvalRecord
	// Dir is the report directory; empty when nothing was written.
	Dir string
	// Created is false when the report already existed.
	Created bool
}

// Runner scores datasets with a bounded number of concurrent examples.
type Runner struct {
	store       Store
	features    FeatureSource
	concurrency int
	outputDir   string
	evalCfg     config.EvaluateConfig
	now         func() time.Time
}

// NewRunner creates a Runner. st may be nil, in which case only the
// baseline resolves and reports are not indexed.
func NewRunner(st Store, fs FeatureSource, cfg *config.Config) *Runner {
	concurrency := cfg.Benchmark.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		store:       st,
		features:    fs,
		concurrency: concurrency,
		outputDir:   cfg.Benchmark.OutputDir,
		evalCfg:     cfg.Evaluate,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// prediction is the scored output of one example, in model then variant
// order.
type prediction struct {
	records []model.EvalRecord
}

// Run benchmarks ds. Results are collected by example index, so the report
// does not depend on scheduling.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	if ds == nil {
		return nil, eris.New("benchmark: dataset is required")
	}
	if len(opts.Models) == 0 {
		return nil, eris.New("benchmark: at least one model is required")
	}
	if opts.SchemaVersion == "" {
		opts.SchemaVersion = schema.Latest
	}
	log := zap.L().With(zap.String("dataset", ds.Name), zap.String("dataset_hash", ds.Hash))
	start := time.Now()

	models, refs, err := r.resolveModels(ctx, opts.Models)
	if err != nil {
		return nil, err
	}

	var ablator *Ablator
	var groups []model.FeatureGroup
	if opts.Ablate {
		if opts.AblationMode == "" {
			opts.AblationMode = AblationZero
		}
		ablator, err = NewAblator(opts.SchemaVersion, opts.AblationMode)
		if err != nil {
			return nil, err
		}
		groups = opts.Groups
		if len(groups) == 0 {
			groups = ablator.Groups()
		}
		if err := ablator.CheckGroups(groups); err != nil {
			return nil, err
		}
	} else {
		opts.AblationMode = ""
	}

	preds := make([]prediction, len(ds.Examples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, ex := range ds.Examples {
		g.Go(func() error {
			p, err := r.predict(gctx, ds.Name, ex, models, refs, ablator, groups)
			if err != nil {
				return err
			}
			preds[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "benchmark: %s", ds.Name)
	}

	var records []model.EvalRecord
	for _, p := range preds {
		records = append(records, p.records...)
	}

	rep := &Report{
		ID:            ReportID(ds.Hash, ds.LabelMap, opts.SchemaVersion, refs, opts.AblationMode, groups, CodeVersion),
		Dataset:       ds.Name,
		DatasetHash:   ds.Hash,
		LabelMap:      ds.LabelMap,
		Examples:      len(ds.Examples),
		Labels:        ds.Counts(),
		SchemaVersion: opts.SchemaVersion,
		CodeVersion:   CodeVersion,
		Models:        refs,
		AblationMode:  opts.AblationMode,
		Results:       r.aggregate(records, refs, groups),
	}
	for i := range records {
		records[i].ReportID = rep.ID
	}

	res := &Result{Report: rep, Records: records}
	dir := opts.OutputDir
	if dir == "" {
		dir = r.outputDir
	}
	if dir != "" {
		path, created, err := WriteReport(dir, rep, records)
		if err != nil {
			return nil, err
		}
		res.Dir, res.Created = path, created
		if !created {
			log.Warn("benchmark: report exists, not overwriting", zap.String("report_id", rep.ID), zap.String("dir", path))
		}
	}

	if r.store != nil {
		if err := r.index(ctx, rep, records); err != nil {
			return nil, err
		}
	}

	log.Info("benchmark: complete",
		zap.String("report_id", rep.ID),
		zap.Strings("models", refs),
		zap.Int("examples", len(ds.Examples)),
		zap.Int("ablation_groups", len(groups)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) resolveModels(ctx context.Context, refs []string) ([]scoring.Model, []string, error) {
	var src scoring.ModelSource
	if r.store != nil {
		src = r.store
	}
	var models []scoring.Model
	var resolved []string
	for _, ref := range refs {
		m, err := scoring.Resolve(ctx, src, ref)
		if err != nil {
			return nil, nil, eris.Wrap(err, "benchmark: resolve models")
		}
		name := scoring.Ref(m)
		if slices.Contains(resolved, name) {
			continue
		}
		models = append(models, m)
		resolved = append(resolved, name)
	}
	return models, resolved, nil
}

func (r *Runner) predict(ctx context.Context, datasetName string, ex dataset.Example, models []scoring.Model, refs []string, ablator *Ablator, groups []model.FeatureGroup) (prediction, error) {
	fv, err := r.features.Features(ctx, ex)
	if err != nil {
		return prediction{}, err
	}
	strata := evaluation.StrataFor(fv)

	type variant struct {
		name string
		fv   *model.FeatureVector
	}
	variants := []variant{{model.VariantFull, fv}}
	for _, g := range groups {
		variants = append(variants, variant{model.AblationVariant(g), ablator.Apply(fv, g)})
	}

	out := prediction{records: make([]model.EvalRecord, 0, len(models)*len(variants))}
	for i, m := range models {
		for _, v := range variants {
			res, err := scoring.Score(v.fv, m)
			if err != nil {
				return prediction{}, eris.Wrapf(err, "example %s with %s", ex.ClaimID, refs[i])
			}
			out.records = append(out.records, model.EvalRecord{
				Dataset:        datasetName,
				ClaimID:        ex.ClaimID,
				Model:          refs[i],
				Variant:        v.name,
				PredictedLabel: res.Label,
				Probability:    res.Probability,
				TrueLabel:      ex.Label,
				Strata:         strata,
			})
		}
	}
	return out, nil
}

// aggregate computes per-model metrics. Records arrive in example order,
// so each (model, variant) subset keeps dataset order.
func (r *Runner) aggregate(records []model.EvalRecord, refs []string, groups []model.FeatureGroup) []ModelResult {
	type key struct{ model, variant string }
	subsets := make(map[key][]model.EvalRecord)
	for _, rec := range records {
		k := key{rec.Model, rec.Variant}
		subsets[k] = append(subsets[k], rec)
	}

	opts := evaluation.OptionsFrom(r.evalCfg)
	results := make([]ModelResult, 0, len(refs))
	for _, ref := range refs {
		full := evaluation.Evaluate(subsets[key{ref, model.VariantFull}], r.evalCfg)
		mr := ModelResult{Model: ref, Full: full}
		for _, g := range groups {
			m := evaluation.Compute(subsets[key{ref, model.AblationVariant(g)}], opts)
			mr.Ablations = append(mr.Ablations, GroupAblation{Group: g, Metrics: m, Delta: delta(m, full.Overall)})
		}
		results = append(results, mr)
	}
	return results
}

func (r *Runner) index(ctx context.Context, rep *Report, records []model.EvalRecord) error {
	body, err := MarshalReport(rep)
	if err != nil {
		return err
	}
	created, err := r.store.SaveReport(ctx, &model.ReportRecord{
		ID:          rep.ID,
		DatasetName: rep.Dataset,
		DatasetHash: rep.DatasetHash,
		CodeVersion: rep.CodeVersion,
		Models:      rep.Models,
		Body:        body,
		CreatedAt:   r.now(),
	}, records)
	if err != nil {
		return eris.Wrapf(err, "benchmark: index report %s", rep.ID)
	}
	if !created {
		zap.L().Debug("benchmark: report already indexed", zap.String("report_id", rep.ID))
	}
	return nil
}
