package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/veracity-cli/internal/dataset"
	"github.com/sells-group/veracity-cli/internal/evaluation"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/scoring"
)

// EvaluateRequest names the dataset and model of one evaluation.
type EvaluateRequest struct {
	Dataset        *dataset.Dataset
	ModelRef       string
	SchemaVersion  string
	AllowSynthetic bool
	// OutputDir receives the error artifacts and summary when set.
	OutputDir      string
}

// Evaluation is the outcome of Evaluate.
type Evaluation struct {
	Model   string             `json:"model"`
	Dataset string             `json:"dataset"`
	Hash    string             `json:"dataset_hash"`
	Report  *evaluation.Report `json:"report"`
	Records []model.EvalRecord `json:"-"`
}

// Predict scores every example of ds with m.
func Predict(ctx context.Context, r *Resolver, ds *dataset.Dataset, m scoring.Model) ([]model.EvalRecord, error) {
	ref := scoring.Ref(m)
	records := make([]model.EvalRecord, 0, len(ds.Examples))
	for _, ex := range ds.Examples {
		fv, err := r.Features(ctx, ex)
		if err != nil {
			return nil, err
		}
		res, err := scoring.Score(fv, m)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: example %s with %s", ex.ClaimID, ref)
		}
		records = append(records, model.EvalRecord{
			Dataset:        ds.Name,
			ClaimID:        ex.ClaimID,
			Model:          ref,
			Variant:        model.VariantFull,
			PredictedLabel: res.Label,
			Probability:    res.Probability,
			TrueLabel:      ex.Label,
			Strata:         evaluation.StrataFor(fv),
		})
	}
	return records, nil
}

// Evaluate scores a labeled dataset with one model and computes overall and
// stratified metrics, optionally writing error artifacts.
func (p *Pipeline) Evaluate(ctx context.Context, req EvaluateRequest) (*Evaluation, error) {
	if req.Dataset == nil {
		return nil, eris.New("pipeline: evaluate: dataset is required")
	}
	m, err := scoring.Resolve(ctx, p.store, req.ModelRef)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: evaluate")
	}
	ref := scoring.Ref(m)

	records, err := Predict(ctx, p.Resolver(req.SchemaVersion, req.AllowSynthetic), req.Dataset, m)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: evaluate")
	}
	rep := evaluation.Evaluate(records, p.cfg.Evaluate)

	if req.OutputDir != "" {
		title := fmt.Sprintf("%s on %s", ref, req.Dataset.Name)
		if err := evaluation.WriteArtifacts(req.OutputDir, title, records, rep, p.cfg.Evaluate); err != nil {
			return nil, eris.Wrap(err, "pipeline: evaluate")
		}
	}

	zap.L().Info("pipeline: evaluation complete",
		zap.String("model", ref),
		zap.String("dataset", req.Dataset.Name),
		zap.String("dataset_hash", req.Dataset.Hash),
		zap.Int("n", rep.Overall.N),
		zap.Float64("accuracy", rep.Overall.Accuracy),
		zap.Float64("brier", rep.Overall.Brier),
		zap.String("auroc", evaluation.FormatOptional(rep.Overall.AUROC)),
	)
	return &Evaluation{
		Model:   ref,
		Dataset: req.Dataset.Name,
		Hash:    req.Dataset.Hash,
		Report:  rep,
		Records: records,
	}, nil
}
