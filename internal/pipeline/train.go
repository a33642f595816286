package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/veracity-cli/internal/dataset"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/training"
)

// TrainRequest names the dataset and target model of a training run.
type TrainRequest struct {
	ModelID        string
	SchemaVersion  string
	Dataset        *dataset.Dataset
	AllowSynthetic bool
}

// Train resolves features for the binary-labeled examples of a dataset,
// fits a model and stores it under the next version of its id.
func (p *Pipeline) Train(ctx context.Context, req TrainRequest) (*model.TrainedModel, error) {
	if req.Dataset == nil {
		return nil, eris.New("pipeline: train: dataset is required")
	}
	version := req.SchemaVersion
	if version == "" {
		version = p.cfg.Extract.SchemaVersion
	}
	log := zap.L().With(
		zap.String("model_id", req.ModelID),
		zap.String("dataset", req.Dataset.Name),
		zap.String("dataset_hash", req.Dataset.Hash),
	)
	start := time.Now()

	resolver := p.Resolver(version, req.AllowSynthetic)
	examples := req.Dataset.Binary()
	samples := make([]training.Sample, 0, len(examples))
	sources := map[FeatureSource]int{}
	for _, ex := range examples {
		fv, src, err := resolver.Resolve(ctx, ex)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: train %s", req.ModelID)
		}
		sources[src]++
		samples = append(samples, training.Sample{
			ID:       ex.ClaimID,
			Features: fv,
			Label:    ex.Label.Binary(),
		})
	}
	log.Info("pipeline: training samples resolved",
		zap.Int("samples", len(samples)),
		zap.Int("dropped_uncertain", len(req.Dataset.Examples)-len(examples)),
		zap.Any("sources", sources),
	)

	rec, err := training.Train(training.Request{
		ModelID:       req.ModelID,
		SchemaVersion: version,
		DatasetName:   req.Dataset.Name,
		DatasetHash:   req.Dataset.Hash,
		Samples:       samples,
		Now:           p.now(),
	}, p.cfg.Train)
	if err != nil {
		return nil, err
	}

	saved, err := p.store.SaveTrainedModel(ctx, rec)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: save model %s", req.ModelID)
	}
	log.Info("pipeline: model saved",
		zap.String("model", saved.Ref()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return saved, nil
}
