package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/veracity-cli/internal/dataset"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
	"github.com/sells-group/veracity-cli/internal/scoring"
)

// labeledDataset embeds v1 features whose label follows
// weighted_prior_mean with bounded noise, plus one uncertain example.
func labeledDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	s := schema.MustGet(schema.V1)

	examples := make([]dataset.Example, 0, n+1)
	for i := range n {
		values := make(map[string]float64, s.Dim())
		for _, name := range s.Names() {
			values[name] = rng.Float64()
		}
		values[schema.PublicationSpanHours] = 0
		label := model.LabelNotCredible
		if values[schema.WeightedPriorMean]+0.2*(rng.Float64()-0.5) > 0.5 {
			label = model.LabelCredible
		}
		id := fmt.Sprintf("claim-%03d", i)
		examples = append(examples, dataset.Example{ClaimID: id, Claim: "claim " + id, Label: label, Features: values})
	}
	examples = append(examples, dataset.Example{ClaimID: "claim-zzz", Claim: "unclear", Label: model.LabelUncertain, Features: map[string]float64{
		schema.TotalArticles:          1,
		schema.UniqueDomains:          1,
		schema.WeightedPriorMean:      0.5,
		schema.HighReliabilityRatio:   0,
		schema.UnknownSourceRatio:     1,
		schema.RecencyScore:           0.5,
		schema.PublicationSpanHours:   0,
		schema.MissingTimestampRatio:  1,
		schema.DomainDiversity:        0,
		schema.MaxDomainConcentration: 1,
	}})

	hash, err := dataset.ContentHash(dataset.LabelMapGeneric, examples)
	require.NoError(t, err)
	return &dataset.Dataset{Name: "synthetic", LabelMap: dataset.LabelMapGeneric, Examples: examples, Hash: hash}
}

func TestTrain_VersionsPerModelID(t *testing.T) {
	st := newTestStore(t)
	p := newTestPipeline(t, st)
	ctx := context.Background()
	ds := labeledDataset(t, 120)

	req := TrainRequest{ModelID: "lr", SchemaVersion: schema.V1, Dataset: ds}
	first, err := p.Train(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, ds.Hash, first.DatasetHash)
	assert.Equal(t, "synthetic", first.DatasetName)
	assert.Equal(t, 120, first.TrainSize+first.ValidationSize, "uncertain examples are not trained on")
	assert.Equal(t, fixedNow, first.CreatedAt)

	second, err := p.Train(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, first.Weights, second.Weights)

	latest, err := st.GetTrainedModel(ctx, "lr", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
}

func TestTrain_Errors(t *testing.T) {
	p := newTestPipeline(t, newTestStore(t))
	ctx := context.Background()

	_, err := p.Train(ctx, TrainRequest{ModelID: "lr"})
	assert.Error(t, err)

	_, err = p.Train(ctx, TrainRequest{ModelID: scoring.BaselineID, SchemaVersion: schema.V1, Dataset: labeledDataset(t, 40)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")

	// Embedded v1 features cannot fill a v2 design matrix.
	_, err = p.Train(ctx, TrainRequest{ModelID: "lr", SchemaVersion: schema.V2, Dataset: labeledDataset(t, 40)})
	assert.Error(t, err)

	noFeatures := &dataset.Dataset{Name: "bare", Examples: []dataset.Example{
		{ClaimID: "a", Claim: "a", Label: model.LabelCredible},
	}}
	_, err = p.Train(ctx, TrainRequest{ModelID: "lr", Dataset: noFeatures})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no features")
}

func TestEvaluate_TrainedModelWithArtifacts(t *testing.T) {
	st := newTestStore(t)
	p := newTestPipeline(t, st)
	ctx := context.Background()
	ds := labeledDataset(t, 120)

	_, err := p.Train(ctx, TrainRequest{ModelID: "lr", SchemaVersion: schema.V1, Dataset: ds})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "eval")
	ev, err := p.Evaluate(ctx, EvaluateRequest{Dataset: ds, ModelRef: "lr", OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, "lr@1", ev.Model)
	assert.Equal(t, ds.Hash, ev.Hash)
	assert.Equal(t, 121, ev.Report.Overall.N, "evaluation keeps uncertain examples")
	require.NotNil(t, ev.Report.Overall.AUROC)
	assert.Greater(t, *ev.Report.Overall.AUROC, 0.8)
	require.Len(t, ev.Records, 121)
	for _, r := range ev.Records {
		assert.Equal(t, model.VariantFull, r.Variant)
		assert.Equal(t, "lr@1", r.Model)
		assert.Equal(t, "synthetic", r.Dataset)
	}

	for _, name := range []string{"false_positives.csv", "false_negatives.csv", "hard_cases.csv", "summary.md"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	summary, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "lr@1 on synthetic")
}

func TestEvaluate_BaselineSynthetic(t *testing.T) {
	p := newTestPipeline(t, newTestStore(t))
	ds := &dataset.Dataset{Name: "smoke", Examples: []dataset.Example{
		{ClaimID: "a", Claim: "The bridge closed", Label: model.LabelCredible},
		{ClaimID: "b", Claim: "The moon is cheese", Label: model.LabelNotCredible},
	}}

	ev, err := p.Evaluate(context.Background(), EvaluateRequest{Dataset: ds, ModelRef: scoring.BaselineID, AllowSynthetic: true})
	require.NoError(t, err)
	assert.Equal(t, scoring.BaselineID, ev.Model)
	assert.Equal(t, 2, ev.Report.Overall.N)

	_, err = p.Evaluate(context.Background(), EvaluateRequest{Dataset: ds, ModelRef: scoring.BaselineID})
	assert.Error(t, err, "no feature source without synthetic features")

	_, err = p.Evaluate(context.Background(), EvaluateRequest{Dataset: ds, ModelRef: "missing"})
	require.Error(t, err)
	assert.True(t, model.IsModelNotFound(err))
}
