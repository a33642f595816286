package benchmark

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/veracity-cli/internal/config"
	"github.com/sells-group/veracity-cli/internal/dataset"
	"github.com/sells-group/veracity-cli/internal/features"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
	"github.com/sells-group/veracity-cli/internal/scoring"
	"github.com/sells-group/veracity-cli/internal/store"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// syntheticSource serves seeded pseudo-features and counts calls.
type syntheticSource struct {
	version string
	calls   atomic.Int64
	fail    string
}

func (s *syntheticSource) Features(_ context.Context, ex dataset.Example) (*model.FeatureVector, error) {
	s.calls.Add(1)
	if ex.ClaimID == s.fail {
		return nil, errors.New("no evidence")
	}
	fv, err := dataset.SyntheticFeatures(ex, s.version)
	if err != nil {
		return nil, err
	}
	fv.RunID = ex.ClaimID
	return fv, nil
}

func testConfig(concurrency int) *config.Config {
	return &config.Config{
		Evaluate:  config.EvaluateConfig{CalibrationBins: 5, ECEBins: 10, ErrorTopN: 20, HardCaseHigh: 0.8, HardCaseLow: 0.2},
		Benchmark: config.BenchmarkConfig{Concurrency: concurrency},
	}
}

func smokeDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	labels := []model.Label{model.LabelCredible, model.LabelNotCredible, model.LabelUncertain}
	examples := make([]dataset.Example, n)
	for i := range examples {
		id := fmt.Sprintf("c%03d", i)
		examples[i] = dataset.Example{ClaimID: id, Claim: "claim number " + id, Label: labels[i%len(labels)]}
	}
	hash, err := dataset.ContentHash(dataset.LabelMapGeneric, examples)
	require.NoError(t, err)
	return &dataset.Dataset{Name: "smoke", LabelMap: dataset.LabelMapGeneric, Examples: examples, Hash: hash}
}

func newTestRunner(st Store, src FeatureSource, concurrency int) *Runner {
	r := NewRunner(st, src, testConfig(concurrency))
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestRun_BaselineWithAblation(t *testing.T) {
	src := &syntheticSource{version: schema.V2}
	r := newTestRunner(nil, src, 4)
	ds := smokeDataset(t, 30)

	res, err := r.Run(context.Background(), ds, Options{
		Models:        []string{scoring.BaselineID},
		SchemaVersion: schema.V2,
		Ablate:        true,
		Groups:        []model.FeatureGroup{model.GroupTemporal, model.GroupVolume},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), src.calls.Load(), "features resolved once per example")
	assert.Empty(t, res.Dir)

	rep := res.Report
	assert.Equal(t, []string{scoring.BaselineID}, rep.Models)
	assert.Equal(t, AblationZero, rep.AblationMode)
	assert.Equal(t, 30, rep.Examples)
	assert.Equal(t, 10, rep.Labels[model.LabelUncertain])
	assert.Equal(t, CodeVersion, rep.CodeVersion)
	require.Len(t, rep.Results, 1)

	full := rep.Results[0].Full
	assert.Equal(t, 30, full.Overall.N)
	require.Len(t, rep.Results[0].Ablations, 2)
	for _, a := range rep.Results[0].Ablations {
		assert.Equal(t, 30, a.Metrics.N)
		assert.InDelta(t, a.Metrics.Brier-full.Overall.Brier, a.Delta.Brier, 1e-12)
		assert.InDelta(t, a.Metrics.Accuracy-full.Overall.Accuracy, a.Delta.Accuracy, 1e-12)
	}

	// One record per example, model and variant, in example order.
	require.Len(t, res.Records, 90)
	assert.Equal(t, "c000", res.Records[0].ClaimID)
	assert.Equal(t, model.VariantFull, res.Records[0].Variant)
	assert.Equal(t, model.AblationVariant(model.GroupTemporal), res.Records[1].Variant)
	assert.Equal(t, model.AblationVariant(model.GroupVolume), res.Records[2].Variant)
	for _, rec := range res.Records {
		assert.Equal(t, rep.ID, rec.ReportID)
	}
}

func TestRun_DeterministicAcrossConcurrency(t *testing.T) {
	ds := smokeDataset(t, 40)
	opts := Options{Models: []string{scoring.BaselineID}, SchemaVersion: schema.V2, Ablate: true, AblationMode: AblationNeutral}

	serial, err := newTestRunner(nil, &syntheticSource{version: schema.V2}, 1).Run(context.Background(), ds, opts)
	require.NoError(t, err)
	parallel, err := newTestRunner(nil, &syntheticSource{version: schema.V2}, 8).Run(context.Background(), ds, opts)
	require.NoError(t, err)

	if diff := cmp.Diff(serial.Report, parallel.Report); diff != "" {
		t.Errorf("report depends on concurrency (-serial +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(serial.Records, parallel.Records); diff != "" {
		t.Errorf("records depend on concurrency (-serial +parallel):\n%s", diff)
	}

	a, err := MarshalReport(serial.Report)
	require.NoError(t, err)
	b, err := MarshalReport(parallel.Report)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_WritesReportOnce(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	out := t.TempDir()
	r := newTestRunner(st, &syntheticSource{version: schema.V1}, 2)
	ds := smokeDataset(t, 12)
	opts := Options{Models: []string{scoring.BaselineID}, SchemaVersion: schema.V1, OutputDir: out}

	first, err := r.Run(context.Background(), ds, opts)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, filepath.Join(out, first.Report.ID), first.Dir)

	for _, name := range []string{ReportFile, PredictionsFile, WorkbookFile} {
		_, err := os.Stat(filepath.Join(first.Dir, name))
		require.NoError(t, err, name)
	}

	preds, err := os.ReadFile(filepath.Join(first.Dir, PredictionsFile))
	require.NoError(t, err)
	assert.Contains(t, string(preds), "claim_id,model,variant,true_label,predicted_label,probability")

	wb, err := xlsx.OpenFile(filepath.Join(first.Dir, WorkbookFile))
	require.NoError(t, err)
	for _, name := range []string{"summary", "ablations", "strata", "predictions"} {
		assert.Contains(t, wb.Sheet, name)
	}

	// A second run with equal inputs finds the report and leaves it alone.
	marker := filepath.Join(first.Dir, "notes.txt")
	require.NoError(t, os.WriteFile(marker, []byte("keep"), 0o644))

	second, err := r.Run(context.Background(), ds, opts)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Report.ID, second.Report.ID)
	_, err = os.Stat(marker)
	assert.NoError(t, err)

	rec, err := st.GetReport(context.Background(), first.Report.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.Hash, rec.DatasetHash)
	assert.Equal(t, []string{scoring.BaselineID}, rec.Models)
	body, err := MarshalReport(first.Report)
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(rec.Body))
}

func TestRun_TrainedModelRef(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	s := schema.MustGet(schema.V1)
	_, err = st.SaveTrainedModel(context.Background(), &model.TrainedModel{
		ModelID:            "lr",
		SchemaVersion:      schema.V1,
		FeatureNames:       s.Names(),
		Weights:            make([]float64, s.Dim()),
		Bias:               0.2,
		Calibration:        model.CalibrationParams{Method: model.CalibrationIdentity, A: 1},
		Thresholds:         model.Thresholds{Low: 0.4, High: 0.6},
		ThresholdObjective: "fixed",
		CreatedAt:          fixedNow,
	})
	require.NoError(t, err)

	r := newTestRunner(st, &syntheticSource{version: schema.V2}, 2)
	res, err := r.Run(context.Background(), smokeDataset(t, 6), Options{
		Models:        []string{"lr", "lr@1", scoring.BaselineID},
		SchemaVersion: schema.V2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lr@1", scoring.BaselineID}, res.Report.Models, "refs resolving to one version are merged")
	for _, rec := range res.Records {
		if rec.Model == "lr@1" {
			assert.Equal(t, model.LabelUncertain, rec.PredictedLabel)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	ds := smokeDataset(t, 5)

	_, err := newTestRunner(nil, &syntheticSource{version: schema.V2}, 2).Run(ctx, ds, Options{Models: []string{"lr"}})
	require.Error(t, err)
	assert.True(t, model.IsModelNotFound(err))

	_, err = newTestRunner(nil, &syntheticSource{version: schema.V2}, 2).Run(ctx, ds, Options{})
	assert.Error(t, err)

	_, err = newTestRunner(nil, &syntheticSource{version: schema.V2, fail: "c003"}, 2).Run(ctx, ds, Options{Models: []string{scoring.BaselineID}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no evidence")

	_, err = newTestRunner(nil, &syntheticSource{version: schema.V1}, 2).Run(ctx, ds, Options{
		Models:        []string{scoring.BaselineID},
		SchemaVersion: schema.V1,
		Ablate:        true,
		Groups:        []model.FeatureGroup{model.GroupText},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feature group")
}

func TestAblator_Apply(t *testing.T) {
	fv, err := dataset.SyntheticFeatures(dataset.Example{Claim: "some claim"}, schema.V2)
	require.NoError(t, err)
	neutral, err := features.NeutralValues(schema.V2)
	require.NoError(t, err)
	s := schema.MustGet(schema.V2)

	for _, mode := range []AblationMode{AblationZero, AblationNeutral} {
		t.Run(string(mode), func(t *testing.T) {
			a, err := NewAblator(schema.V2, mode)
			require.NoError(t, err)

			out := a.Apply(fv, model.GroupTemporal)
			for name, v := range out.Values {
				switch {
				case s.GroupOf(name) != model.GroupTemporal:
					assert.Equal(t, fv.Values[name], v, name)
				case mode == AblationZero:
					assert.Equal(t, 0.0, v, name)
				default:
					assert.Equal(t, neutral[name], v, name)
				}
			}
			assert.NotEqual(t, fv.Values[schema.RecencyScore], out.Values[schema.RecencyScore])
		})
	}
}

func TestAblator_SkipsAbsentFeatures(t *testing.T) {
	fv, err := dataset.SyntheticFeatures(dataset.Example{Claim: "x"}, schema.V1)
	require.NoError(t, err)

	a, err := NewAblator(schema.V2, AblationZero)
	require.NoError(t, err)
	out := a.Apply(fv, model.GroupText)
	assert.Equal(t, fv.Values, out.Values)
	assert.Equal(t, []model.FeatureGroup{
		model.GroupVolume, model.GroupSourceQuality, model.GroupTemporal, model.GroupCorroboration, model.GroupText,
	}, a.Groups())
}

func TestParseAblationMode(t *testing.T) {
	m, err := ParseAblationMode("")
	require.NoError(t, err)
	assert.Equal(t, AblationZero, m)

	m, err = ParseAblationMode("neutral")
	require.NoError(t, err)
	assert.Equal(t, AblationNeutral, m)

	_, err = ParseAblationMode("drop")
	assert.Error(t, err)
}

func TestReportID(t *testing.T) {
	groups := []model.FeatureGroup{model.GroupTemporal}
	a := ReportID("h", "generic", "v2", []string{"baseline_v1"}, AblationZero, groups, "dev")
	assert.Len(t, a, 32)
	assert.Equal(t, a, ReportID("h", "generic", "v2", []string{"baseline_v1"}, AblationZero, groups, "dev"))
	assert.NotEqual(t, a, ReportID("h", "generic", "v2", []string{"baseline_v1"}, AblationZero, groups, "abc123"))
	assert.NotEqual(t, a, ReportID("h", "generic", "v2", []string{"baseline_v1", "lr@1"}, AblationZero, groups, "dev"))
	assert.NotEqual(t, a, ReportID("h2", "generic", "v2", []string{"baseline_v1"}, AblationZero, groups, "dev"))
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
datasets:
  - path: data/liar_dev.csv
    label_map: liar
  - path: data/smoke.jsonl
models: [baseline_v1, lr]
schema_version: v1
allow_synthetic: true
ablation:
  enabled: true
  mode: neutral
  groups: [temporal]
`), 0o644))

	p, err := LoadPlan(path)
	require.NoError(t, err)
	require.Len(t, p.Datasets, 2)
	assert.Equal(t, dataset.LabelMapLIAR, p.Datasets[0].LabelMap)
	assert.Equal(t, dataset.LabelMapGeneric, p.Datasets[1].LabelMap)
	assert.Equal(t, []string{"baseline_v1", "lr"}, p.Models)
	assert.True(t, p.AllowSynthetic)
	assert.True(t, p.Ablation.Enabled)
	assert.Equal(t, "neutral", p.Ablation.Mode)
	assert.Equal(t, []string{"temporal"}, p.Ablation.Groups)
}

func TestLoadPlan_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"no datasets": "models: [baseline_v1]\n",
		"no path":     "datasets:\n  - label_map: liar\n",
		"bad mode":    "datasets:\n  - path: a.csv\nablation:\n  mode: drop\n",
		"bad yaml":    "datasets: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadPlan(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadPlan(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
