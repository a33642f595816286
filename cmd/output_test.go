package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/veracity-cli/internal/evaluation"
	"github.com/sells-group/veracity-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			ClaimText: "The city council approved the new budget",
			Status:    model.RunStatusScored,
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			ClaimText: "A very long claim about something that keeps going well past forty characters",
			Status:    model.RunStatusCreated,
			CreatedAt: now.Add(-time.Hour),
			UpdatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "CLAIM")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "scored")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "A very long claim about something tha...")
}

func TestFormatPriors(t *testing.T) {
	score := 85.0
	var buf bytes.Buffer
	formatPriors(&buf, []model.SourcePrior{
		{Domain: "reuters.com", ReliabilityLabel: 1, ExternalScore: &score, PriorScore: 0.925},
		{Domain: "example.org", ReliabilityLabel: 0, PriorScore: 0.25},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "reuters.com")
	assert.Contains(t, lines[1], "85.0")
	assert.Contains(t, lines[1], "0.9250")
	assert.Contains(t, lines[2], "-")
}

func TestFormatFeatures(t *testing.T) {
	fv := &model.FeatureVector{
		RunID:                "run-1",
		SchemaVersion:        "v1",
		Values:               map[string]float64{"total_articles": 3, "unique_domains": 2},
		ExtractedAt:          time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		InsufficientEvidence: true,
	}

	var buf bytes.Buffer
	formatFeatures(&buf, fv, []string{"unique_domains", "total_articles"})

	output := buf.String()
	assert.Contains(t, output, "insufficient evidence")
	assert.Less(t, strings.Index(output, "unique_domains"), strings.Index(output, "total_articles"))
	assert.Contains(t, output, "3.000000")
}

func TestFormatScores_TopContributions(t *testing.T) {
	res := &model.ScoreResult{
		ModelID:      "lr",
		ModelVersion: 2,
		RawScore:     1.25,
		Probability:  0.81,
		Label:        model.LabelCredible,
		Contributions: []model.Contribution{
			{Feature: "b", Contribution: -0.9},
			{Feature: "c", Contribution: 0.5},
			{Feature: "a", Contribution: 0.1},
		},
	}

	var buf bytes.Buffer
	formatScores(&buf, []*model.ScoreResult{res}, 2)

	output := buf.String()
	assert.Contains(t, output, "lr@2")
	assert.Contains(t, output, "0.8100")
	assert.Contains(t, output, "b -0.900, c +0.500")
	assert.NotContains(t, output, "a +0.100")
}

func TestFormatModels_IncludesBaseline(t *testing.T) {
	var buf bytes.Buffer
	formatModels(&buf, []model.TrainedModel{{
		ModelID:       "lr",
		Version:       1,
		SchemaVersion: "v2",
		DatasetName:   "liar_train",
		Calibration:   model.CalibrationParams{Method: model.CalibrationPlatt, A: -1, B: 0},
		Thresholds:    model.Thresholds{Low: 0.4, High: 0.6},
		Metrics:       map[string]float64{"auroc": 0.7312},
	}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "baseline_v1")
	assert.Contains(t, lines[1], "built in")
	assert.Contains(t, lines[2], "lr@1")
	assert.Contains(t, lines[2], "0.7312")
}

func TestFormatModel(t *testing.T) {
	var buf bytes.Buffer
	formatModel(&buf, &model.TrainedModel{
		ModelID:      "lr",
		Version:      3,
		FeatureNames: []string{"x", "y"},
		Weights:      []float64{0.5, -0.25},
		Metrics:      map[string]float64{"brier": 0.2, "accuracy": 0.7},
	})

	output := buf.String()
	assert.Contains(t, output, "lr@3")
	assert.Contains(t, output, "w[y]")
	assert.Contains(t, output, "-0.250000")
	assert.Less(t, strings.Index(output, "accuracy"), strings.Index(output, "brier"))
}

func TestFormatMetrics_UndefinedAUROC(t *testing.T) {
	var buf bytes.Buffer
	formatMetrics(&buf, []metricsRow{{
		Model:   "baseline_v1",
		Variant: model.VariantFull,
		Metrics: evaluation.Metrics{N: 4, Accuracy: 0.5},
	}})

	output := buf.String()
	assert.Contains(t, output, "baseline_v1")
	assert.Contains(t, output, "full")
	assert.Contains(t, output, evaluation.FormatOptional(nil))
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("table"))
	assert.NoError(t, checkFormat("json"))
	assert.Error(t, checkFormat("yaml"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "abcd", truncateID("abcd"))
}
