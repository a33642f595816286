package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/evaluation"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/scoring"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(f string) error {
	if f != formatTable && f != formatJSON {
		return eris.Errorf("unknown output format %q (want table or json)", f)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCLAIM\tSTATUS\tCREATED\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t-------\t-------")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			truncate(r.ClaimText, 40),
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatPriors writes source priors to w.
func formatPriors(out io.Writer, priors []model.SourcePrior) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DOMAIN\tLABEL\tEXTERNAL\tPRIOR")
	for _, p := range priors {
		external := "-"
		if p.ExternalScore != nil {
			external = fmt.Sprintf("%.1f", *p.ExternalScore)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%.4f\n", p.Domain, p.ReliabilityLabel, external, p.PriorScore)
	}
	_ = w.Flush()
}

// formatFeatures writes a feature vector, one feature per line, in name
// order.
func formatFeatures(out io.Writer, fv *model.FeatureVector, names []string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "run\t%s\n", fv.RunID)
	_, _ = fmt.Fprintf(w, "schema\t%s\n", fv.SchemaVersion)
	_, _ = fmt.Fprintf(w, "as of\t%s\n", fv.ExtractedAt.Format("2006-01-02 15:04:05Z07:00"))
	if fv.InsufficientEvidence {
		_, _ = fmt.Fprintln(w, "note\tinsufficient evidence, neutral defaults")
	}
	_, _ = fmt.Fprintln(w)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "%s\t%.6f\n", name, fv.Values[name])
	}
	_ = w.Flush()
}

// formatScores writes score results with their top contributions.
func formatScores(out io.Writer, results []*model.ScoreResult, top int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MODEL\tPROBABILITY\tLABEL\tRAW\tTOP FEATURES")
	for _, res := range results {
		var parts []string
		for _, c := range scoring.TopContributions(res, top) {
			parts = append(parts, fmt.Sprintf("%s %+.3f", c.Feature, c.Contribution))
		}
		_, _ = fmt.Fprintf(w, "%s\t%.4f\t%s\t%.4f\t%s\n",
			model.ModelRef(res.ModelID, res.ModelVersion),
			res.Probability,
			res.Label,
			res.RawScore,
			strings.Join(parts, ", "),
		)
	}
	_ = w.Flush()
}

// formatModels writes the trained model registry.
func formatModels(out io.Writer, models []model.TrainedModel) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MODEL\tSCHEMA\tDATASET\tCALIBRATION\tT_LOW\tT_HIGH\tAUROC\tCREATED")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
		scoring.BaselineID, "v1", "-", model.CalibrationAffine,
		scoring.BaselineThresholds.Low, scoring.BaselineThresholds.High, "-", "built in")
	for _, m := range models {
		auroc := "-"
		if v, ok := m.Metrics["auroc"]; ok {
			auroc = fmt.Sprintf("%.4f", v)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
			m.Ref(),
			m.SchemaVersion,
			m.DatasetName,
			m.Calibration.Method,
			m.Thresholds.Low,
			m.Thresholds.High,
			auroc,
			m.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatModel writes one trained model: its provenance, per-feature weights
// and validation metrics.
func formatModel(out io.Writer, m *model.TrainedModel) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "model\t%s\n", m.Ref())
	_, _ = fmt.Fprintf(w, "schema\t%s\n", m.SchemaVersion)
	_, _ = fmt.Fprintf(w, "dataset\t%s (%s)\n", m.DatasetName, truncateID(m.DatasetHash))
	_, _ = fmt.Fprintf(w, "config\t%s\n", truncateID(m.ConfigHash))
	_, _ = fmt.Fprintf(w, "iterations\t%d\n", m.Iterations)
	_, _ = fmt.Fprintf(w, "calibration\t%s a=%.4f b=%.4f\n", m.Calibration.Method, m.Calibration.A, m.Calibration.B)
	_, _ = fmt.Fprintf(w, "thresholds\t%.2f / %.2f (%s)\n", m.Thresholds.Low, m.Thresholds.High, m.ThresholdObjective)
	_, _ = fmt.Fprintf(w, "bias\t%+.6f\n", m.Bias)
	for i, name := range m.FeatureNames {
		_, _ = fmt.Fprintf(w, "w[%s]\t%+.6f\n", name, m.Weights[i])
	}
	keys := make([]string, 0, len(m.Metrics))
	for k := range m.Metrics {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s\t%.4f\n", k, m.Metrics[k])
	}
	_ = w.Flush()
}

// formatMetrics writes one metrics block per labelled row.
func formatMetrics(out io.Writer, rows []metricsRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MODEL\tVARIANT\tN\tACCURACY\tPRECISION\tRECALL\tF1\tBRIER\tAUROC\tECE")
	for _, r := range rows {
		m := r.Metrics
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%s\t%.4f\n",
			r.Model, r.Variant, m.N, m.Accuracy, m.Precision, m.Recall, m.F1, m.Brier,
			evaluation.FormatOptional(m.AUROC), m.ECE)
	}
	_ = w.Flush()
}

// formatStrata writes per-stratum metrics.
func formatStrata(out io.Writer, strata []evaluation.StratumMetrics) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STRATUM\tBUCKET\tN\tACCURACY\tF1\tBRIER\tAUROC\tECE")
	for _, s := range strata {
		m := s.Metrics
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\t%.4f\t%s\t%.4f\n",
			s.Key, s.Bucket, m.N, m.Accuracy, m.F1, m.Brier, evaluation.FormatOptional(m.AUROC), m.ECE)
	}
	_ = w.Flush()
}

type metricsRow struct {
	Model   string
	Variant string
	Metrics evaluation.Metrics
}
