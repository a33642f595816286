package evaluation

import (
	"bytes"
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/config"
	"github.com/sells-group/veracity-cli/internal/fetcher"
	"github.com/sells-group/veracity-cli/internal/model"
)

// Report is the evaluation of one model over one dataset.
type Report struct {
	Overall Metrics          `json:"overall"`
	Strata  []StratumMetrics `json:"strata"`
}

// OptionsFrom builds metric options from the evaluate config section.
func OptionsFrom(cfg config.EvaluateConfig) Options {
	return Options{CalibrationBins: cfg.CalibrationBins, ECEBins: cfg.ECEBins}
}

// Evaluate computes overall and stratified metrics.
func Evaluate(records []model.EvalRecord, cfg config.EvaluateConfig) *Report {
	opts := OptionsFrom(cfg)
	return &Report{
		Overall: Compute(records, opts),
		Strata:  Stratify(records, opts),
	}
}

// ErrorRow is one line of an error-analysis CSV.
type ErrorRow struct {
	ClaimID        string  `csv:"claim_id"`
	Model          string  `csv:"model"`
	Variant        string  `csv:"variant"`
	Probability    float64 `csv:"probability"`
	PredictedLabel string  `csv:"predicted_label"`
	TrueLabel      string  `csv:"true_label"`
}

func toRow(r model.EvalRecord) ErrorRow {
	return ErrorRow{
		ClaimID:        r.ClaimID,
		Model:          r.Model,
		Variant:        r.Variant,
		Probability:    r.Probability,
		PredictedLabel: string(r.PredictedLabel),
		TrueLabel:      string(r.TrueLabel),
	}
}

// ErrorSets splits the misclassified records. False positives are ranked by
// probability descending, false negatives ascending, both truncated to topN
// (0 keeps all). Hard cases are confident mistakes: wrong with probability
// at or beyond one of the hard-case bounds, ordered by claim id.
func ErrorSets(records []model.EvalRecord, cfg config.EvaluateConfig) (fps, fns, hard []model.EvalRecord) {
	for _, r := range records {
		pred, y := r.PredictedLabel.Binary(), r.TrueLabel.Binary()
		if pred == y {
			continue
		}
		if pred == 1 {
			fps = append(fps, r)
		} else {
			fns = append(fns, r)
		}
		if r.Probability >= cfg.HardCaseHigh || r.Probability <= cfg.HardCaseLow {
			hard = append(hard, r)
		}
	}
	slices.SortStableFunc(fps, func(a, b model.EvalRecord) int {
		return cmp.Or(cmp.Compare(b.Probability, a.Probability), strings.Compare(a.ClaimID, b.ClaimID))
	})
	slices.SortStableFunc(fns, func(a, b model.EvalRecord) int {
		return cmp.Or(cmp.Compare(a.Probability, b.Probability), strings.Compare(a.ClaimID, b.ClaimID))
	})
	slices.SortStableFunc(hard, func(a, b model.EvalRecord) int {
		return cmp.Or(strings.Compare(a.ClaimID, b.ClaimID), strings.Compare(a.Model, b.Model))
	})
	if n := cfg.ErrorTopN; n > 0 {
		fps = fps[:min(n, len(fps))]
		fns = fns[:min(n, len(fns))]
	}
	return fps, fns, hard
}

// WriteArtifacts writes false_positives.csv, false_negatives.csv,
// hard_cases.csv and summary.md into dir.
func WriteArtifacts(dir, title string, records []model.EvalRecord, rep *Report, cfg config.EvaluateConfig) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "evaluation: create %s", dir)
	}
	fps, fns, hard := ErrorSets(records, cfg)
	sets := []struct {
		name string
		recs []model.EvalRecord
	}{
		{"false_positives.csv", fps},
		{"false_negatives.csv", fns},
		{"hard_cases.csv", hard},
	}
	for _, s := range sets {
		if err := writeRows(filepath.Join(dir, s.name), s.recs); err != nil {
			return err
		}
	}

	summary := Summary(title, rep, len(fps), len(fns), len(hard))
	if err := os.WriteFile(filepath.Join(dir, "summary.md"), []byte(summary), 0o644); err != nil {
		return eris.Wrap(err, "evaluation: write summary.md")
	}
	return nil
}

func writeRows(path string, recs []model.EvalRecord) error {
	rows := make([]ErrorRow, len(recs))
	for i, r := range recs {
		rows[i] = toRow(r)
	}
	var buf bytes.Buffer
	if err := fetcher.WriteCSV(&buf, rows); err != nil {
		return eris.Wrapf(err, "evaluation: encode %s", filepath.Base(path))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "evaluation: write %s", filepath.Base(path))
	}
	return nil
}

// Summary renders a markdown digest of a report.
func Summary(title string, rep *Report, fps, fns, hard int) string {
	var b strings.Builder
	m := rep.Overall
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("| metric | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| n | %d |\n", m.N)
	fmt.Fprintf(&b, "| accuracy | %.4f |\n", m.Accuracy)
	fmt.Fprintf(&b, "| precision | %.4f |\n", m.Precision)
	fmt.Fprintf(&b, "| recall | %.4f |\n", m.Recall)
	fmt.Fprintf(&b, "| f1 | %.4f |\n", m.F1)
	fmt.Fprintf(&b, "| brier | %.4f |\n", m.Brier)
	fmt.Fprintf(&b, "| auroc | %s |\n", FormatOptional(m.AUROC))
	fmt.Fprintf(&b, "| ece | %.4f |\n", m.ECE)
	fmt.Fprintf(&b, "\nConfusion: tp=%d fp=%d tn=%d fn=%d\n", m.Confusion.TP, m.Confusion.FP, m.Confusion.TN, m.Confusion.FN)

	b.WriteString("\n## Calibration\n\n| bin | range | count | avg_pred | avg_obs |\n|---|---|---|---|---|\n")
	for _, c := range m.Calibration {
		fmt.Fprintf(&b, "| %d | %.2f-%.2f | %d | %.4f | %.4f |\n", c.Bin, c.Low, c.High, c.Count, c.AvgPred, c.AvgObs)
	}

	if len(rep.Strata) > 0 {
		b.WriteString("\n## Strata\n\n| key | bucket | n | accuracy | f1 | auroc |\n|---|---|---|---|---|---|\n")
		for _, s := range rep.Strata {
			fmt.Fprintf(&b, "| %s | %s | %d | %.4f | %.4f | %s |\n",
				s.Key, s.Bucket, s.Metrics.N, s.Metrics.Accuracy, s.Metrics.F1, FormatOptional(s.Metrics.AUROC))
		}
	}

	fmt.Fprintf(&b, "\n## Errors\n\nfalse positives: %d, false negatives: %d, hard cases: %d\n", fps, fns, hard)
	return b.String()
}

// FormatOptional renders an optional metric, "n/a" when undefined.
func FormatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
