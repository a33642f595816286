package benchmark

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/veracity-cli/internal/evaluation"
	"github.com/sells-group/veracity-cli/internal/fetcher"
	"github.com/sells-group/veracity-cli/internal/model"
)

// CodeVersion is stamped into report ids. It is set at build time with
// -ldflags "-X .../internal/benchmark.CodeVersion=<sha>".
var CodeVersion = "dev"

// Report is the reproducible outcome of one benchmark. It carries no wall
// clock time, so equal inputs serialize to equal bytes.
type Report struct {
	ID            string              `json:"report_id"`
	Dataset       string              `json:"dataset"`
	DatasetHash   string              `json:"dataset_hash"`
	LabelMap      string              `json:"label_map"`
	Examples      int                 `json:"examples"`
	Labels        map[model.Label]int `json:"labels"`
	SchemaVersion string              `json:"feature_schema_version"`
	CodeVersion   string              `json:"code_version"`
	Models        []string            `json:"models"`
	AblationMode  AblationMode        `json:"ablation_mode,omitempty"`
	Results       []ModelResult       `json:"results"`
}

// ModelResult holds the metrics of one model.
type ModelResult struct {
	Model     string             `json:"model"`
	Full      *evaluation.Report `json:"full"`
	Ablations []GroupAblation    `json:"ablations,omitempty"`
}

// GroupAblation is the outcome of scoring with one feature group ablated.
type GroupAblation struct {
	Group   model.FeatureGroup `json:"group"`
	Metrics evaluation.Metrics `json:"metrics"`
	Delta   Delta              `json:"delta"`
}

// Delta is ablated minus full. AUROC is nil when either side is undefined.
type Delta struct {
	Accuracy  float64  `json:"accuracy"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        float64  `json:"f1"`
	Brier     float64  `json:"brier"`
	ECE       float64  `json:"ece"`
	AUROC     *float64 `json:"auroc"`
}

func delta(ablated, full evaluation.Metrics) Delta {
	d := Delta{
		Accuracy:  ablated.Accuracy - full.Accuracy,
		Precision: ablated.Precision - full.Precision,
		Recall:    ablated.Recall - full.Recall,
		F1:        ablated.F1 - full.F1,
		Brier:     ablated.Brier - full.Brier,
		ECE:       ablated.ECE - full.ECE,
	}
	if ablated.AUROC != nil && full.AUROC != nil {
		v := *ablated.AUROC - *full.AUROC
		d.AUROC = &v
	}
	return d
}

// ReportID derives the content address of a report from everything that
// determines its body.
func ReportID(datasetHash, labelMap, schemaVersion string, models []string, mode AblationMode, groups []model.FeatureGroup, codeVersion string) string {
	b, _ := json.Marshal(struct {
		DatasetHash   string               `json:"dataset_hash"`
		LabelMap      string               `json:"label_map"`
		SchemaVersion string               `json:"schema_version"`
		Models        []string             `json:"models"`
		Mode          AblationMode         `json:"ablation_mode"`
		Groups        []model.FeatureGroup `json:"groups"`
		CodeVersion   string               `json:"code_version"`
	}{datasetHash, labelMap, schemaVersion, models, mode, groups, codeVersion})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

// PredictionRow is one line of predictions.csv.
type PredictionRow struct {
	ClaimID        string  `csv:"claim_id"`
	Model          string  `csv:"model"`
	Variant        string  `csv:"variant"`
	TrueLabel      string  `csv:"true_label"`
	PredictedLabel string  `csv:"predicted_label"`
	Probability    float64 `csv:"probability"`
	Volume         string  `csv:"volume"`
	UnknownPrior   string  `csv:"unknown_prior"`
	Concentration  string  `csv:"concentration"`
}

func predictionRows(records []model.EvalRecord) []PredictionRow {
	rows := make([]PredictionRow, len(records))
	for i, r := range records {
		rows[i] = PredictionRow{
			ClaimID:        r.ClaimID,
			Model:          r.Model,
			Variant:        r.Variant,
			TrueLabel:      string(r.TrueLabel),
			PredictedLabel: string(r.PredictedLabel),
			Probability:    r.Probability,
			Volume:         r.Strata[evaluation.StratumVolume],
			UnknownPrior:   r.Strata[evaluation.StratumUnknownPrior],
			Concentration:  r.Strata[evaluation.StratumConcentration],
		}
	}
	return rows
}

// Report file names inside a report directory.
const (
	ReportFile      = "report.json"
	PredictionsFile = "predictions.csv"
	WorkbookFile    = "report.xlsx"
)

// MarshalReport renders the canonical JSON body of a report.
func MarshalReport(rep *Report) ([]byte, error) {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "benchmark: marshal report")
	}
	return append(b, '\n'), nil
}

// WriteReport writes report.json, predictions.csv and report.xlsx into
// <dir>/<report id>/. An existing report directory is left untouched and
// reported with created=false.
func WriteReport(dir string, rep *Report, records []model.EvalRecord) (path string, created bool, err error) {
	path = filepath.Join(dir, rep.ID)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, eris.Wrapf(err, "benchmark: stat %s", path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, eris.Wrapf(err, "benchmark: create %s", dir)
	}

	tmp, err := os.MkdirTemp(dir, "."+rep.ID+"-")
	if err != nil {
		return "", false, eris.Wrap(err, "benchmark: create staging dir")
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	body, err := MarshalReport(rep)
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(tmp, ReportFile), body, 0o644); err != nil {
		return "", false, eris.Wrap(err, "benchmark: write report.json")
	}

	var buf bytes.Buffer
	rows := predictionRows(records)
	if err := fetcher.WriteCSV(&buf, rows); err != nil {
		return "", false, eris.Wrap(err, "benchmark: encode predictions")
	}
	if err := os.WriteFile(filepath.Join(tmp, PredictionsFile), buf.Bytes(), 0o644); err != nil {
		return "", false, eris.Wrap(err, "benchmark: write predictions.csv")
	}

	if err := writeWorkbook(filepath.Join(tmp, WorkbookFile), rep, rows); err != nil {
		return "", false, err
	}

	if err := os.Rename(tmp, path); err != nil {
		// Another writer got there first.
		if _, statErr := os.Stat(path); statErr == nil {
			return path, false, nil
		}
		return "", false, eris.Wrapf(err, "benchmark: publish %s", path)
	}
	return path, true, nil
}

func writeWorkbook(path string, rep *Report, rows []PredictionRow) error {
	f := xlsx.NewFile()

	metricHeader := []string{"model", "variant", "n", "accuracy", "precision", "recall", "f1", "brier", "auroc", "ece"}
	var summary, ablations, strata [][]any
	for _, res := range rep.Results {
		summary = append(summary, metricRow(res.Model, model.VariantFull, res.Full.Overall))
		for _, a := range res.Ablations {
			summary = append(summary, metricRow(res.Model, model.AblationVariant(a.Group), a.Metrics))
			ablations = append(ablations, []any{
				res.Model, string(a.Group),
				a.Delta.Accuracy, a.Delta.Precision, a.Delta.Recall, a.Delta.F1,
				a.Delta.Brier, optional(a.Delta.AUROC), a.Delta.ECE,
			})
		}
		for _, s := range res.Full.Strata {
			strata = append(strata, []any{
				res.Model, s.Key, s.Bucket, s.Metrics.N,
				s.Metrics.Accuracy, s.Metrics.F1, s.Metrics.Brier, optional(s.Metrics.AUROC),
			})
		}
	}

	predictions := make([][]any, len(rows))
	for i, r := range rows {
		predictions[i] = []any{
			r.ClaimID, r.Model, r.Variant, r.TrueLabel, r.PredictedLabel, r.Probability,
			r.Volume, r.UnknownPrior, r.Concentration,
		}
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{"summary", metricHeader, summary},
		{"ablations", []string{"model", "group", "d_accuracy", "d_precision", "d_recall", "d_f1", "d_brier", "d_auroc", "d_ece"}, ablations},
		{"strata", []string{"model", "key", "bucket", "n", "accuracy", "f1", "brier", "auroc"}, strata},
		{"predictions", []string{"claim_id", "model", "variant", "true_label", "predicted_label", "probability", "volume", "unknown_prior", "concentration"}, predictions},
	}
	for _, s := range sheets {
		if err := fetcher.WriteXLSXSheet(f, s.name, s.header, s.rows); err != nil {
			return eris.Wrap(err, "benchmark: build workbook")
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "benchmark: write report.xlsx")
	}
	return nil
}

func metricRow(modelRef, variant string, m evaluation.Metrics) []any {
	return []any{modelRef, variant, m.N, m.Accuracy, m.Precision, m.Recall, m.F1, m.Brier, optional(m.AUROC), m.ECE}
}

// optional leaves undefined metrics as empty cells.
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
