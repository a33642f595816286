// Package dataset loads labeled claim datasets and fingerprints their
// content.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/fetcher"
	"github.com/sells-group/veracity-cli/internal/model"
)

// row is the on-disk record. Tabular files carry the first four columns;
// JSON lines may embed features or evidence.
type row struct {
	ClaimID  string               `csv:"claim_id" json:"claim_id"`
	Claim    string               `csv:"claim" json:"claim"`
	Label    string               `csv:"label" json:"label"`
	RunID    string               `csv:"run_id,omitempty" json:"run_id,omitempty"`
	Features map[string]float64   `csv:"-" json:"features,omitempty"`
	Evidence []model.EvidenceItem `csv:"-" json:"evidence,omitempty"`
}

// Example is one labeled claim.
type Example struct {
	ClaimID  string               `json:"claim_id"`
	Claim    string               `json:"claim"`
	Label    model.Label          `json:"label"`
	RunID    string               `json:"run_id,omitempty"`
	Features map[string]float64   `json:"features,omitempty"`
	Evidence []model.EvidenceItem `json:"evidence,omitempty"`
}

// Dataset is a loaded, label-mapped dataset ordered by claim id.
type Dataset struct {
	Name     string
	LabelMap string
	Examples []Example
	Hash     string
}

// Load reads a CSV, XLSX, JSON or JSONL dataset. Claim ids must be present
// and unique; every label must be known to labelMap. The dataset name
// defaults to the file's base name without extension.
func Load(path, name, labelMap string) (*Dataset, error) {
	rows, err := fetcher.ReadFile[row](path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return fromRows(name, labelMap, rows)
}

func fromRows(name, labelMap string, rows []row) (*Dataset, error) {
	ds := &Dataset{Name: name, LabelMap: labelMap}
	seen := make(map[string]int, len(rows))
	for i, r := range rows {
		id := strings.TrimSpace(r.ClaimID)
		if id == "" {
			return nil, eris.Errorf("dataset: %s: row %d: empty claim_id", name, i+1)
		}
		if prev, dup := seen[id]; dup {
			return nil, eris.Errorf("dataset: %s: row %d: duplicate claim_id %q (first at row %d)", name, i+1, id, prev)
		}
		seen[id] = i + 1

		label, err := MapLabel(labelMap, r.Label)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: %s: row %d", name, i+1)
		}
		ds.Examples = append(ds.Examples, Example{
			ClaimID:  id,
			Claim:    strings.TrimSpace(r.Claim),
			Label:    label,
			RunID:    strings.TrimSpace(r.RunID),
			Features: r.Features,
			Evidence: r.Evidence,
		})
	}
	slices.SortFunc(ds.Examples, func(a, b Example) int { return strings.Compare(a.ClaimID, b.ClaimID) })

	hash, err := ContentHash(labelMap, ds.Examples)
	if err != nil {
		return nil, err
	}
	ds.Hash = hash
	return ds, nil
}

// ContentHash is sha256 over the canonical JSON of the label map name and
// the examples in claim-id order. It ignores the file name and row order.
func ContentHash(labelMap string, examples []Example) (string, error) {
	sorted := slices.Clone(examples)
	slices.SortFunc(sorted, func(a, b Example) int { return strings.Compare(a.ClaimID, b.ClaimID) })
	b, err := json.Marshal(struct {
		LabelMap string    `json:"label_map"`
		Examples []Example `json:"examples"`
	}{labelMap, sorted})
	if err != nil {
		return "", eris.Wrap(err, "dataset: marshal for hash")
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Binary returns the examples usable for training: uncertain labels are
// dropped.
func (d *Dataset) Binary() []Example {
	out := make([]Example, 0, len(d.Examples))
	for _, ex := range d.Examples {
		if ex.Label != model.LabelUncertain {
			out = append(out, ex)
		}
	}
	return out
}

// Counts tallies examples per label.
func (d *Dataset) Counts() map[model.Label]int {
	out := map[model.Label]int{}
	for _, ex := range d.Examples {
		out[ex.Label]++
	}
	return out
}
