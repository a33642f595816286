package benchmark

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/veracity-cli/internal/dataset"
)

// Plan is a benchmark plan file:
//
//	datasets:
//	  - path: data/liar_dev.csv
//	    label_map: liar
//	models: [baseline_v1, lr]
//	schema_version: v2
//	allow_synthetic: false
//	ablation:
//	  enabled: true
//	  mode: neutral
//	  groups: [temporal, text]
type Plan struct {
	Datasets       []DatasetPlan `yaml:"datasets"`
	Models         []string      `yaml:"models"`
	SchemaVersion  string        `yaml:"schema_version"`
	AllowSynthetic bool          `yaml:"allow_synthetic"`
	Ablation       AblationPlan  `yaml:"ablation"`
	OutputDir      string        `yaml:"output_dir"`
}

// DatasetPlan locates one dataset of a plan.
type DatasetPlan struct {
	Path     string `yaml:"path"`
	Name     string `yaml:"name"`
	LabelMap string `yaml:"label_map"`
}

// AblationPlan configures ablation for every dataset of a plan.
type AblationPlan struct {
	Enabled bool     `yaml:"enabled"`
	Mode    string   `yaml:"mode"`
	Groups  []string `yaml:"groups"`
}

// LoadPlan reads and validates a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "benchmark: read plan %s", path)
	}
	var p Plan
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, eris.Wrapf(err, "benchmark: parse plan %s", path)
	}
	if err := p.Validate(); err != nil {
		return nil, eris.Wrapf(err, "benchmark: plan %s", path)
	}
	return &p, nil
}

// Validate checks the plan without touching the datasets.
func (p *Plan) Validate() error {
	if len(p.Datasets) == 0 {
		return eris.New("at least one dataset is required")
	}
	for i := range p.Datasets {
		d := &p.Datasets[i]
		if d.Path == "" {
			return eris.Errorf("dataset %d: path is required", i+1)
		}
		if d.LabelMap == "" {
			d.LabelMap = dataset.LabelMapGeneric
		}
	}
	if _, err := ParseAblationMode(p.Ablation.Mode); err != nil {
		return err
	}
	return nil
}
