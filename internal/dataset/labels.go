package dataset

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
)

// Label map names.
const (
	LabelMapGeneric = "generic"
	LabelMapLIAR    = "liar"
	LabelMapFEVER   = "fever"
)

var labelMaps = map[string]map[string]model.Label{
	LabelMapGeneric: {
		"credible":     model.LabelCredible,
		"1":            model.LabelCredible,
		"true":         model.LabelCredible,
		"not_credible": model.LabelNotCredible,
		"0":            model.LabelNotCredible,
		"false":        model.LabelNotCredible,
		"uncertain":    model.LabelUncertain,
	},
	LabelMapLIAR: {
		"true":        model.LabelCredible,
		"mostly-true": model.LabelCredible,
		"half-true":   model.LabelCredible,
		"barely-true": model.LabelNotCredible,
		"false":       model.LabelNotCredible,
		"pants-fire":  model.LabelNotCredible,
	},
	LabelMapFEVER: {
		"supports":        model.LabelCredible,
		"refutes":         model.LabelNotCredible,
		"not enough info": model.LabelUncertain,
	},
}

// LabelMaps lists the supported label map names.
func LabelMaps() []string {
	names := make([]string, 0, len(labelMaps))
	for n := range labelMaps {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// MapLabel converts a raw dataset label. Matching ignores case and
// surrounding space. Uncertain results are kept for evaluation and dropped
// from training.
func MapLabel(mapName, raw string) (model.Label, error) {
	m, ok := labelMaps[mapName]
	if !ok {
		return "", eris.Errorf("dataset: unknown label map %q", mapName)
	}
	l, ok := m[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", eris.Errorf("dataset: label %q is not in the %s map", raw, mapName)
	}
	return l, nil
}
