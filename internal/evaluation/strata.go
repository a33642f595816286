package evaluation

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
)

// Stratification keys.
const (
	StratumVolume        = "volume"
	StratumUnknownPrior  = "unknown_prior"
	StratumConcentration = "concentration"
)

// StrataFor derives stratification buckets from a run's features. Keys
// whose source feature is absent are omitted.
func StrataFor(fv *model.FeatureVector) map[string]string {
	out := map[string]string{}
	if fv == nil {
		return out
	}
	if v, ok := fv.Get(schema.TotalArticles); ok {
		out[StratumVolume] = volumeBucket(v)
	}
	if v, ok := fv.Get(schema.UnknownSourceRatio); ok {
		out[StratumUnknownPrior] = bucket(v, 0.2, 0.5, "0-0.2", "0.2-0.5", ">0.5")
	}
	if v, ok := fv.Get(schema.MaxDomainConcentration); ok {
		out[StratumConcentration] = bucket(v, 0.4, 0.7, "0-0.4", "0.4-0.7", ">0.7")
	}
	return out
}

func volumeBucket(n float64) string {
	switch {
	case n <= 0:
		return "0"
	case n <= 3:
		return "1-3"
	case n <= 10:
		return "4-10"
	default:
		return ">10"
	}
}

func bucket(v, lo, hi float64, a, b, c string) string {
	switch {
	case v <= lo:
		return a
	case v <= hi:
		return b
	default:
		return c
	}
}

// StratumMetrics is the metric set of one (key, bucket) partition.
type StratumMetrics struct {
	Key     string  `json:"key"`
	Bucket  string  `json:"bucket"`
	Metrics Metrics `json:"metrics"`
}

// Stratify partitions records by each strata key and computes metrics per
// bucket. Output is sorted by key then bucket.
func Stratify(records []model.EvalRecord, opts Options) []StratumMetrics {
	groups := map[[2]string][]model.EvalRecord{}
	for _, r := range records {
		for k, b := range r.Strata {
			key := [2]string{k, b}
			groups[key] = append(groups[key], r)
		}
	}

	keys := make([][2]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b [2]string) int {
		return cmp.Or(strings.Compare(a[0], b[0]), strings.Compare(a[1], b[1]))
	})

	out := make([]StratumMetrics, 0, len(keys))
	for _, k := range keys {
		out = append(out, StratumMetrics{Key: k[0], Bucket: k[1], Metrics: Compute(groups[k], opts)})
	}
	return out
}
