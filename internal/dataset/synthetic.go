package dataset

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"

	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
)

type syntheticRange struct {
	name   string
	lo, hi float64
}

// Drawn in this order so adding a schema does not shift earlier values.
var syntheticRanges = []syntheticRange{
	{schema.TotalArticles, 1, 20},
	{schema.UniqueDomains, 1, 10},
	{schema.WeightedPriorMean, 0, 1},
	{schema.HighReliabilityRatio, 0, 1},
	{schema.UnknownSourceRatio, 0, 1},
	{schema.RecencyScore, 0, 1},
	{schema.MissingTimestampRatio, 0, 1},
	{schema.PublicationSpanHours, 0, 1000},
	{schema.DomainDiversity, 0, 3},
	{schema.MaxDomainConcentration, 0, 1},
	{schema.MedianPrior, 0, 1},
	{schema.MinPrior, 0, 1},
	{schema.MaxPrior, 0, 1},
	{schema.MeanJaccard, 0, 1},
	{schema.MaxJaccard, 0, 1},
	{schema.TopKMeanJaccard, 0, 1},
	{schema.EntityOverlapMean, 0, 1},
	{schema.EntityOverlapMax, 0, 1},
	{schema.ContradictionSignalRatio, 0, 1},
}

// SyntheticFeatures draws uniform pseudo-features seeded by the claim text
// for offline smoke benchmarks without evidence. Equal claims give equal
// vectors.
func SyntheticFeatures(ex Example, version string) (*model.FeatureVector, error) {
	s, err := schema.Get(version)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(ex.Claim))
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))

	all := make(map[string]float64, len(syntheticRanges))
	for _, r := range syntheticRanges {
		all[r.name] = r.lo + (r.hi-r.lo)*rng.Float64()
	}

	values := make(map[string]float64, s.Dim())
	for _, name := range s.Names() {
		values[name] = all[name]
	}
	return &model.FeatureVector{
		RunID:         ex.RunID,
		SchemaVersion: s.Version,
		Values:        values,
	}, nil
}
