// Package schema holds the versioned feature schemas and the vectorizer
// that maps named feature vectors to dense, index-aligned arrays.
package schema

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
)

// Schema versions.
const (
	V1     = "v1"
	V2     = "v2"
	Latest = V2
)

// Feature names.
const (
	TotalArticles = "total_articles"
	UniqueDomains = "unique_domains"

	WeightedPriorMean    = "weighted_prior_mean"
	HighReliabilityRatio = "high_reliability_ratio"
	UnknownSourceRatio   = "unknown_source_ratio"
	MedianPrior          = "median_prior"
	MinPrior             = "min_prior"
	MaxPrior             = "max_prior"

	RecencyScore          = "recency_score"
	PublicationSpanHours  = "publication_span_hours"
	MissingTimestampRatio = "missing_timestamp_ratio"

	DomainDiversity        = "domain_diversity"
	MaxDomainConcentration = "max_domain_concentration"

	MeanJaccard              = "mean_jaccard"
	MaxJaccard               = "max_jaccard"
	TopKMeanJaccard          = "topk_mean_jaccard"
	EntityOverlapMean        = "entity_overlap_mean"
	EntityOverlapMax         = "entity_overlap_max"
	ContradictionSignalRatio = "contradiction_signal_ratio"
)

// Feature is a named feature and the group it belongs to.
type Feature struct {
	Name  string
	Group model.FeatureGroup
}

// Schema is an ordered, versioned list of features.
type Schema struct {
	Version  string
	Features []Feature
	index    map[string]int
}

// New builds a schema, rejecting empty or duplicate feature names.
func New(version string, features []Feature) (*Schema, error) {
	if version == "" {
		return nil, eris.New("schema: empty version")
	}
	s := &Schema{Version: version, Features: features, index: make(map[string]int, len(features))}
	for i, f := range features {
		if f.Name == "" || f.Group == "" {
			return nil, eris.Errorf("schema: %s: feature %d has empty name or group", version, i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, eris.Errorf("schema: %s: duplicate feature %q", version, f.Name)
		}
		s.index[f.Name] = i
	}
	return s, nil
}

// Dim returns the vector dimension.
func (s *Schema) Dim() int { return len(s.Features) }

// Names returns the feature names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Features))
	for i, f := range s.Features {
		out[i] = f.Name
	}
	return out
}

// Index returns the position of name in the schema.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// GroupOf returns the group of a feature, or "" if the feature is unknown.
func (s *Schema) GroupOf(name string) model.FeatureGroup {
	if i, ok := s.index[name]; ok {
		return s.Features[i].Group
	}
	return ""
}

// Groups returns the schema's groups in order of first appearance.
func (s *Schema) Groups() []model.FeatureGroup {
	var out []model.FeatureGroup
	seen := make(map[model.FeatureGroup]bool)
	for _, f := range s.Features {
		if !seen[f.Group] {
			seen[f.Group] = true
			out = append(out, f.Group)
		}
	}
	return out
}

// InGroup returns the names of the features in g, in schema order.
func (s *Schema) InGroup(g model.FeatureGroup) []string {
	var out []string
	for _, f := range s.Features {
		if f.Group == g {
			out = append(out, f.Name)
		}
	}
	return out
}

var v1Features = []Feature{
	{TotalArticles, model.GroupVolume},
	{UniqueDomains, model.GroupVolume},
	{WeightedPriorMean, model.GroupSourceQuality},
	{HighReliabilityRatio, model.GroupSourceQuality},
	{UnknownSourceRatio, model.GroupSourceQuality},
	{RecencyScore, model.GroupTemporal},
	{PublicationSpanHours, model.GroupTemporal},
	{MissingTimestampRatio, model.GroupTemporal},
	{DomainDiversity, model.GroupCorroboration},
	{MaxDomainConcentration, model.GroupCorroboration},
}

// v2 appends to v1 so v1 indices stay aligned.
var v2Extension = []Feature{
	{MedianPrior, model.GroupSourceQuality},
	{MinPrior, model.GroupSourceQuality},
	{MaxPrior, model.GroupSourceQuality},
	{MeanJaccard, model.GroupText},
	{MaxJaccard, model.GroupText},
	{TopKMeanJaccard, model.GroupText},
	{EntityOverlapMean, model.GroupText},
	{EntityOverlapMax, model.GroupText},
	{ContradictionSignalRatio, model.GroupText},
}
