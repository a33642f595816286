package model

import "time"

// EvidenceItem is one retrieved, normalized news article. URL is unique
// across the whole system.
type EvidenceItem struct {
	URL         string     `json:"url"`
	Domain      string     `json:"domain"`
	Title       string     `json:"title"`
	Snippet     string     `json:"snippet"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	RetrievedAt time.Time  `json:"retrieved_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Text returns the title and snippet joined for lexical comparison.
func (e EvidenceItem) Text() string {
	switch {
	case e.Title == "":
		return e.Snippet
	case e.Snippet == "":
		return e.Title
	}
	return e.Title + " " + e.Snippet
}

// ReliabilityLabel is the curated reliability class of a source domain.
type ReliabilityLabel int

const (
	ReliabilityLow     ReliabilityLabel = -1
	ReliabilityUnknown ReliabilityLabel = 0
	ReliabilityHigh    ReliabilityLabel = 1
)

// Valid reports whether the label is one of -1, 0, 1.
func (l ReliabilityLabel) Valid() bool {
	return l >= ReliabilityLow && l <= ReliabilityHigh
}

// SourcePrior is a domain-level reliability score independent of any run.
type SourcePrior struct {
	Domain           string           `json:"domain"`
	ReliabilityLabel ReliabilityLabel `json:"reliability_label"`
	ExternalScore    *float64         `json:"external_score,omitempty"`
	PriorScore       float64          `json:"prior_score"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
