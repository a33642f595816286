package model

import "time"

// RunStatus represents the current state of a credibility run.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "created"
	RunStatusExtracted RunStatus = "extracted"
	RunStatusScored    RunStatus = "scored"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one end-to-end credibility analysis for a single claim.
type Run struct {
	ID        string    `json:"id"`
	ClaimText string    `json:"claim_text"`
	QueryText string    `json:"query_text,omitempty"`
	Status    RunStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
