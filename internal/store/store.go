// Package store persists runs, evidence, priors, feature vectors, scores,
// trained models and benchmark reports.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/veracity-cli/internal/model"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the credibility pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, claimText, queryText string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Evidence is keyed by url system-wide. SaveEvidence links items to a
	// run and returns how many urls were new to the store.
	SaveEvidence(ctx context.Context, runID string, items []model.EvidenceItem) (int, error)
	ListEvidence(ctx context.Context, runID string) ([]model.EvidenceItem, error)

	// Source priors
	UpsertPriors(ctx context.Context, priors []model.SourcePrior) (int, error)
	ListPriors(ctx context.Context) ([]model.SourcePrior, error)

	// Features replace any earlier vector of the run.
	SaveFeatures(ctx context.Context, fv *model.FeatureVector) error
	GetFeatures(ctx context.Context, runID string) (*model.FeatureVector, error)

	// Scores hold at most one row per (run, model id).
	SaveScore(ctx context.Context, res *model.ScoreResult) error
	ListScores(ctx context.Context, runID string) ([]model.ScoreResult, error)

	// Trained models are immutable. SaveTrainedModel assigns the next
	// version for the model id; version 0 in GetTrainedModel means latest.
	SaveTrainedModel(ctx context.Context, m *model.TrainedModel) (*model.TrainedModel, error)
	GetTrainedModel(ctx context.Context, modelID string, version int) (*model.TrainedModel, error)
	ListTrainedModels(ctx context.Context) ([]model.TrainedModel, error)

	// Reports are write-once. SaveReport reports false when the id exists.
	SaveReport(ctx context.Context, rep *model.ReportRecord, records []model.EvalRecord) (bool, error)
	GetReport(ctx context.Context, reportID string) (*model.ReportRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
