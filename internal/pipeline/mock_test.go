package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/store"
)

// mockStore implements store.Store for testing.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, claimText, queryText string) (*model.Run, error) {
	args := m.Called(ctx, claimText, queryText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	return m.Called(ctx, runID, status).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) SaveEvidence(ctx context.Context, runID string, items []model.EvidenceItem) (int, error) {
	args := m.Called(ctx, runID, items)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) ListEvidence(ctx context.Context, runID string) ([]model.EvidenceItem, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EvidenceItem), args.Error(1)
}

func (m *mockStore) UpsertPriors(ctx context.Context, priors []model.SourcePrior) (int, error) {
	args := m.Called(ctx, priors)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) ListPriors(ctx context.Context) ([]model.SourcePrior, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SourcePrior), args.Error(1)
}

func (m *mockStore) SaveFeatures(ctx context.Context, fv *model.FeatureVector) error {
	return m.Called(ctx, fv).Error(0)
}

func (m *mockStore) GetFeatures(ctx context.Context, runID string) (*model.FeatureVector, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FeatureVector), args.Error(1)
}

func (m *mockStore) SaveScore(ctx context.Context, res *model.ScoreResult) error {
	return m.Called(ctx, res).Error(0)
}

func (m *mockStore) ListScores(ctx context.Context, runID string) ([]model.ScoreResult, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ScoreResult), args.Error(1)
}

func (m *mockStore) SaveTrainedModel(ctx context.Context, tm *model.TrainedModel) (*model.TrainedModel, error) {
	args := m.Called(ctx, tm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrainedModel), args.Error(1)
}

func (m *mockStore) GetTrainedModel(ctx context.Context, modelID string, version int) (*model.TrainedModel, error) {
	args := m.Called(ctx, modelID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrainedModel), args.Error(1)
}

func (m *mockStore) ListTrainedModels(ctx context.Context) ([]model.TrainedModel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TrainedModel), args.Error(1)
}

func (m *mockStore) SaveReport(ctx context.Context, rep *model.ReportRecord, records []model.EvalRecord) (bool, error) {
	args := m.Called(ctx, rep, records)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) GetReport(ctx context.Context, reportID string) (*model.ReportRecord, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReportRecord), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
