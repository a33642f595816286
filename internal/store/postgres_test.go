package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/veracity-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runColumns = []string{"id", "claim_text", "query_text", "status", "created_at", "updated_at"}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, claim_text, query_text, status, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("run-1", "claim", "", "scored", fixedNow, fixedNow))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusScored, run.Status)
	assert.Equal(t, "claim", run.ClaimText)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "claim", "query", "created", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "claim", "query")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("scored", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusScored)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_StatusFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE true AND status = \$1 ORDER BY created_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("created", 5, 10).
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("r1", "one", "", "created", fixedNow, fixedNow).
			AddRow("r2", "two", "", "created", fixedNow, fixedNow))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusCreated, Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveEvidence(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runColumns).AddRow("run-1", "claim", "", "created", fixedNow, fixedNow))

	mock.ExpectBegin()
	// evidence_items upsert runs in a savepoint of the outer transaction.
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_evidence_items"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_evidence_items"},
		[]string{"url", "domain", "title", "snippet", "published_at", "retrieved_at", "created_at"}).
		WillReturnResult(3)
	mock.ExpectExec(`INSERT INTO "evidence_items" .* ON CONFLICT \("url"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_run_evidence"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_run_evidence"}, []string{"run_id", "url"}).WillReturnResult(3)
	mock.ExpectExec(`INSERT INTO "run_evidence" .* ON CONFLICT \("run_id", "url"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectCommit()
	mock.ExpectCommit()

	items := append(sampleEvidence(), sampleEvidence()[0])
	n, err := s.SaveEvidence(context.Background(), "run-1", items)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveEvidence_MissingRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := s.SaveEvidence(context.Background(), "missing", sampleEvidence())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPriors_LastRowWins(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_source_priors"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_source_priors"},
		[]string{"domain", "reliability_label", "external_score", "prior_score", "updated_at"}).
		WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \("domain"\) DO UPDATE SET "reliability_label" = EXCLUDED\."reliability_label"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.UpsertPriors(context.Background(), []model.SourcePrior{
		{Domain: "a.com", ReliabilityLabel: model.ReliabilityLow, PriorScore: 0.15, UpdatedAt: fixedNow},
		{Domain: "b.com", ReliabilityLabel: model.ReliabilityUnknown, PriorScore: 0.5, UpdatedAt: fixedNow},
		{Domain: "a.com", ReliabilityLabel: model.ReliabilityHigh, PriorScore: 0.85, UpdatedAt: fixedNow},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPriors(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	score := 80.0
	mock.ExpectQuery(`SELECT domain, reliability_label, external_score, prior_score, updated_at FROM source_priors ORDER BY domain`).
		WillReturnRows(pgxmock.NewRows([]string{"domain", "reliability_label", "external_score", "prior_score", "updated_at"}).
			AddRow("a.com", int16(1), &score, 0.825, fixedNow).
			AddRow("b.com", int16(-1), nil, 0.15, fixedNow))

	priors, err := s.ListPriors(context.Background())
	require.NoError(t, err)
	require.Len(t, priors, 2)
	assert.Equal(t, model.ReliabilityHigh, priors[0].ReliabilityLabel)
	require.NotNil(t, priors[0].ExternalScore)
	assert.InDelta(t, 80.0, *priors[0].ExternalScore, 1e-12)
	assert.Equal(t, model.ReliabilityLow, priors[1].ReliabilityLabel)
	assert.Nil(t, priors[1].ExternalScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFeatures(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO feature_vectors .* ON CONFLICT \(run_id\) DO UPDATE`).
		WithArgs("run-1", "v1", false, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM feature_values WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"feature_values"}, []string{"run_id", "name", "value"}).WillReturnResult(2)
	mock.ExpectCommit()

	err := s.SaveFeatures(context.Background(), &model.FeatureVector{
		RunID:         "run-1",
		SchemaVersion: "v1",
		Values:        map[string]float64{"total_articles": 3, "unique_domains": 2},
		ExtractedAt:   fixedNow,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFeatures_CopyFailsRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO feature_vectors`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM feature_values`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"feature_values"}, []string{"run_id", "name", "value"}).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.SaveFeatures(context.Background(), &model.FeatureVector{
		RunID:         "run-1",
		SchemaVersion: "v1",
		Values:        map[string]float64{"total_articles": 3},
		ExtractedAt:   fixedNow,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy features run-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFeatures(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT schema_version, insufficient_evidence, extracted_at FROM feature_vectors`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"schema_version", "insufficient_evidence", "extracted_at"}).
			AddRow("v1", false, fixedNow))
	mock.ExpectQuery(`SELECT name, value FROM feature_values`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"name", "value"}).
			AddRow("total_articles", 3.0).
			AddRow("unique_domains", 2.0))

	fv, err := s.GetFeatures(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"total_articles": 3, "unique_domains": 2}, fv.Values)
	assert.Equal(t, "v1", fv.SchemaVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScore_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO scores .* ON CONFLICT \(run_id, model_id\) DO UPDATE`).
		WithArgs("run-1", "baseline_v1", 0, "baseline", "v1", 1.4, 0.77, "credible", pgxmock.AnyArg(), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveScore(context.Background(), &model.ScoreResult{
		RunID:         "run-1",
		ModelID:       "baseline_v1",
		ModelKind:     model.ModelKindBaseline,
		SchemaVersion: "v1",
		RawScore:      1.4,
		Probability:   0.77,
		Label:         model.LabelCredible,
		CreatedAt:     fixedNow,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveTrainedModel_NextVersion(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) FROM trained_models WHERE model_id = \$1`).
		WithArgs("lr").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO trained_models`).
		WithArgs("lr", 3, "v2", "hash", pgxmock.AnyArg(), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	saved, err := s.SaveTrainedModel(context.Background(), &model.TrainedModel{
		ModelID:       "lr",
		SchemaVersion: "v2",
		DatasetHash:   "hash",
		CreatedAt:     fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, saved.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTrainedModel(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	record, err := json.Marshal(&model.TrainedModel{ModelID: "lr", Version: 4, SchemaVersion: "v1", Weights: []float64{0.5}})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM trained_models WHERE model_id = \$1 ORDER BY version DESC LIMIT 1`).
		WithArgs("lr").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(record))

	m, err := s.GetTrainedModel(context.Background(), "lr", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Version)
	assert.Equal(t, []float64{0.5}, m.Weights)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTrainedModel_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM trained_models WHERE model_id = \$1 AND version = \$2`).
		WithArgs("lr", 7).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetTrainedModel(context.Background(), "lr", 7)
	require.Error(t, err)
	assert.True(t, model.IsModelNotFound(err))
	assert.Equal(t, "model not found: lr@7", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reports .* ON CONFLICT \(id\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"eval_records"},
		[]string{"report_id", "dataset", "claim_id", "model", "variant", "predicted_label", "probability", "true_label", "strata"}).
		WillReturnResult(1)
	mock.ExpectCommit()

	created, err := s.SaveReport(context.Background(),
		&model.ReportRecord{ID: "r1", Models: []string{"baseline_v1"}, Body: []byte(`{}`), CreatedAt: fixedNow},
		[]model.EvalRecord{{Dataset: "d", ClaimID: "c1", Model: "baseline_v1", Variant: "full", PredictedLabel: model.LabelCredible, TrueLabel: model.LabelCredible, Probability: 0.9}},
	)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReport_Exists(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reports`).WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectRollback()

	created, err := s.SaveReport(context.Background(),
		&model.ReportRecord{ID: "r1", Body: []byte(`{}`), CreatedAt: fixedNow},
		[]model.EvalRecord{{ClaimID: "c1"}},
	)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectPing().WillReturnError(errors.New("down"))

	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: ping")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	closed := false
	s := &PostgresStore{closeFn: func() { closed = true }}
	require.NoError(t, s.Close())
	assert.True(t, closed)
}
