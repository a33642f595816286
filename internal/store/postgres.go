package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/veracity-cli/internal/db"
	"github.com/sells-group/veracity-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	claim_text TEXT NOT NULL,
	query_text TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'created',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS evidence_items (
	url          TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	snippet      TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	retrieved_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_evidence (
	run_id TEXT NOT NULL REFERENCES runs(id),
	url    TEXT NOT NULL REFERENCES evidence_items(url),
	PRIMARY KEY (run_id, url)
);

CREATE TABLE IF NOT EXISTS source_priors (
	domain            TEXT PRIMARY KEY,
	reliability_label SMALLINT NOT NULL CHECK (reliability_label BETWEEN -1 AND 1),
	external_score    DOUBLE PRECISION,
	prior_score       DOUBLE PRECISION NOT NULL CHECK (prior_score BETWEEN 0 AND 1),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS feature_vectors (
	run_id                TEXT PRIMARY KEY REFERENCES runs(id),
	schema_version        TEXT NOT NULL,
	insufficient_evidence BOOLEAN NOT NULL DEFAULT false,
	extracted_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS feature_values (
	run_id TEXT NOT NULL REFERENCES feature_vectors(run_id) ON DELETE CASCADE,
	name   TEXT NOT NULL,
	value  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS scores (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	model_id       TEXT NOT NULL,
	model_version  INTEGER NOT NULL,
	model_kind     TEXT NOT NULL,
	schema_version TEXT NOT NULL,
	raw_score      DOUBLE PRECISION NOT NULL,
	probability    DOUBLE PRECISION NOT NULL,
	label          TEXT NOT NULL,
	contributions  JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, model_id)
);

CREATE TABLE IF NOT EXISTS trained_models (
	model_id       TEXT NOT NULL,
	version        INTEGER NOT NULL,
	schema_version TEXT NOT NULL,
	dataset_hash   TEXT NOT NULL,
	record         JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (model_id, version)
);

CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	dataset_name TEXT NOT NULL,
	dataset_hash TEXT NOT NULL,
	code_version TEXT NOT NULL,
	models       JSONB NOT NULL,
	body         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS eval_records (
	report_id       TEXT NOT NULL REFERENCES reports(id),
	dataset         TEXT NOT NULL,
	claim_id        TEXT NOT NULL,
	model           TEXT NOT NULL,
	variant         TEXT NOT NULL,
	predicted_label TEXT NOT NULL,
	probability     DOUBLE PRECISION NOT NULL,
	true_label      TEXT NOT NULL,
	strata          JSONB NOT NULL DEFAULT '{}',
	PRIMARY KEY (report_id, dataset, claim_id, model, variant)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_evidence_domain ON evidence_items(domain);
CREATE INDEX IF NOT EXISTS idx_scores_model ON scores(model_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, claimText, queryText string) (*model.Run, error) {
	if claimText == "" {
		return nil, eris.New("postgres: create run: claim text is required")
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, claim_text, query_text, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, claimText, queryText, string(model.RunStatusCreated), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		ClaimText: claimText,
		QueryText: queryText,
		Status:    model.RunStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, claim_text, query_text, status, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.ClaimText, &r.QueryText, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, claim_text, query_text, status, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.ClaimText, &r.QueryText, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveEvidence upserts the items and their run links in one transaction.
func (s *PostgresStore) SaveEvidence(ctx context.Context, runID string, items []model.EvidenceItem) (int, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(items))
	evidenceRows := make([][]any, 0, len(items))
	linkRows := make([][]any, 0, len(items))
	for _, it := range items {
		if seen[it.URL] {
			continue
		}
		seen[it.URL] = true
		created := it.CreatedAt
		if created.IsZero() {
			created = now
		}
		evidenceRows = append(evidenceRows, []any{
			it.URL, it.Domain, it.Title, it.Snippet, it.PublishedAt, it.RetrievedAt.UTC(), created,
		})
		linkRows = append(linkRows, []any{runID, it.URL})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin evidence tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	inserted, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        "evidence_items",
		Columns:      []string{"url", "domain", "title", "snippet", "published_at", "retrieved_at", "created_at"},
		ConflictKeys: []string{"url"},
		DoNothing:    true,
	}, evidenceRows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert evidence for run %s", runID)
	}

	if _, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        "run_evidence",
		Columns:      []string{"run_id", "url"},
		ConflictKeys: []string{"run_id", "url"},
		DoNothing:    true,
	}, linkRows); err != nil {
		return 0, eris.Wrapf(err, "postgres: link evidence for run %s", runID)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit evidence")
	}

	zap.L().Info("postgres: evidence saved",
		zap.String("run_id", runID),
		zap.Int("items", len(evidenceRows)),
		zap.Int64("new", inserted),
	)
	return int(inserted), nil
}

func (s *PostgresStore) ListEvidence(ctx context.Context, runID string) ([]model.EvidenceItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.url, e.domain, e.title, e.snippet, e.published_at, e.retrieved_at, e.created_at
		 FROM evidence_items e JOIN run_evidence re ON re.url = e.url
		 WHERE re.run_id = $1 ORDER BY e.url`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list evidence %s", runID)
	}
	defer rows.Close()

	var items []model.EvidenceItem
	for rows.Next() {
		var it model.EvidenceItem
		if err := rows.Scan(&it.URL, &it.Domain, &it.Title, &it.Snippet, &it.PublishedAt, &it.RetrievedAt, &it.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evidence")
		}
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list evidence iterate")
}

// UpsertPriors refreshes source priors keyed by domain. A domain listed
// twice keeps its last row.
func (s *PostgresStore) UpsertPriors(ctx context.Context, priors []model.SourcePrior) (int, error) {
	index := make(map[string]int, len(priors))
	rows := make([][]any, 0, len(priors))
	for _, p := range priors {
		row := []any{p.Domain, int16(p.ReliabilityLabel), p.ExternalScore, p.PriorScore, p.UpdatedAt.UTC()}
		if i, ok := index[p.Domain]; ok {
			rows[i] = row
			continue
		}
		index[p.Domain] = len(rows)
		rows = append(rows, row)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "source_priors",
		Columns:      []string{"domain", "reliability_label", "external_score", "prior_score", "updated_at"},
		ConflictKeys: []string{"domain"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert priors")
	}
	zap.L().Info("postgres: priors upserted", zap.Int("rows", len(rows)), zap.Int64("affected", n))
	return int(n), nil
}

func (s *PostgresStore) ListPriors(ctx context.Context) ([]model.SourcePrior, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT domain, reliability_label, external_score, prior_score, updated_at FROM source_priors ORDER BY domain`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list priors")
	}
	defer rows.Close()

	var out []model.SourcePrior
	for rows.Next() {
		var p model.SourcePrior
		var label int16
		if err := rows.Scan(&p.Domain, &label, &p.ExternalScore, &p.PriorScore, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prior")
		}
		p.ReliabilityLabel = model.ReliabilityLabel(label)
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list priors iterate")
}

// SaveFeatures replaces the run's vector: header upsert, value delete, COPY.
func (s *PostgresStore) SaveFeatures(ctx context.Context, fv *model.FeatureVector) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin features tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO feature_vectors (run_id, schema_version, insufficient_evidence, extracted_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id) DO UPDATE SET
		   schema_version = EXCLUDED.schema_version,
		   insufficient_evidence = EXCLUDED.insufficient_evidence,
		   extracted_at = EXCLUDED.extracted_at`,
		fv.RunID, fv.SchemaVersion, fv.InsufficientEvidence, fv.ExtractedAt.UTC(),
	); err != nil {
		return eris.Wrapf(err, "postgres: upsert feature vector %s", fv.RunID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM feature_values WHERE run_id = $1`, fv.RunID); err != nil {
		return eris.Wrapf(err, "postgres: clear features %s", fv.RunID)
	}

	names := sortedKeys(fv.Values)
	rows := make([][]any, len(names))
	for i, name := range names {
		rows[i] = []any{fv.RunID, name, fv.Values[name]}
	}
	if _, err := db.CopyFrom(ctx, tx, "feature_values", []string{"run_id", "name", "value"}, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy features %s", fv.RunID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit features")
}

func (s *PostgresStore) GetFeatures(ctx context.Context, runID string) (*model.FeatureVector, error) {
	fv := &model.FeatureVector{RunID: runID, Values: map[string]float64{}}
	err := s.pool.QueryRow(ctx,
		`SELECT schema_version, insufficient_evidence, extracted_at FROM feature_vectors WHERE run_id = $1`,
		runID,
	).Scan(&fv.SchemaVersion, &fv.InsufficientEvidence, &fv.ExtractedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: features for run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get features %s", runID)
	}

	rows, err := s.pool.Query(ctx, `SELECT name, value FROM feature_values WHERE run_id = $1`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get feature values %s", runID)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var v float64
		if err := rows.Scan(&name, &v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature value")
		}
		fv.Values[name] = v
	}
	return fv, eris.Wrap(rows.Err(), "postgres: feature values iterate")
}

func (s *PostgresStore) SaveScore(ctx context.Context, res *model.ScoreResult) error {
	contributions, err := json.Marshal(res.Contributions)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal contributions")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO scores (run_id, model_id, model_version, model_kind, schema_version, raw_score, probability, label, contributions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (run_id, model_id) DO UPDATE SET
		   model_version = EXCLUDED.model_version,
		   model_kind = EXCLUDED.model_kind,
		   schema_version = EXCLUDED.schema_version,
		   raw_score = EXCLUDED.raw_score,
		   probability = EXCLUDED.probability,
		   label = EXCLUDED.label,
		   contributions = EXCLUDED.contributions,
		   created_at = EXCLUDED.created_at`,
		res.RunID, res.ModelID, res.ModelVersion, string(res.ModelKind), res.SchemaVersion,
		res.RawScore, res.Probability, string(res.Label), contributions, res.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save score %s/%s", res.RunID, res.ModelID)
}

func (s *PostgresStore) ListScores(ctx context.Context, runID string) ([]model.ScoreResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, model_id, model_version, model_kind, schema_version, raw_score, probability, label, contributions, created_at
		 FROM scores WHERE run_id = $1 ORDER BY model_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list scores %s", runID)
	}
	defer rows.Close()

	var out []model.ScoreResult
	for rows.Next() {
		var r model.ScoreResult
		var contributions []byte
		if err := rows.Scan(&r.RunID, &r.ModelID, &r.ModelVersion, &r.ModelKind, &r.SchemaVersion,
			&r.RawScore, &r.Probability, &r.Label, &contributions, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		if err := json.Unmarshal(contributions, &r.Contributions); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal contributions")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list scores iterate")
}

func (s *PostgresStore) SaveTrainedModel(ctx context.Context, m *model.TrainedModel) (*model.TrainedModel, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin model tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var latest int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM trained_models WHERE model_id = $1`, m.ModelID,
	).Scan(&latest); err != nil {
		return nil, eris.Wrapf(err, "postgres: latest version of %s", m.ModelID)
	}

	saved := *m
	saved.Version = latest + 1
	record, err := json.Marshal(&saved)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal model")
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO trained_models (model_id, version, schema_version, dataset_hash, record, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		saved.ModelID, saved.Version, saved.SchemaVersion, saved.DatasetHash, record, saved.CreatedAt.UTC(),
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert model %s", saved.Ref())
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit model")
	}
	return &saved, nil
}

func (s *PostgresStore) GetTrainedModel(ctx context.Context, modelID string, version int) (*model.TrainedModel, error) {
	var row pgx.Row
	if version == 0 {
		row = s.pool.QueryRow(ctx,
			`SELECT record FROM trained_models WHERE model_id = $1 ORDER BY version DESC LIMIT 1`, modelID)
	} else {
		row = s.pool.QueryRow(ctx,
			`SELECT record FROM trained_models WHERE model_id = $1 AND version = $2`, modelID, version)
	}

	var record []byte
	err := row.Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.ModelNotFoundError{ModelID: modelID, Version: version}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get model %s", model.ModelRef(modelID, version))
	}
	return decodeModel(record)
}

func (s *PostgresStore) ListTrainedModels(ctx context.Context) ([]model.TrainedModel, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM trained_models ORDER BY model_id, version`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list models")
	}
	defer rows.Close()

	var out []model.TrainedModel
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan model")
		}
		m, err := decodeModel(record)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list models iterate")
}

// SaveReport inserts the report row if absent, then COPYs its eval records.
func (s *PostgresStore) SaveReport(ctx context.Context, rep *model.ReportRecord, records []model.EvalRecord) (bool, error) {
	models, err := json.Marshal(rep.Models)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal report models")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "postgres: begin report tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`INSERT INTO reports (id, dataset_name, dataset_hash, code_version, models, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		rep.ID, rep.DatasetName, rep.DatasetHash, rep.CodeVersion, models, rep.Body, rep.CreatedAt.UTC(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert report %s", rep.ID)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		strata, err := json.Marshal(r.Strata)
		if err != nil {
			return false, eris.Wrap(err, "postgres: marshal strata")
		}
		rows[i] = []any{rep.ID, r.Dataset, r.ClaimID, r.Model, r.Variant, string(r.PredictedLabel), r.Probability, string(r.TrueLabel), strata}
	}
	if _, err := db.CopyFrom(ctx, tx, "eval_records",
		[]string{"report_id", "dataset", "claim_id", "model", "variant", "predicted_label", "probability", "true_label", "strata"},
		rows,
	); err != nil {
		return false, eris.Wrapf(err, "postgres: copy eval records for %s", rep.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrap(err, "postgres: commit report")
	}
	return true, nil
}

func (s *PostgresStore) GetReport(ctx context.Context, reportID string) (*model.ReportRecord, error) {
	var rep model.ReportRecord
	var models []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, dataset_name, dataset_hash, code_version, models, body, created_at FROM reports WHERE id = $1`,
		reportID,
	).Scan(&rep.ID, &rep.DatasetName, &rep.DatasetHash, &rep.CodeVersion, &models, &rep.Body, &rep.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: report %s", reportID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", reportID)
	}
	if err := json.Unmarshal(models, &rep.Models); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report models")
	}
	return &rep, nil
}
