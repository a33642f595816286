package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/veracity-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps pragmas and transactions on the same handle.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	claim_text TEXT NOT NULL,
	query_text TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'created',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS evidence_items (
	url          TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	snippet      TEXT NOT NULL DEFAULT '',
	published_at DATETIME,
	retrieved_at DATETIME NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS run_evidence (
	run_id TEXT NOT NULL REFERENCES runs(id),
	url    TEXT NOT NULL REFERENCES evidence_items(url),
	PRIMARY KEY (run_id, url)
);

CREATE TABLE IF NOT EXISTS source_priors (
	domain            TEXT PRIMARY KEY,
	reliability_label INTEGER NOT NULL,
	external_score    REAL,
	prior_score       REAL NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS feature_vectors (
	run_id                 TEXT PRIMARY KEY REFERENCES runs(id),
	schema_version         TEXT NOT NULL,
	insufficient_evidence  INTEGER NOT NULL DEFAULT 0,
	extracted_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS feature_values (
	run_id TEXT NOT NULL REFERENCES feature_vectors(run_id) ON DELETE CASCADE,
	name   TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS scores (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	model_id       TEXT NOT NULL,
	model_version  INTEGER NOT NULL,
	model_kind     TEXT NOT NULL,
	schema_version TEXT NOT NULL,
	raw_score      REAL NOT NULL,
	probability    REAL NOT NULL,
	label          TEXT NOT NULL,
	contributions  TEXT NOT NULL,
	created_at     DATETIME NOT NULL,
	PRIMARY KEY (run_id, model_id)
);

CREATE TABLE IF NOT EXISTS trained_models (
	model_id       TEXT NOT NULL,
	version        INTEGER NOT NULL,
	schema_version TEXT NOT NULL,
	dataset_hash   TEXT NOT NULL,
	record         TEXT NOT NULL,
	created_at     DATETIME NOT NULL,
	PRIMARY KEY (model_id, version)
);

CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	dataset_name TEXT NOT NULL,
	dataset_hash TEXT NOT NULL,
	code_version TEXT NOT NULL,
	models       TEXT NOT NULL,
	body         TEXT NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS eval_records (
	report_id       TEXT NOT NULL REFERENCES reports(id),
	dataset         TEXT NOT NULL,
	claim_id        TEXT NOT NULL,
	model           TEXT NOT NULL,
	variant         TEXT NOT NULL,
	predicted_label TEXT NOT NULL,
	probability     REAL NOT NULL,
	true_label      TEXT NOT NULL,
	strata          TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (report_id, dataset, claim_id, model, variant)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_evidence_domain ON evidence_items(domain);
CREATE INDEX IF NOT EXISTS idx_scores_model ON scores(model_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, claimText, queryText string) (*model.Run, error) {
	if claimText == "" {
		return nil, eris.New("sqlite: create run: claim text is required")
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, claim_text, query_text, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, claimText, queryText, string(model.RunStatusCreated), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, claim_text, query_text, status, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, claim_text, query_text, status, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveEvidence(ctx context.Context, runID string, items []model.EvidenceItem) (int, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin evidence tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	inserted := 0
	for _, it := range items {
		created := it.CreatedAt
		if created.IsZero() {
			created = now
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO evidence_items (url, domain, title, snippet, published_at, retrieved_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.URL, it.Domain, it.Title, it.Snippet, nullTime(it.PublishedAt), it.RetrievedAt.UTC(), created,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert evidence %s", it.URL)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO run_evidence (run_id, url) VALUES (?, ?)`, runID, it.URL,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: link evidence %s", it.URL)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit evidence")
	}
	return inserted, nil
}

func (s *SQLiteStore) ListEvidence(ctx context.Context, runID string) ([]model.EvidenceItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.url, e.domain, e.title, e.snippet, e.published_at, e.retrieved_at, e.created_at
		 FROM evidence_items e JOIN run_evidence re ON re.url = e.url
		 WHERE re.run_id = ? ORDER BY e.url`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list evidence %s", runID)
	}
	defer rows.Close()

	var items []model.EvidenceItem
	for rows.Next() {
		var it model.EvidenceItem
		var published sql.NullTime
		if err := rows.Scan(&it.URL, &it.Domain, &it.Title, &it.Snippet, &published, &it.RetrievedAt, &it.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evidence")
		}
		if published.Valid {
			t := published.Time.UTC()
			it.PublishedAt = &t
		}
		it.RetrievedAt = it.RetrievedAt.UTC()
		it.CreatedAt = it.CreatedAt.UTC()
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list evidence iterate")
}

func (s *SQLiteStore) UpsertPriors(ctx context.Context, priors []model.SourcePrior) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin priors tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range priors {
		var ext sql.NullFloat64
		if p.ExternalScore != nil {
			ext = sql.NullFloat64{Float64: *p.ExternalScore, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO source_priors (domain, reliability_label, external_score, prior_score, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(domain) DO UPDATE SET
			   reliability_label = excluded.reliability_label,
			   external_score = excluded.external_score,
			   prior_score = excluded.prior_score,
			   updated_at = excluded.updated_at`,
			p.Domain, int(p.ReliabilityLabel), ext, p.PriorScore, p.UpdatedAt.UTC(),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert prior %s", p.Domain)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit priors")
	}
	return len(priors), nil
}

func (s *SQLiteStore) ListPriors(ctx context.Context) ([]model.SourcePrior, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, reliability_label, external_score, prior_score, updated_at FROM source_priors ORDER BY domain`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list priors")
	}
	defer rows.Close()

	var out []model.SourcePrior
	for rows.Next() {
		var p model.SourcePrior
		var ext sql.NullFloat64
		if err := rows.Scan(&p.Domain, &p.ReliabilityLabel, &ext, &p.PriorScore, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prior")
		}
		if ext.Valid {
			v := ext.Float64
			p.ExternalScore = &v
		}
		p.UpdatedAt = p.UpdatedAt.UTC()
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list priors iterate")
}

func (s *SQLiteStore) SaveFeatures(ctx context.Context, fv *model.FeatureVector) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin features tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_values WHERE run_id = ?`, fv.RunID); err != nil {
		return eris.Wrapf(err, "sqlite: clear features %s", fv.RunID)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO feature_vectors (run_id, schema_version, insufficient_evidence, extracted_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
		   schema_version = excluded.schema_version,
		   insufficient_evidence = excluded.insufficient_evidence,
		   extracted_at = excluded.extracted_at`,
		fv.RunID, fv.SchemaVersion, fv.InsufficientEvidence, fv.ExtractedAt.UTC(),
	); err != nil {
		return eris.Wrapf(err, "sqlite: upsert feature vector %s", fv.RunID)
	}
	for _, name := range sortedKeys(fv.Values) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_values (run_id, name, value) VALUES (?, ?, ?)`,
			fv.RunID, name, fv.Values[name],
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert feature %s for %s", name, fv.RunID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit features")
}

func (s *SQLiteStore) GetFeatures(ctx context.Context, runID string) (*model.FeatureVector, error) {
	fv := &model.FeatureVector{RunID: runID, Values: map[string]float64{}}
	err := s.db.QueryRowContext(ctx,
		`SELECT schema_version, insufficient_evidence, extracted_at FROM feature_vectors WHERE run_id = ?`,
		runID,
	).Scan(&fv.SchemaVersion, &fv.InsufficientEvidence, &fv.ExtractedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: features for run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get features %s", runID)
	}
	fv.ExtractedAt = fv.ExtractedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM feature_values WHERE run_id = ?`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get feature values %s", runID)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var v float64
		if err := rows.Scan(&name, &v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature value")
		}
		fv.Values[name] = v
	}
	return fv, eris.Wrap(rows.Err(), "sqlite: feature values iterate")
}

func (s *SQLiteStore) SaveScore(ctx context.Context, res *model.ScoreResult) error {
	contributions, err := json.Marshal(res.Contributions)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal contributions")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scores (run_id, model_id, model_version, model_kind, schema_version, raw_score, probability, label, contributions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, model_id) DO UPDATE SET
		   model_version = excluded.model_version,
		   model_kind = excluded.model_kind,
		   schema_version = excluded.schema_version,
		   raw_score = excluded.raw_score,
		   probability = excluded.probability,
		   label = excluded.label,
		   contributions = excluded.contributions,
		   created_at = excluded.created_at`,
		res.RunID, res.ModelID, res.ModelVersion, string(res.ModelKind), res.SchemaVersion,
		res.RawScore, res.Probability, string(res.Label), string(contributions), res.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save score %s/%s", res.RunID, res.ModelID)
}

func (s *SQLiteStore) ListScores(ctx context.Context, runID string) ([]model.ScoreResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, model_id, model_version, model_kind, schema_version, raw_score, probability, label, contributions, created_at
		 FROM scores WHERE run_id = ? ORDER BY model_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list scores %s", runID)
	}
	defer rows.Close()

	var out []model.ScoreResult
	for rows.Next() {
		var r model.ScoreResult
		var contributions string
		if err := rows.Scan(&r.RunID, &r.ModelID, &r.ModelVersion, &r.ModelKind, &r.SchemaVersion,
			&r.RawScore, &r.Probability, &r.Label, &contributions, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		if err := json.Unmarshal([]byte(contributions), &r.Contributions); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal contributions")
		}
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list scores iterate")
}

func (s *SQLiteStore) SaveTrainedModel(ctx context.Context, m *model.TrainedModel) (*model.TrainedModel, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin model tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var latest int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM trained_models WHERE model_id = ?`, m.ModelID,
	).Scan(&latest); err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest version of %s", m.ModelID)
	}

	saved := *m
	saved.Version = latest + 1
	record, err := json.Marshal(&saved)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal model")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trained_models (model_id, version, schema_version, dataset_hash, record, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		saved.ModelID, saved.Version, saved.SchemaVersion, saved.DatasetHash, string(record), saved.CreatedAt.UTC(),
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert model %s", saved.Ref())
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit model")
	}
	return &saved, nil
}

func (s *SQLiteStore) GetTrainedModel(ctx context.Context, modelID string, version int) (*model.TrainedModel, error) {
	var row *sql.Row
	if version == 0 {
		row = s.db.QueryRowContext(ctx,
			`SELECT record FROM trained_models WHERE model_id = ? ORDER BY version DESC LIMIT 1`, modelID)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT record FROM trained_models WHERE model_id = ? AND version = ?`, modelID, version)
	}

	var record string
	err := row.Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.ModelNotFoundError{ModelID: modelID, Version: version}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get model %s", model.ModelRef(modelID, version))
	}
	return decodeModel([]byte(record))
}

func (s *SQLiteStore) ListTrainedModels(ctx context.Context) ([]model.TrainedModel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM trained_models ORDER BY model_id, version`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list models")
	}
	defer rows.Close()

	var out []model.TrainedModel
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan model")
		}
		m, err := decodeModel([]byte(record))
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list models iterate")
}

func (s *SQLiteStore) SaveReport(ctx context.Context, rep *model.ReportRecord, records []model.EvalRecord) (bool, error) {
	models, err := json.Marshal(rep.Models)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal report models")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin report tx")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO reports (id, dataset_name, dataset_hash, code_version, models, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.DatasetName, rep.DatasetHash, rep.CodeVersion, string(models), string(rep.Body), rep.CreatedAt.UTC(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert report %s", rep.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	for _, r := range records {
		strata, err := json.Marshal(r.Strata)
		if err != nil {
			return false, eris.Wrap(err, "sqlite: marshal strata")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO eval_records (report_id, dataset, claim_id, model, variant, predicted_label, probability, true_label, strata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.ID, r.Dataset, r.ClaimID, r.Model, r.Variant, string(r.PredictedLabel), r.Probability, string(r.TrueLabel), string(strata),
		); err != nil {
			return false, eris.Wrapf(err, "sqlite: insert eval record %s", r.ClaimID)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, eris.Wrap(err, "sqlite: commit report")
	}
	return true, nil
}

func (s *SQLiteStore) GetReport(ctx context.Context, reportID string) (*model.ReportRecord, error) {
	var rep model.ReportRecord
	var models, body string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dataset_name, dataset_hash, code_version, models, body, created_at FROM reports WHERE id = ?`,
		reportID,
	).Scan(&rep.ID, &rep.DatasetName, &rep.DatasetHash, &rep.CodeVersion, &models, &body, &rep.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: report %s", reportID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", reportID)
	}
	if err := json.Unmarshal([]byte(models), &rep.Models); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal report models")
	}
	rep.Body = []byte(body)
	rep.CreatedAt = rep.CreatedAt.UTC()
	return &rep, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	err := row.Scan(&r.ID, &r.ClaimText, &r.QueryText, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func decodeModel(record []byte) (*model.TrainedModel, error) {
	var m model.TrainedModel
	if err := json.Unmarshal(record, &m); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal model record")
	}
	return &m, nil
}

func sortedKeys(values map[string]float64) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
