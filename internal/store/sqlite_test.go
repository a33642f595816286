package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/veracity-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_Pragmas(t *testing.T) {
	st := newTestSQLiteStore(t)

	var mode string
	require.NoError(t, st.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, st.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	run, err := st.CreateRun(ctx, "claim", "")
	require.NoError(t, err)
	require.NoError(t, st.SaveFeatures(ctx, &model.FeatureVector{
		RunID:                run.ID,
		SchemaVersion:        "v2",
		Values:               map[string]float64{"recency_score": 0.1 + 0.2},
		ExtractedAt:          fixedNow,
		InsufficientEvidence: true,
	}))
	require.NoError(t, st.Close())

	st, err = NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	fv, err := st.GetFeatures(ctx, run.ID)
	require.NoError(t, err)
	// Floats round-trip bit for bit.
	assert.Equal(t, 0.1+0.2, fv.Values["recency_score"])
	assert.True(t, fv.InsufficientEvidence)
}

func TestSQLite_ScoreRequiresRun(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SaveScore(context.Background(), &model.ScoreResult{
		RunID:     "missing",
		ModelID:   "baseline_v1",
		ModelKind: model.ModelKindBaseline,
		Label:     model.LabelUncertain,
		CreatedAt: fixedNow,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save score missing/baseline_v1")
}

func TestSQLite_ListRunsOffset(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, claim := range []string{"a", "b", "c"} {
		_, err := st.CreateRun(ctx, claim, "")
		require.NoError(t, err)
	}

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
