package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/veracity-cli/internal/fetcher"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, "smoke.csv", "claim_id,claim,label,run_id\n"+
		"c2,The moon is made of cheese,false,\n"+
		"c1, Water boils at 100C ,TRUE,run-1\n"+
		"c3,Unclear,uncertain,\n")

	ds, err := Load(path, "", LabelMapGeneric)
	require.NoError(t, err)

	assert.Equal(t, "smoke", ds.Name)
	require.Len(t, ds.Examples, 3)
	assert.Equal(t, "c1", ds.Examples[0].ClaimID)
	assert.Equal(t, "Water boils at 100C", ds.Examples[0].Claim)
	assert.Equal(t, model.LabelCredible, ds.Examples[0].Label)
	assert.Equal(t, "run-1", ds.Examples[0].RunID)
	assert.Equal(t, model.LabelNotCredible, ds.Examples[1].Label)
	assert.Equal(t, model.LabelUncertain, ds.Examples[2].Label)
	assert.Len(t, ds.Hash, 64)

	assert.Len(t, ds.Binary(), 2)
	assert.Equal(t, map[model.Label]int{
		model.LabelCredible: 1, model.LabelNotCredible: 1, model.LabelUncertain: 1,
	}, ds.Counts())
}

func TestLoad_JSONLWithFeaturesAndEvidence(t *testing.T) {
	path := writeFile(t, "liar.jsonl",
		`{"claim_id":"a","claim":"x","label":"pants-fire","features":{"total_articles":3}}`+"\n"+
			`{"claim_id":"b","claim":"y","label":"mostly-true","evidence":[{"url":"https://a.com/1","domain":"a.com","title":"t","snippet":"s","retrieved_at":"2026-01-01T00:00:00Z"}]}`+"\n")

	ds, err := Load(path, "liar-dev", LabelMapLIAR)
	require.NoError(t, err)

	assert.Equal(t, "liar-dev", ds.Name)
	require.Len(t, ds.Examples, 2)
	assert.Equal(t, model.LabelNotCredible, ds.Examples[0].Label)
	assert.Equal(t, map[string]float64{"total_articles": 3}, ds.Examples[0].Features)
	assert.Equal(t, model.LabelCredible, ds.Examples[1].Label)
	require.Len(t, ds.Examples[1].Evidence, 1)
	assert.Equal(t, "a.com", ds.Examples[1].Evidence[0].Domain)
}

func TestLoad_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	require.NoError(t, fetcher.WriteXLSXSheet(f, "claims", []string{"claim_id", "claim", "label"}, [][]any{
		{"f1", "Earth orbits the Sun", "SUPPORTS"},
		{"f2", "Earth is flat", "REFUTES"},
		{"f3", "Aliens built it", "NOT ENOUGH INFO"},
	}))
	path := filepath.Join(t.TempDir(), "fever.xlsx")
	require.NoError(t, f.Save(path))

	ds, err := Load(path, "", LabelMapFEVER)
	require.NoError(t, err)
	require.Len(t, ds.Examples, 3)
	assert.Equal(t, model.LabelCredible, ds.Examples[0].Label)
	assert.Equal(t, model.LabelNotCredible, ds.Examples[1].Label)
	assert.Equal(t, model.LabelUncertain, ds.Examples[2].Label)
	assert.Len(t, ds.Binary(), 2)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, content, labelMap, want string
	}{
		{"empty id", "claim_id,claim,label\n,x,true\n", LabelMapGeneric, "empty claim_id"},
		{"duplicate", "claim_id,claim,label\na,x,true\na,y,false\n", LabelMapGeneric, "duplicate claim_id"},
		{"bad label", "claim_id,claim,label\na,x,maybe\n", LabelMapGeneric, "row 1"},
		{"bad map", "claim_id,claim,label\na,x,true\n", "snopes", "unknown label map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "d.csv", tt.content), "", tt.labelMap)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), "", LabelMapGeneric)
	assert.Error(t, err)
}

func TestMapLabel(t *testing.T) {
	tests := []struct {
		m, raw string
		want   model.Label
	}{
		{LabelMapGeneric, "1", model.LabelCredible},
		{LabelMapGeneric, " Not_Credible ", model.LabelNotCredible},
		{LabelMapGeneric, "0", model.LabelNotCredible},
		{LabelMapLIAR, "half-true", model.LabelCredible},
		{LabelMapLIAR, "barely-true", model.LabelNotCredible},
		{LabelMapFEVER, "supports", model.LabelCredible},
		{LabelMapFEVER, "Not Enough Info", model.LabelUncertain},
	}
	for _, tt := range tests {
		got, err := MapLabel(tt.m, tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := MapLabel(LabelMapLIAR, "uncertain")
	assert.Error(t, err)
	assert.Equal(t, []string{LabelMapFEVER, LabelMapGeneric, LabelMapLIAR}, LabelMaps())
}

func TestContentHash(t *testing.T) {
	a := []row{{ClaimID: "1", Claim: "x", Label: "true"}, {ClaimID: "2", Claim: "y", Label: "false"}}
	b := []row{a[1], a[0]}

	dsA, err := fromRows("first", LabelMapGeneric, a)
	require.NoError(t, err)
	dsB, err := fromRows("second", LabelMapGeneric, b)
	require.NoError(t, err)
	assert.Equal(t, dsA.Hash, dsB.Hash, "row order and name do not change the hash")

	c := []row{a[0], {ClaimID: "2", Claim: "y", Label: "true"}}
	dsC, err := fromRows("first", LabelMapGeneric, c)
	require.NoError(t, err)
	assert.NotEqual(t, dsA.Hash, dsC.Hash)

	dsD, err := fromRows("first", LabelMapLIAR, a)
	require.NoError(t, err)
	assert.NotEqual(t, dsA.Hash, dsD.Hash, "label map is part of the hash")
}

func TestSyntheticFeatures(t *testing.T) {
	ex := Example{ClaimID: "c1", Claim: "Water boils at 100C", RunID: "r1"}

	v1, err := SyntheticFeatures(ex, schema.V1)
	require.NoError(t, err)
	again, err := SyntheticFeatures(ex, schema.V1)
	require.NoError(t, err)
	if diff := cmp.Diff(v1, again); diff != "" {
		t.Errorf("synthetic features not deterministic:\n%s", diff)
	}
	assert.Len(t, v1.Values, schema.MustGet(schema.V1).Dim())
	assert.Equal(t, "r1", v1.RunID)

	v2, err := SyntheticFeatures(ex, schema.V2)
	require.NoError(t, err)
	assert.Len(t, v2.Values, schema.MustGet(schema.V2).Dim())
	assert.Equal(t, v1.Values[schema.TotalArticles], v2.Values[schema.TotalArticles])

	ta := v1.Values[schema.TotalArticles]
	assert.GreaterOrEqual(t, ta, 1.0)
	assert.LessOrEqual(t, ta, 20.0)

	other, err := SyntheticFeatures(Example{Claim: "Something else"}, schema.V1)
	require.NoError(t, err)
	assert.NotEqual(t, v1.Values, other.Values)

	_, err = SyntheticFeatures(ex, "v9")
	assert.True(t, model.IsSchemaMismatch(err))
}
