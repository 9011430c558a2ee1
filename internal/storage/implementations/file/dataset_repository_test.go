package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/internal/testutil"
	apperrors "github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/models"
)

func newRepo(t *testing.T) *DatasetRepository {
	t.Helper()
	repo, err := NewDatasetRepository(t.TempDir(), testutil.Logger())
	require.NoError(t, err)
	return repo
}

func sampleReport(rows, cols int) *models.QualityReport {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.QualityReport{
		Before:     &models.Profile{Rows: rows, Columns: cols},
		After:      &models.Profile{Rows: rows, Columns: cols},
		CreatedAt:  &created,
		SourceFile: "sample.csv",
	}
}

func TestDatasetRepositorySaveAndLoad(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	table := models.NewTable(
		testutil.NumericColumn("id", 1, 2),
		testutil.TextColumn("city", "ny", ""),
	)

	loc, err := repo.Save(ctx, []byte("id,city\n1,ny\n2,\n"), table, sampleReport(2, 2))
	require.NoError(t, err)
	require.NotEmpty(t, loc.DatasetID)

	raw, err := os.ReadFile(loc.OriginalPath)
	require.NoError(t, err)
	assert.Equal(t, "id,city\n1,ny\n2,\n", string(raw))

	cleaned, err := repo.LoadCleaned(ctx, loc.DatasetID)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "city"}, cleaned.ColumnNames())
	assert.Equal(t, []float64{1, 2}, cleaned.Column("id").Floats())
	assert.True(t, cleaned.Column("city").Values[1].IsMissing())

	doc, err := repo.GetReport(ctx, loc.DatasetID)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(doc, &decoded))
	assert.Equal(t, "sample.csv", decoded["source_file"])
	assert.True(t, repo.Exists(loc.DatasetID))
}

func TestDatasetRepositoryUpdateReport(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	table := models.NewTable(testutil.NumericColumn("a", 1))

	loc, err := repo.Save(ctx, []byte("a\n1\n"), table, sampleReport(1, 1))
	require.NoError(t, err)

	report := sampleReport(1, 1)
	report.QuerySuggestions = []models.QuerySuggestion{{Name: "Row count", SQL: "SELECT COUNT(*) FROM dataset"}}
	require.NoError(t, repo.UpdateReport(ctx, loc.DatasetID, report))

	doc, err := repo.GetReport(ctx, loc.DatasetID)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Row count")

	err = repo.UpdateReport(ctx, "missing", report)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDatasetRepositoryNotFound(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.GetReport(ctx, "nope")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = repo.LoadCleaned(ctx, "nope")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = repo.GetReport(ctx, "../etc")
	assert.True(t, apperrors.IsNotFound(err))
	assert.False(t, repo.Exists(".."))
}

func TestDatasetRepositoryList(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	for _, id := range []string{"aaa", "ccc", "bbb"} {
		dir := filepath.Join(repo.Root(), id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		data, err := json.Marshal(sampleReport(3, 2))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "report.json"), data, 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(repo.Root(), "empty"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(repo.Root(), "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Root(), "broken", "report.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Root(), "batch_state.json"), []byte("{}"), 0o644))

	summaries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "ccc", summaries[0].DatasetID)
	assert.Equal(t, "bbb", summaries[1].DatasetID)
	assert.Equal(t, "aaa", summaries[2].DatasetID)
	require.NotNil(t, summaries[0].Rows)
	assert.Equal(t, 3, *summaries[0].Rows)
	assert.Equal(t, 2, *summaries[0].Columns)
	require.NotNil(t, summaries[0].CreatedAt)
}
