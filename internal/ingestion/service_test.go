package ingestion

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/internal/quality"
	"github.com/inferloop/autoeda/internal/storage/implementations/file"
	"github.com/inferloop/autoeda/internal/testutil"
	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/models"
)

func newService(t *testing.T) (*Service, *file.DatasetRepository) {
	t.Helper()
	logger := testutil.Logger()
	pipeline, err := quality.NewPipeline(quality.DefaultOptions(), logger)
	require.NoError(t, err)
	repo, err := file.NewDatasetRepository(t.TempDir(), logger)
	require.NoError(t, err)
	svc := NewService(pipeline, repo, logger)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return svc, repo
}

const sampleCSV = "id,city,amount\n1,New York,100\n2,new york,110\n3,LA,\n3,LA,\n"

func TestIngestUpload(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, []byte(sampleCSV), "sales.csv", models.IngestOptions{AutoFix: true})
	require.NoError(t, err)

	assert.NotEmpty(t, res.DatasetID)
	assert.Equal(t, 3, res.Report.After.Rows)
	assert.Equal(t, "sales.csv", res.Report.SourceFile)
	assert.Equal(t, models.IngestModeUpload, res.Report.Ingestion.Mode)
	assert.Nil(t, res.Report.Ingestion.JobID)
	assert.NotNil(t, res.Benchmark)
	assert.Len(t, res.QuerySuggestions, 5)

	doc, err := repo.GetReport(ctx, res.DatasetID)
	require.NoError(t, err)
	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(doc, &stored))
	assert.Contains(t, stored, "benchmark")
	assert.Contains(t, stored, "query_suggestions")
	assert.Equal(t, "2024-06-01T08:00:00Z", stored["created_at"])
	ingestion := stored["ingestion"].(map[string]interface{})
	assert.Equal(t, true, ingestion["auto_fix"])
	assert.Nil(t, ingestion["source_path"])

	cleaned, err := repo.LoadCleaned(ctx, res.DatasetID)
	require.NoError(t, err)
	assert.Equal(t, 3, cleaned.RowCount())
}

func TestIngestBatchMetadata(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.Ingest(context.Background(), []byte(sampleCSV), "sales.csv", models.IngestOptions{
		AutoFix:    false,
		Mode:       models.IngestModeBatch,
		SourcePath: "/data/in/sales.csv",
		JobID:      "job-1",
	})
	require.NoError(t, err)

	info := res.Report.Ingestion
	assert.Equal(t, models.IngestModeBatch, info.Mode)
	assert.False(t, info.AutoFix)
	require.NotNil(t, info.SourcePath)
	assert.Equal(t, "/data/in/sales.csv", *info.SourcePath)
	require.NotNil(t, info.JobID)
	assert.Equal(t, "job-1", *info.JobID)
	assert.Empty(t, res.Report.FixesApplied)
	assert.Equal(t, 4, res.Report.After.Rows)
}

func TestIngestRejectsBadInput(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	cases := map[string]struct {
		raw, name, msg string
	}{
		"no name":  {raw: sampleCSV, name: "", msg: "A file name is required."},
		"empty":    {raw: "", name: "a.csv", msg: "Uploaded CSV is empty."},
		"no rows":  {raw: "a,b\n", name: "a.csv", msg: "CSV has no rows."},
		"too wide": {raw: "a\n1,2\n", name: "a.csv", msg: "CSV parsing failed"},
	}
	for name, tc := range cases {
		_, err := svc.Ingest(ctx, []byte(tc.raw), tc.name, models.IngestOptions{AutoFix: true})
		require.Error(t, err, name)
		assert.True(t, errors.IsInvalidInput(err), name)
		assert.Contains(t, err.Error(), tc.msg, name)
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "nothing stored on failure")
}

func TestIngestHeadersDifferingOnlyInCase(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, []byte("id,Name,name\n1,a,b\n2,c,d\n"), "people.csv", models.IngestOptions{AutoFix: true})
	require.NoError(t, err)
	require.NotNil(t, res.Benchmark)
	assert.Equal(t, 2, res.Benchmark.SQL["row_count"])

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

type failingReportRepo struct {
	*file.DatasetRepository
}

func (failingReportRepo) UpdateReport(context.Context, string, *models.QualityReport) error {
	return errors.NewInternalError("disk full")
}

func TestIngestKeepsStoredDatasetWhenReportUpdateFails(t *testing.T) {
	logger := testutil.Logger()
	pipeline, err := quality.NewPipeline(quality.DefaultOptions(), logger)
	require.NoError(t, err)
	repo, err := file.NewDatasetRepository(t.TempDir(), logger)
	require.NoError(t, err)
	svc := NewService(pipeline, failingReportRepo{repo}, logger)

	res, err := svc.Ingest(context.Background(), []byte(sampleCSV), "sales.csv", models.IngestOptions{AutoFix: true})
	require.NoError(t, err)
	assert.True(t, repo.Exists(res.DatasetID))
	assert.NotNil(t, res.Benchmark)
}
