package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/internal/config"
	"github.com/inferloop/autoeda/internal/testutil"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

func TestNewWiresFileBackedApp(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()
	ctx := context.Background()

	a, err := New(ctx, cfg, testutil.Logger())
	require.NoError(t, err)
	defer a.Close()

	watch := t.TempDir()
	testutil.WriteCSV(t, watch, "orders.csv", "id,total\n1,10\n2,20\n")

	job, err := a.Registry.CreateJob(ctx, models.JobSpec{WatchDir: watch})
	require.NoError(t, err)
	run, err := a.Registry.RunJob(ctx, job.JobID, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSuccess, run.Status)
	require.Len(t, run.DatasetsCreated, 1)

	_, err = os.Stat(filepath.Join(cfg.Storage.Root, constants.DefaultStateFile))
	assert.NoError(t, err, "state persisted under the storage root")

	list, err := a.Datasets.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, run.DatasetsCreated[0].DatasetID, list[0].DatasetID)

	// a second App over the same root sees the job and its signatures
	b, err := New(ctx, cfg, testutil.Logger())
	require.NoError(t, err)
	defer b.Close()
	reloaded, err := b.Registry.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.ProcessedFiles)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()
	cfg.State.Backend = "etcd"

	_, err := New(context.Background(), cfg, testutil.Logger())
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("debug", "json")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = NewLogger("bogus", "text")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
