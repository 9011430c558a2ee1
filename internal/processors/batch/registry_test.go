package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/internal/testutil"
	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/models"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeIngester fails files whose content contains "fail" and can block
// until released
type fakeIngester struct {
	mu      sync.Mutex
	calls   []models.IngestOptions
	names   []string
	block   chan struct{}
	entered chan struct{}
	panicOn string
}

func (f *fakeIngester) Ingest(ctx context.Context, raw []byte, filename string, opts models.IngestOptions) (*models.IngestResult, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.panicOn != "" && f.panicOn == filename {
		panic("ingest exploded")
	}
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.names = append(f.names, filename)
	n := len(f.calls)
	f.mu.Unlock()

	if strings.Contains(string(raw), "fail") {
		return nil, errors.NewInvalidInputError(errors.CodeNoRows, "CSV has no rows.")
	}
	return &models.IngestResult{DatasetID: "ds-" + filename + "-" + string(rune('0'+n))}, nil
}

func (f *fakeIngester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	registry *Registry
	store    *testutil.MemoryStateStore
	ingester *fakeIngester
	clock    *testutil.Clock
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    testutil.NewMemoryStateStore(nil),
		ingester: &fakeIngester{},
		clock:    testutil.NewClock(epoch),
		dir:      t.TempDir(),
	}
	f.registry = f.open(t)
	return f
}

func (f *fixture) open(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(context.Background(), f.store, f.ingester, testutil.Logger(), WithClock(f.clock.Now))
	require.NoError(t, err)
	return r
}

func (f *fixture) create(t *testing.T, spec models.JobSpec) *models.JobView {
	t.Helper()
	if spec.WatchDir == "" {
		spec.WatchDir = f.dir
	}
	job, err := f.registry.CreateJob(context.Background(), spec)
	require.NoError(t, err)
	return job
}

func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestCreateJobDefaults(t *testing.T) {
	f := newFixture(t)

	job := f.create(t, models.JobSpec{})

	assert.Equal(t, "Batch Job "+job.JobID[:8], job.Name)
	assert.Equal(t, 300, job.PollSeconds)
	assert.True(t, job.AutoFix)
	assert.True(t, job.Enabled)
	assert.Equal(t, models.JobStatusIdle, job.LastStatus)
	assert.Nil(t, job.LastRunAt)
	assert.Nil(t, job.LastError)
	assert.False(t, job.Running)
	assert.Equal(t, 0, job.ProcessedFiles)
	require.NotNil(t, job.NextRunAt)
	assert.Equal(t, epoch.Add(300*time.Second), *job.NextRunAt)

	resolved, err := filepath.EvalSymlinks(f.dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, job.WatchDir)
	assert.Equal(t, 1, f.store.Saves())
}

func TestCreateJobDisabledHasNoNextRun(t *testing.T) {
	f := newFixture(t)
	job := f.create(t, models.JobSpec{Name: " nightly ", Enabled: boolPtr(false), AutoFix: boolPtr(false)})
	assert.Equal(t, "nightly", job.Name)
	assert.False(t, job.AutoFix)
	assert.Nil(t, job.NextRunAt)
}

func TestCreateJobValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.CreateJob(ctx, models.JobSpec{WatchDir: filepath.Join(f.dir, "missing")})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "Watch directory does not exist: ")

	file := testutil.WriteCSV(t, f.dir, "plain.csv", "a\n1\n")
	_, err = f.registry.CreateJob(ctx, models.JobSpec{WatchDir: file})
	assert.True(t, errors.IsValidation(err))

	_, err = f.registry.CreateJob(ctx, models.JobSpec{WatchDir: f.dir, PollSeconds: intPtr(9)})
	require.Error(t, err)
	assert.Equal(t, "poll_seconds must be >= 10", err.Error())

	_, err = f.registry.CreateJob(ctx, models.JobSpec{WatchDir: f.dir, PollSeconds: intPtr(86401)})
	assert.True(t, errors.IsValidation(err))

	assert.Empty(t, f.registry.ListJobs())
	assert.Equal(t, 0, f.store.Saves())
}

func TestUpdateJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.create(t, models.JobSpec{PollSeconds: intPtr(60)})

	f.clock.Advance(10 * time.Second)
	updated, err := f.registry.UpdateJob(ctx, job.JobID, models.JobUpdate{
		Name:        strPtr("  renamed "),
		PollSeconds: intPtr(30),
		AutoFix:     boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, 30, updated.PollSeconds)
	assert.False(t, updated.AutoFix)
	assert.Equal(t, epoch.Add(40*time.Second), *updated.NextRunAt)

	updated, err = f.registry.UpdateJob(ctx, job.JobID, models.JobUpdate{Enabled: boolPtr(false)})
	require.NoError(t, err)
	assert.Nil(t, updated.NextRunAt)

	updated, err = f.registry.UpdateJob(ctx, job.JobID, models.JobUpdate{Enabled: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(40*time.Second), *updated.NextRunAt)
}

func TestUpdateJobErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.create(t, models.JobSpec{})

	_, err := f.registry.UpdateJob(ctx, job.JobID, models.JobUpdate{Name: strPtr("   ")})
	require.Error(t, err)
	assert.Equal(t, "name cannot be empty", err.Error())

	_, err = f.registry.UpdateJob(ctx, job.JobID, models.JobUpdate{PollSeconds: intPtr(1)})
	assert.True(t, errors.IsValidation(err))

	_, err = f.registry.UpdateJob(ctx, job.JobID, models.JobUpdate{WatchDir: strPtr("/definitely/not/here")})
	assert.True(t, errors.IsValidation(err))

	_, err = f.registry.UpdateJob(ctx, "unknown", models.JobUpdate{AutoFix: boolPtr(true)})
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.create(t, models.JobSpec{})

	require.NoError(t, f.registry.DeleteJob(ctx, job.JobID))
	assert.Empty(t, f.registry.ListJobs())

	assert.True(t, errors.IsNotFound(f.registry.DeleteJob(ctx, job.JobID)))
	_, err := f.registry.GetJob(job.JobID)
	assert.True(t, errors.IsNotFound(err))
	_, err = f.registry.RunJob(ctx, job.JobID, models.TriggerManual)
	assert.True(t, errors.IsNotFound(err))
}

func TestListJobsNewestFirst(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, models.JobSpec{Name: "first"})
	f.clock.Advance(time.Minute)
	second := f.create(t, models.JobSpec{Name: "second"})

	jobs := f.registry.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, second.JobID, jobs[0].JobID)
	assert.Equal(t, first.JobID, jobs[1].JobID)
}

func TestRunJobProcessesChangedFilesOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.WriteCSV(t, f.dir, "a.csv", "x\n1\n")
	testutil.WriteCSV(t, f.dir, "nested/b.CSV", "x\n2\n")
	testutil.WriteCSV(t, f.dir, "notes.txt", "ignored")
	job := f.create(t, models.JobSpec{AutoFix: boolPtr(false)})

	run, err := f.registry.RunJob(ctx, job.JobID, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSuccess, run.Status)
	assert.Equal(t, 2, run.FilesSeen)
	assert.Equal(t, 2, run.FilesProcessed)
	require.Len(t, run.DatasetsCreated, 2)
	assert.Equal(t, "a.csv", run.DatasetsCreated[0].SourceFile)
	assert.True(t, filepath.IsAbs(run.DatasetsCreated[0].SourcePath))
	assert.Empty(t, run.Errors)
	assert.Equal(t, models.TriggerManual, run.TriggeredBy)
	assert.Equal(t, job.Name, run.JobName)

	for _, opts := range f.ingester.calls {
		assert.False(t, opts.AutoFix)
		assert.Equal(t, models.IngestModeBatch, opts.Mode)
		assert.Equal(t, job.JobID, opts.JobID)
	}

	again, err := f.registry.RunJob(ctx, job.JobID, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSuccess, again.Status)
	assert.Equal(t, 2, again.FilesSeen)
	assert.Equal(t, 0, again.FilesProcessed)
	assert.Equal(t, 2, f.ingester.callCount())

	testutil.Touch(t, filepath.Join(f.dir, "a.csv"), time.Hour)
	third, err := f.registry.RunJob(ctx, job.JobID, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, third.FilesProcessed)

	view, err := f.registry.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.ProcessedFiles)
	assert.Equal(t, models.JobStatusSuccess, view.LastStatus)
	require.NotNil(t, view.LastRunAt)
}

func TestRunJobPartialAndFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.WriteCSV(t, f.dir, "good.csv", "x\n1\n")
	bad := testutil.WriteCSV(t, f.dir, "bad.csv", "fail\n")
	job := f.create(t, models.JobSpec{})

	run, err := f.registry.RunJob(ctx, job.JobID, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPartialSuccess, run.Status)
	assert.Equal(t, 1, run.FilesProcessed)
	require.Len(t, run.Errors, 1)
	resolvedBad, err := filepath.EvalSymlinks(bad)
	require.NoError(t, err)
	assert.Equal(t, resolvedBad+": CSV has no rows.", run.Errors[0])

	// the failed file is retried, the good one is not
	run, err = f.registry.RunJob(ctx, job.JobID, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, run.Status)
	assert.Equal(t, 0, run.FilesProcessed)

	view, err := f.registry.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, view.LastStatus)
	require.NotNil(t, view.LastError)
	assert.Equal(t, run.Errors[0], *view.LastError)
}

func TestRunJobMissingWatchDir(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.dir, "inbox")
	require.NoError(t, os.Mkdir(dir, 0o755))
	job := f.create(t, models.JobSpec{WatchDir: dir})
	require.NoError(t, os.Remove(dir))

	run, err := f.registry.RunJob(context.Background(), job.JobID, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, run.Status)
	assert.Equal(t, []string{"Watch directory is missing: " + job.WatchDir}, run.Errors)
	assert.Equal(t, 0, run.FilesSeen)
	assert.False(t, f.registry.IsRunning(job.JobID))
}

func TestRunJobEmptyDirectoryIsSuccess(t *testing.T) {
	f := newFixture(t)
	job := f.create(t, models.JobSpec{})

	run, err := f.registry.RunJob(context.Background(), job.JobID, models.TriggerCreate)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSuccess, run.Status)
	assert.Equal(t, 0, run.FilesSeen)
	assert.Equal(t, models.TriggerCreate, run.TriggeredBy)
}

func TestRunJobRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	testutil.WriteCSV(t, f.dir, "a.csv", "x\n1\n")
	f.ingester.block = make(chan struct{})
	f.ingester.entered = make(chan struct{}, 1)
	job := f.create(t, models.JobSpec{})

	done := make(chan *models.RunRecord)
	go func() {
		run, _ := f.registry.RunJob(context.Background(), job.JobID, models.TriggerManual)
		done <- run
	}()
	<-f.ingester.entered

	assert.True(t, f.registry.IsRunning(job.JobID))
	view, err := f.registry.GetJob(job.JobID)
	require.NoError(t, err)
	assert.True(t, view.Running)
	assert.Empty(t, f.registry.CollectDue(epoch.Add(time.Hour)), "running jobs are never due")

	_, err = f.registry.RunJob(context.Background(), job.JobID, models.TriggerManual)
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyRunning(err))
	assert.Equal(t, 409, errors.HTTPStatusOf(err))

	close(f.ingester.block)
	run := <-done
	require.NotNil(t, run)
	assert.Equal(t, 1, run.FilesProcessed)
	assert.False(t, f.registry.IsRunning(job.JobID))
}

func TestRunJobDeletedMidRun(t *testing.T) {
	f := newFixture(t)
	testutil.WriteCSV(t, f.dir, "a.csv", "x\n1\n")
	testutil.WriteCSV(t, f.dir, "b.csv", "x\n2\n")
	f.ingester.block = make(chan struct{})
	f.ingester.entered = make(chan struct{}, 2)
	job := f.create(t, models.JobSpec{})

	done := make(chan *models.RunRecord)
	go func() {
		run, _ := f.registry.RunJob(context.Background(), job.JobID, models.TriggerManual)
		done <- run
	}()
	<-f.ingester.entered
	require.NoError(t, f.registry.DeleteJob(context.Background(), job.JobID))
	close(f.ingester.block)

	run := <-done
	require.NotNil(t, run)
	assert.Equal(t, 1, run.FilesProcessed)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "deleted")
	assert.Equal(t, models.JobStatusPartialSuccess, run.Status)
	assert.Len(t, f.registry.ListRuns(10), 1)
}

func TestRunJobStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	testutil.WriteCSV(t, f.dir, "a.csv", "x\n1\n")
	job := f.create(t, models.JobSpec{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.registry.RunJob(ctx, job.JobID, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, run.Status)
	assert.Equal(t, 0, f.ingester.callCount())
}

func TestRunStatus(t *testing.T) {
	assert.Equal(t, models.JobStatusSuccess, RunStatus(nil, 0))
	assert.Equal(t, models.JobStatusSuccess, RunStatus(nil, 3))
	assert.Equal(t, models.JobStatusFailed, RunStatus([]string{"e"}, 0))
	assert.Equal(t, models.JobStatusPartialSuccess, RunStatus([]string{"e"}, 1))
}

func TestListRunsOrderAndLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.create(t, models.JobSpec{})

	for i := 0; i < 35; i++ {
		f.clock.Advance(time.Second)
		_, err := f.registry.RunJob(ctx, job.JobID, models.TriggerManual)
		require.NoError(t, err)
	}

	runs := f.registry.ListRuns(0)
	require.Len(t, runs, 30)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.Len(t, f.registry.ListRuns(5), 5)
	assert.Len(t, f.registry.ListRuns(200), 35)
}

func TestRunHistoryIsBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 305; i++ {
		require.NoError(t, f.registry.RecordRun(ctx, models.RunRecord{
			RunID:     string(rune('a' + i%26)),
			JobID:     "gone",
			StartedAt: epoch.Add(time.Duration(i) * time.Second),
		}))
	}
	assert.Len(t, f.registry.ListRuns(1000), 300)

	var state models.RegistryState
	require.NoError(t, json.Unmarshal(f.store.Data(), &state))
	assert.Len(t, state.Runs, 300)
	assert.Equal(t, epoch.Add(5*time.Second), state.Runs[0].StartedAt)
}

func TestCollectDue(t *testing.T) {
	f := newFixture(t)
	job := f.create(t, models.JobSpec{PollSeconds: intPtr(10)})
	f.create(t, models.JobSpec{PollSeconds: intPtr(10), Enabled: boolPtr(false)})

	assert.Empty(t, f.registry.CollectDue(epoch.Add(9*time.Second)))
	assert.Equal(t, []string{job.JobID}, f.registry.CollectDue(epoch.Add(10*time.Second)))
	assert.Empty(t, f.registry.CollectDue(epoch.Add(11*time.Second)), "schedule advanced by one interval")
	assert.Equal(t, []string{job.JobID}, f.registry.CollectDue(epoch.Add(20*time.Second)))
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.WriteCSV(t, f.dir, "a.csv", "x\n1\n")
	job := f.create(t, models.JobSpec{PollSeconds: intPtr(60)})
	_, err := f.registry.RunJob(ctx, job.JobID, models.TriggerManual)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	reopened := f.open(t)

	view, err := reopened.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ProcessedFiles)
	assert.Equal(t, models.JobStatusSuccess, view.LastStatus)
	assert.Equal(t, epoch.Add(time.Hour+time.Minute), *view.NextRunAt)
	assert.Len(t, reopened.ListRuns(10), 1)

	run, err := reopened.RunJob(ctx, job.JobID, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 0, run.FilesProcessed, "signatures survive a restart")
}

func TestCorruptStateStartsEmpty(t *testing.T) {
	store := testutil.NewMemoryStateStore([]byte("{not json"))
	r, err := NewRegistry(context.Background(), store, &fakeIngester{}, testutil.Logger())
	require.NoError(t, err)
	assert.Empty(t, r.ListJobs())
	assert.Empty(t, r.ListRuns(10))
}

func TestLoadNormalisesJobs(t *testing.T) {
	store := testutil.NewMemoryStateStore([]byte(`{"jobs":[{"job_id":"abcdefgh-1234","watch_dir":"/srv/in"},{"job_id":"z","enabled":false,"poll_seconds":45,"name":"kept"}]}`))
	clock := testutil.NewClock(epoch)
	r, err := NewRegistry(context.Background(), store, &fakeIngester{}, testutil.Logger(), WithClock(clock.Now))
	require.NoError(t, err)

	job, err := r.GetJob("abcdefgh-1234")
	require.NoError(t, err)
	assert.Equal(t, "Batch Job abcdefgh", job.Name)
	assert.Equal(t, 300, job.PollSeconds)
	assert.True(t, job.AutoFix)
	assert.True(t, job.Enabled)
	assert.Equal(t, models.JobStatusIdle, job.LastStatus)
	assert.Equal(t, epoch, job.CreatedAt)
	assert.Equal(t, epoch.Add(300*time.Second), *job.NextRunAt)

	other, err := r.GetJob("z")
	require.NoError(t, err)
	assert.Equal(t, "kept", other.Name)
	assert.Equal(t, 45, other.PollSeconds)
	assert.Nil(t, other.NextRunAt)
}

func TestNewRegistryRequiresCollaborators(t *testing.T) {
	_, err := NewRegistry(context.Background(), nil, &fakeIngester{}, nil)
	assert.Error(t, err)
	_, err = NewRegistry(context.Background(), testutil.NewMemoryStateStore(nil), nil, nil)
	assert.Error(t, err)
}
