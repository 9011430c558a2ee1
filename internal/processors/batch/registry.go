// Package batch implements the watched-folder job registry, the run
// algorithm and the periodic scheduler that drives it.
package batch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/interfaces"
	"github.com/inferloop/autoeda/pkg/models"
)

// Recorder receives batch run measurements
type Recorder interface {
	RecordBatchRun(trigger, status string, duration time.Duration, filesSeen, filesProcessed, filesFailed int)
	SetRunningJobs(n int)
}

// Registry owns the job list, the bounded run history and the per-job
// schedule. All state is guarded by one mutex and every mutation is
// persisted through the state store while the lock is held.
type Registry struct {
	mu       sync.Mutex
	store    interfaces.StateStore
	ingester interfaces.Ingester
	logger   *logrus.Logger
	recorder Recorder
	now      func() time.Time

	jobs    []*models.BatchJob
	runs    []models.RunRecord
	nextRun map[string]time.Time
	running map[string]struct{}
}

// Option configures a Registry
type Option func(*Registry)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithRecorder attaches a metrics recorder
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// NewRegistry loads persisted state from store. A missing or unreadable
// document yields an empty registry.
func NewRegistry(ctx context.Context, store interfaces.StateStore, ingester interfaces.Ingester, logger *logrus.Logger, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.NewConfigError("batch registry requires a state store")
	}
	if ingester == nil {
		return nil, errors.NewConfigError("batch registry requires an ingester")
	}
	if logger == nil {
		logger = logrus.New()
	}

	r := &Registry{
		store:    store,
		ingester: ingester,
		logger:   logger,
		now:      time.Now,
		jobs:     make([]*models.BatchJob, 0),
		runs:     make([]models.RunRecord, 0),
		nextRun:  make(map[string]time.Time),
		running:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) load(ctx context.Context) error {
	data, err := r.store.Load(ctx)
	if stderrors.Is(err, errors.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	state, err := decodeState(data, r.now().UTC())
	if err != nil {
		r.logger.WithError(err).Warn("Batch state is unreadable, starting with an empty registry")
		return nil
	}

	r.jobs = state.Jobs
	r.runs = state.Runs
	if len(r.runs) > constants.MaxRunHistory {
		r.runs = r.runs[len(r.runs)-constants.MaxRunHistory:]
	}

	now := r.now()
	for _, job := range r.jobs {
		if job.Enabled {
			r.nextRun[job.JobID] = now.Add(interval(job))
		}
	}

	r.logger.WithFields(logrus.Fields{
		"jobs": len(r.jobs),
		"runs": len(r.runs),
	}).Info("Batch state loaded")
	return nil
}

// persist writes the whole state; the caller holds the lock
func (r *Registry) persist(ctx context.Context) error {
	data, err := json.MarshalIndent(models.RegistryState{Jobs: r.jobs, Runs: r.runs}, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to encode batch state")
	}
	if err := r.store.Save(ctx, data); err != nil {
		r.logger.WithError(err).Error("Failed to persist batch state")
		return err
	}
	return nil
}

func interval(job *models.BatchJob) time.Duration {
	if job.PollSeconds <= 0 {
		return time.Duration(constants.DefaultPollSeconds) * time.Second
	}
	return time.Duration(job.PollSeconds) * time.Second
}

func (r *Registry) find(jobID string) *models.BatchJob {
	for _, job := range r.jobs {
		if job.JobID == jobID {
			return job
		}
	}
	return nil
}

func (r *Registry) view(job *models.BatchJob) models.JobView {
	v := models.JobView{
		JobID:          job.JobID,
		Name:           job.Name,
		WatchDir:       job.WatchDir,
		PollSeconds:    job.PollSeconds,
		AutoFix:        job.AutoFix,
		Enabled:        job.Enabled,
		CreatedAt:      job.CreatedAt,
		LastRunAt:      job.LastRunAt,
		LastStatus:     job.LastStatus,
		LastError:      job.LastError,
		ProcessedFiles: len(job.ProcessedSignatures),
	}
	if next, ok := r.nextRun[job.JobID]; ok {
		next = next.UTC()
		v.NextRunAt = &next
	}
	_, v.Running = r.running[job.JobID]
	return v
}

func validatePollSeconds(seconds int) error {
	if seconds < constants.MinPollSeconds {
		return errors.NewValidationError(errors.CodeInvalidInterval,
			fmt.Sprintf("poll_seconds must be >= %d", constants.MinPollSeconds))
	}
	if seconds > constants.MaxPollSeconds {
		return errors.NewValidationError(errors.CodeInvalidInterval,
			fmt.Sprintf("poll_seconds must be <= %d", constants.MaxPollSeconds))
	}
	return nil
}

// CreateJob validates and registers a job
func (r *Registry) CreateJob(ctx context.Context, spec models.JobSpec) (*models.JobView, error) {
	dir, err := ResolveWatchDir(spec.WatchDir)
	if err != nil {
		return nil, err
	}

	poll := constants.DefaultPollSeconds
	if spec.PollSeconds != nil {
		poll = *spec.PollSeconds
	}
	if err := validatePollSeconds(poll); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = defaultJobName(jobID)
	}

	job := &models.BatchJob{
		JobID:               jobID,
		Name:                name,
		WatchDir:            dir,
		PollSeconds:         poll,
		AutoFix:             boolOr(spec.AutoFix, true),
		Enabled:             boolOr(spec.Enabled, true),
		LastStatus:          models.JobStatusIdle,
		ProcessedSignatures: make(map[string]string),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job.CreatedAt = r.now().UTC()
	r.jobs = append(r.jobs, job)
	if job.Enabled {
		r.nextRun[jobID] = r.now().Add(interval(job))
	}
	if err := r.persist(ctx); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"job_id":       jobID,
		"watch_dir":    dir,
		"poll_seconds": poll,
	}).Info("Batch job created")

	v := r.view(job)
	return &v, nil
}

// UpdateJob applies a partial update
func (r *Registry) UpdateJob(ctx context.Context, jobID string, upd models.JobUpdate) (*models.JobView, error) {
	var name, dir string
	if upd.Name != nil {
		name = strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, errors.NewValidationError(errors.CodeMissingField, "name cannot be empty")
		}
	}
	if upd.WatchDir != nil {
		resolved, err := ResolveWatchDir(*upd.WatchDir)
		if err != nil {
			return nil, err
		}
		dir = resolved
	}
	if upd.PollSeconds != nil {
		if err := validatePollSeconds(*upd.PollSeconds); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job := r.find(jobID)
	if job == nil {
		return nil, errors.NewJobNotFoundError(jobID)
	}

	if upd.Name != nil {
		job.Name = name
	}
	if upd.WatchDir != nil {
		job.WatchDir = dir
	}
	if upd.PollSeconds != nil {
		job.PollSeconds = *upd.PollSeconds
		r.nextRun[jobID] = r.now().Add(interval(job))
	}
	if upd.AutoFix != nil {
		job.AutoFix = *upd.AutoFix
	}
	if upd.Enabled != nil {
		job.Enabled = *upd.Enabled
		if job.Enabled {
			r.nextRun[jobID] = r.now().Add(interval(job))
		} else {
			delete(r.nextRun, jobID)
		}
	}

	if err := r.persist(ctx); err != nil {
		return nil, err
	}
	v := r.view(job)
	return &v, nil
}

// DeleteJob removes a job. A run in flight for it finishes on its own.
func (r *Registry) DeleteJob(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.jobs[:0:0]
	for _, job := range r.jobs {
		if job.JobID != jobID {
			kept = append(kept, job)
		}
	}
	if len(kept) == len(r.jobs) {
		return errors.NewJobNotFoundError(jobID)
	}
	r.jobs = kept
	delete(r.nextRun, jobID)

	if err := r.persist(ctx); err != nil {
		return err
	}
	r.logger.WithField("job_id", jobID).Info("Batch job deleted")
	return nil
}

// GetJob returns one job
func (r *Registry) GetJob(jobID string) (*models.JobView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := r.find(jobID)
	if job == nil {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	v := r.view(job)
	return &v, nil
}

// ListJobs returns all jobs, newest first
func (r *Registry) ListJobs() []models.JobView {
	r.mu.Lock()
	views := make([]models.JobView, len(r.jobs))
	for i, job := range r.jobs {
		views[i] = r.view(job)
	}
	r.mu.Unlock()

	sort.SliceStable(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
	return views
}

// ListRuns returns up to limit run records, newest first. A non-positive
// limit selects the default.
func (r *Registry) ListRuns(limit int) []models.RunRecord {
	if limit <= 0 {
		limit = constants.DefaultRunsLimit
	}

	r.mu.Lock()
	runs := make([]models.RunRecord, len(r.runs))
	copy(runs, r.runs)
	r.mu.Unlock()

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

// RecordRun appends a run to the history and, if the job still exists,
// updates its last-run fields and reschedules it
func (r *Registry) RecordRun(ctx context.Context, record models.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job := r.find(record.JobID); job != nil {
		finished := record.FinishedAt
		job.LastRunAt = &finished
		job.LastStatus = record.Status
		job.LastError = nil
		if len(record.Errors) > 0 {
			first := record.Errors[0]
			job.LastError = &first
		}
		if job.Enabled {
			r.nextRun[job.JobID] = r.now().Add(interval(job))
		}
	}

	r.runs = append(r.runs, record)
	if len(r.runs) > constants.MaxRunHistory {
		r.runs = append([]models.RunRecord(nil), r.runs[len(r.runs)-constants.MaxRunHistory:]...)
	}
	return r.persist(ctx)
}

// CollectDue returns the ids of enabled, idle jobs whose next run time has
// passed and advances their schedule by one interval
func (r *Registry) CollectDue(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []string
	for _, job := range r.jobs {
		if !job.Enabled {
			continue
		}
		next, ok := r.nextRun[job.JobID]
		if !ok {
			r.nextRun[job.JobID] = now.Add(interval(job))
			continue
		}
		if _, busy := r.running[job.JobID]; busy || now.Before(next) {
			continue
		}
		due = append(due, job.JobID)
		r.nextRun[job.JobID] = now.Add(interval(job))
	}
	return due
}

// IsRunning reports whether a run is in flight for jobID
func (r *Registry) IsRunning(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[jobID]
	return ok
}

func defaultJobName(jobID string) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return constants.JobNamePrefix + short
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
