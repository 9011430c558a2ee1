package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/models"
)

// jobSnapshot is the configuration a run works from, captured when the run
// slot is acquired
type jobSnapshot struct {
	jobID    string
	name     string
	watchDir string
	autoFix  bool
}

// acquire claims the run slot for jobID
func (r *Registry) acquire(jobID string) (*jobSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := r.find(jobID)
	if job == nil {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	if _, busy := r.running[jobID]; busy {
		return nil, errors.NewAlreadyRunningError(jobID)
	}
	r.running[jobID] = struct{}{}
	r.reportRunning()

	return &jobSnapshot{
		jobID:    job.JobID,
		name:     job.Name,
		watchDir: job.WatchDir,
		autoFix:  job.AutoFix,
	}, nil
}

func (r *Registry) release(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, jobID)
	r.reportRunning()
}

// reportRunning publishes the running-jobs gauge; the caller holds the lock
func (r *Registry) reportRunning() {
	if r.recorder != nil {
		r.recorder.SetRunningJobs(len(r.running))
	}
}

// knownSignature returns the stored signature for path and whether the job
// still exists
func (r *Registry) knownSignature(jobID, path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.find(jobID)
	if job == nil {
		return "", false
	}
	return job.ProcessedSignatures[path], true
}

func (r *Registry) storeSignature(jobID, path, signature string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job := r.find(jobID); job != nil {
		if job.ProcessedSignatures == nil {
			job.ProcessedSignatures = make(map[string]string)
		}
		job.ProcessedSignatures[path] = signature
	}
}

// RunStatus derives a run's status from its error count and processed count
func RunStatus(errs []string, processed int) models.JobStatus {
	switch {
	case len(errs) > 0 && processed == 0:
		return models.JobStatusFailed
	case len(errs) > 0:
		return models.JobStatusPartialSuccess
	default:
		return models.JobStatusSuccess
	}
}

// RunJob scans the job's watch directory once and ingests every CSV file
// whose signature changed since it was last ingested. At most one run per
// job is in flight; a second request fails with an AlreadyRunning error.
func (r *Registry) RunJob(ctx context.Context, jobID string, trigger models.Trigger) (*models.RunRecord, error) {
	snap, err := r.acquire(jobID)
	if err != nil {
		return nil, err
	}
	defer r.release(jobID)

	logger := r.logger.WithFields(logrus.Fields{
		"job_id":       jobID,
		"triggered_by": trigger,
	})
	logger.Info("Batch run started")

	record := models.RunRecord{
		RunID:           uuid.NewString(),
		JobID:           jobID,
		JobName:         snap.name,
		TriggeredBy:     trigger,
		StartedAt:       r.now().UTC(),
		DatasetsCreated: make([]models.DatasetRef, 0),
		Errors:          make([]string, 0),
	}

	r.scanAndIngest(ctx, snap, &record, logger)

	record.FinishedAt = r.now().UTC()
	record.Status = RunStatus(record.Errors, record.FilesProcessed)

	if r.recorder != nil {
		failed := len(record.Errors)
		r.recorder.RecordBatchRun(string(trigger), string(record.Status),
			record.FinishedAt.Sub(record.StartedAt), record.FilesSeen, record.FilesProcessed, failed)
	}

	if err := r.RecordRun(ctx, record); err != nil {
		logger.WithError(err).Error("Failed to record batch run")
	}

	logger.WithFields(logrus.Fields{
		"status":          record.Status,
		"files_seen":      record.FilesSeen,
		"files_processed": record.FilesProcessed,
		"errors":          len(record.Errors),
	}).Info("Batch run finished")
	return &record, nil
}

func (r *Registry) scanAndIngest(ctx context.Context, snap *jobSnapshot, record *models.RunRecord, logger *logrus.Entry) {
	if !isDir(snap.watchDir) {
		record.Errors = append(record.Errors, fmt.Sprintf("Watch directory is missing: %s", snap.watchDir))
		return
	}

	files, err := ScanCSVFiles(snap.watchDir)
	if err != nil {
		record.Errors = append(record.Errors, fmt.Sprintf("%s: %v", snap.watchDir, err))
		return
	}
	record.FilesSeen = len(files)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			record.Errors = append(record.Errors, fmt.Sprintf("run cancelled: %v", err))
			return
		}

		path := sourcePath(file)
		signature, err := FileSignature(file)
		if err != nil {
			record.Errors = append(record.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}

		known, exists := r.knownSignature(snap.jobID, path)
		if !exists {
			record.Errors = append(record.Errors, fmt.Sprintf("job %s was deleted during the run", snap.jobID))
			return
		}
		if known == signature {
			continue
		}

		ref, err := r.ingestFile(ctx, snap, file, path)
		if err != nil {
			logger.WithError(err).WithField("file", path).Warn("Batch file failed")
			record.Errors = append(record.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}

		record.FilesProcessed++
		record.DatasetsCreated = append(record.DatasetsCreated, *ref)
		r.storeSignature(snap.jobID, path, signature)
	}
}

func (r *Registry) ingestFile(ctx context.Context, snap *jobSnapshot, file, path string) (ref *models.DatasetRef, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ref, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()

	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(file)
	res, err := r.ingester.Ingest(ctx, raw, name, models.IngestOptions{
		AutoFix:    snap.autoFix,
		Mode:       models.IngestModeBatch,
		SourcePath: path,
		JobID:      snap.jobID,
	})
	if err != nil {
		return nil, err
	}
	return &models.DatasetRef{
		DatasetID:  res.DatasetID,
		SourceFile: name,
		SourcePath: path,
	}, nil
}
