package batch

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

// storedJob mirrors models.BatchJob with optional fields so that entries
// written by older versions can be filled with defaults
type storedJob struct {
	JobID               *string           `json:"job_id"`
	Name                *string           `json:"name"`
	WatchDir            *string           `json:"watch_dir"`
	PollSeconds         *int              `json:"poll_seconds"`
	AutoFix             *bool             `json:"auto_fix"`
	Enabled             *bool             `json:"enabled"`
	CreatedAt           *time.Time        `json:"created_at"`
	LastRunAt           *time.Time        `json:"last_run_at"`
	LastStatus          *models.JobStatus `json:"last_status"`
	LastError           *string           `json:"last_error"`
	ProcessedSignatures map[string]string `json:"processed_signatures"`
}

type storedState struct {
	Jobs []storedJob        `json:"jobs"`
	Runs []models.RunRecord `json:"runs"`
}

// decodeState parses a persisted registry document and normalises its jobs
func decodeState(data []byte, now time.Time) (*models.RegistryState, error) {
	var raw storedState
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	state := &models.RegistryState{
		Jobs: make([]*models.BatchJob, 0, len(raw.Jobs)),
		Runs: raw.Runs,
	}
	if state.Runs == nil {
		state.Runs = make([]models.RunRecord, 0)
	}
	for _, sj := range raw.Jobs {
		state.Jobs = append(state.Jobs, sj.normalize(now))
	}
	return state, nil
}

func (sj storedJob) normalize(now time.Time) *models.BatchJob {
	job := &models.BatchJob{
		WatchDir:            stringOr(sj.WatchDir, ""),
		PollSeconds:         constants.DefaultPollSeconds,
		AutoFix:             boolOr(sj.AutoFix, true),
		Enabled:             boolOr(sj.Enabled, true),
		CreatedAt:           now,
		LastRunAt:           sj.LastRunAt,
		LastStatus:          models.JobStatusIdle,
		LastError:           sj.LastError,
		ProcessedSignatures: sj.ProcessedSignatures,
	}

	job.JobID = stringOr(sj.JobID, "")
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	job.Name = stringOr(sj.Name, "")
	if sj.Name == nil {
		job.Name = defaultJobName(job.JobID)
	}
	if sj.PollSeconds != nil {
		job.PollSeconds = *sj.PollSeconds
	}
	if sj.CreatedAt != nil {
		job.CreatedAt = *sj.CreatedAt
	}
	if sj.LastStatus != nil && *sj.LastStatus != "" {
		job.LastStatus = *sj.LastStatus
	}
	if job.ProcessedSignatures == nil {
		job.ProcessedSignatures = make(map[string]string)
	}
	return job
}

func stringOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
