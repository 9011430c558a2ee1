package models

import "time"

// JobStatus is the outcome of a job's most recent run
type JobStatus string

const (
	JobStatusIdle           JobStatus = "idle"
	JobStatusSuccess        JobStatus = "success"
	JobStatusPartialSuccess JobStatus = "partial_success"
	JobStatusFailed         JobStatus = "failed"
)

// Trigger identifies what started a run
type Trigger string

const (
	TriggerScheduler Trigger = "scheduler"
	TriggerManual    Trigger = "manual"
	TriggerCreate    Trigger = "create"
)

// BatchJob is a registered watched-folder job as persisted in the registry
// state. ProcessedSignatures maps absolute file paths to the signature seen
// when the file was last ingested successfully.
type BatchJob struct {
	JobID               string            `json:"job_id"`
	Name                string            `json:"name"`
	WatchDir            string            `json:"watch_dir"`
	PollSeconds         int               `json:"poll_seconds"`
	AutoFix             bool              `json:"auto_fix"`
	Enabled             bool              `json:"enabled"`
	CreatedAt           time.Time         `json:"created_at"`
	LastRunAt           *time.Time        `json:"last_run_at"`
	LastStatus          JobStatus         `json:"last_status"`
	LastError           *string           `json:"last_error"`
	ProcessedSignatures map[string]string `json:"processed_signatures"`
}

// JobView is the externally visible form of a job with computed fields
type JobView struct {
	JobID          string     `json:"job_id"`
	Name           string     `json:"name"`
	WatchDir       string     `json:"watch_dir"`
	PollSeconds    int        `json:"poll_seconds"`
	AutoFix        bool       `json:"auto_fix"`
	Enabled        bool       `json:"enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	LastRunAt      *time.Time `json:"last_run_at"`
	LastStatus     JobStatus  `json:"last_status"`
	LastError      *string    `json:"last_error"`
	ProcessedFiles int        `json:"processed_files"`
	NextRunAt      *time.Time `json:"next_run_at"`
	Running        bool       `json:"running"`
}

// JobSpec is the input for registering a job. A nil pointer selects the
// default.
type JobSpec struct {
	Name        string `json:"name,omitempty"`
	WatchDir    string `json:"watch_dir"`
	PollSeconds *int   `json:"poll_seconds,omitempty"`
	AutoFix     *bool  `json:"auto_fix,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

// JobUpdate is a partial update; nil fields are left unchanged
type JobUpdate struct {
	Name        *string `json:"name,omitempty"`
	WatchDir    *string `json:"watch_dir,omitempty"`
	PollSeconds *int    `json:"poll_seconds,omitempty"`
	AutoFix     *bool   `json:"auto_fix,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// DatasetRef points at a dataset produced by a batch run
type DatasetRef struct {
	DatasetID  string `json:"dataset_id"`
	SourceFile string `json:"source_file"`
	SourcePath string `json:"source_path"`
}

// RunRecord is the immutable record of one batch run
type RunRecord struct {
	RunID           string       `json:"run_id"`
	JobID           string       `json:"job_id"`
	JobName         string       `json:"job_name"`
	TriggeredBy     Trigger      `json:"triggered_by"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      time.Time    `json:"finished_at"`
	Status          JobStatus    `json:"status"`
	FilesSeen       int          `json:"files_seen"`
	FilesProcessed  int          `json:"files_processed"`
	DatasetsCreated []DatasetRef `json:"datasets_created"`
	Errors          []string     `json:"errors"`
}

// RegistryState is the persisted form of the whole job registry
type RegistryState struct {
	Jobs []*BatchJob `json:"jobs"`
	Runs []RunRecord `json:"runs"`
}
