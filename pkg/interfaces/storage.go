package interfaces

import (
	"context"

	"github.com/inferloop/autoeda/pkg/models"
)

// StateStore persists an opaque JSON document as a whole. Save must be atomic:
// a reader never observes a partially written document.
type StateStore interface {
	// Load returns the stored document or errors.ErrStateNotFound
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored document
	Save(ctx context.Context, data []byte) error

	// Close releases backend resources
	Close() error
}

// DatasetRepository stores ingested datasets and their reports
type DatasetRepository interface {
	// Save stores the raw bytes, cleaned table and report under a new dataset id
	Save(ctx context.Context, raw []byte, cleaned *models.Table, report *models.QualityReport) (*DatasetLocation, error)

	// UpdateReport overwrites the report of an existing dataset
	UpdateReport(ctx context.Context, datasetID string, report *models.QualityReport) error

	// GetReport returns the stored report document
	GetReport(ctx context.Context, datasetID string) ([]byte, error)

	// LoadCleaned returns the cleaned table of a dataset
	LoadCleaned(ctx context.Context, datasetID string) (*models.Table, error)

	// List returns summaries of all stored datasets, newest id first
	List(ctx context.Context) ([]models.DatasetSummary, error)
}

// DatasetLocation describes where a dataset's artefacts were written
type DatasetLocation struct {
	DatasetID    string `json:"dataset_id"`
	OriginalPath string `json:"raw_csv_path"`
	CleanedPath  string `json:"cleaned_path"`
	ReportPath   string `json:"report_path"`
}
