package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/internal/export"
	"github.com/inferloop/autoeda/internal/tabular"
	"github.com/inferloop/autoeda/pkg/constants"
	apperrors "github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/interfaces"
	"github.com/inferloop/autoeda/pkg/models"
)

// DatasetRepository stores each dataset in its own directory under root:
// the uploaded bytes, the cleaned table as CSV and the JSON report.
type DatasetRepository struct {
	root     string
	logger   *logrus.Logger
	exporter *export.CSVExporter
}

// NewDatasetRepository creates the root directory if needed
func NewDatasetRepository(root string, logger *logrus.Logger) (*DatasetRepository, error) {
	if root == "" {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidConfig, "storage root is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.WrapStorageError(err, "init", storageType).WithLocation(root)
	}
	return &DatasetRepository{root: root, logger: logger, exporter: &export.CSVExporter{}}, nil
}

// Root returns the storage root
func (r *DatasetRepository) Root() string {
	return r.root
}

func (r *DatasetRepository) dir(datasetID string) string {
	return filepath.Join(r.root, datasetID)
}

// Save writes a new dataset directory
func (r *DatasetRepository) Save(ctx context.Context, raw []byte, cleaned *models.Table, report *models.QualityReport) (*interfaces.DatasetLocation, error) {
	datasetID := uuid.NewString()
	dir := r.dir(datasetID)
	loc := &interfaces.DatasetLocation{
		DatasetID:    datasetID,
		OriginalPath: filepath.Join(dir, constants.OriginalFileName),
		CleanedPath:  filepath.Join(dir, constants.CleanedFileName),
		ReportPath:   filepath.Join(dir, constants.ReportFileName),
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.WrapStorageError(err, "save", storageType).WithLocation(dir)
	}
	if err := os.WriteFile(loc.OriginalPath, raw, 0o644); err != nil {
		return nil, apperrors.WrapStorageError(err, "save", storageType).WithLocation(loc.OriginalPath)
	}

	var buf bytes.Buffer
	if err := r.exporter.Export(ctx, &buf, cleaned, export.DefaultOptions()); err != nil {
		return nil, apperrors.WrapStorageError(err, "save", storageType).WithLocation(loc.CleanedPath)
	}
	if err := writeFileAtomic(loc.CleanedPath, buf.Bytes(), 0o644); err != nil {
		return nil, apperrors.WrapStorageError(err, "save", storageType).WithLocation(loc.CleanedPath)
	}

	if err := r.writeReport(loc.ReportPath, report); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"dataset_id": datasetID,
		"rows":       cleaned.RowCount(),
		"columns":    cleaned.ColumnCount(),
	}).Info("Dataset stored")
	return loc, nil
}

// UpdateReport overwrites the report of an existing dataset
func (r *DatasetRepository) UpdateReport(ctx context.Context, datasetID string, report *models.QualityReport) error {
	path := filepath.Join(r.dir(datasetID), constants.ReportFileName)
	if !r.exists(path) {
		return apperrors.NewDatasetNotFoundError(datasetID)
	}
	return r.writeReport(path, report)
}

func (r *DatasetRepository) writeReport(path string, report *models.QualityReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeInternal, apperrors.CodeInternal, "failed to encode report")
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return apperrors.WrapStorageError(err, "save", storageType).WithLocation(path)
	}
	return nil
}

// GetReport returns the raw report document
func (r *DatasetRepository) GetReport(ctx context.Context, datasetID string) ([]byte, error) {
	if !validID(datasetID) {
		return nil, apperrors.NewDatasetNotFoundError(datasetID)
	}
	path := filepath.Join(r.dir(datasetID), constants.ReportFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NewDatasetNotFoundError(datasetID)
	}
	if err != nil {
		return nil, apperrors.WrapStorageError(err, "read", storageType).WithLocation(path)
	}
	return data, nil
}

// LoadCleaned parses the stored cleaned CSV
func (r *DatasetRepository) LoadCleaned(ctx context.Context, datasetID string) (*models.Table, error) {
	if !validID(datasetID) {
		return nil, apperrors.NewDatasetNotFoundError(datasetID)
	}
	path := filepath.Join(r.dir(datasetID), constants.CleanedFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NewDatasetNotFoundError(datasetID)
	}
	if err != nil {
		return nil, apperrors.WrapStorageError(err, "read", storageType).WithLocation(path)
	}
	return tabular.ParseCSV(data)
}

// Exists reports whether a dataset with a report is stored under datasetID
func (r *DatasetRepository) Exists(datasetID string) bool {
	return validID(datasetID) && r.exists(filepath.Join(r.dir(datasetID), constants.ReportFileName))
}

type reportHeader struct {
	After *struct {
		Rows    *int `json:"rows"`
		Columns *int `json:"columns"`
	} `json:"after"`
	CreatedAt *time.Time `json:"created_at"`
}

// List returns a summary per dataset directory, sorted by id descending.
// Directories without a readable report are skipped.
func (r *DatasetRepository) List(ctx context.Context) ([]models.DatasetSummary, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, apperrors.WrapStorageError(err, "list", storageType).WithLocation(r.root)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() > entries[j].Name() })

	summaries := make([]models.DatasetSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.root, entry.Name(), constants.ReportFileName))
		if err != nil {
			continue
		}
		var header reportHeader
		if err := json.Unmarshal(data, &header); err != nil {
			r.logger.WithField("dataset_id", entry.Name()).Warn("Skipping dataset with unreadable report")
			continue
		}
		summary := models.DatasetSummary{DatasetID: entry.Name(), CreatedAt: header.CreatedAt}
		if header.After != nil {
			summary.Rows = header.After.Rows
			summary.Columns = header.After.Columns
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *DatasetRepository) exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// validID rejects ids that would escape the storage root
func validID(datasetID string) bool {
	return datasetID != "" && datasetID != "." && datasetID != ".." && filepath.Base(datasetID) == datasetID
}
