// Package ingestion turns uploaded or discovered CSV bytes into stored,
// cleaned datasets with their quality reports.
package ingestion

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/internal/query"
	"github.com/inferloop/autoeda/internal/tabular"
	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/interfaces"
	"github.com/inferloop/autoeda/pkg/models"
)

// Service implements interfaces.Ingester
type Service struct {
	cleaner interfaces.TableCleaner
	repo    interfaces.DatasetRepository
	logger  *logrus.Logger
	now     func() time.Time
}

// NewService wires the pipeline and the dataset repository
func NewService(cleaner interfaces.TableCleaner, repo interfaces.DatasetRepository, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		cleaner: cleaner,
		repo:    repo,
		logger:  logger,
		now:     time.Now,
	}
}

// Ingest parses, cleans and stores one CSV file, then attaches the benchmark
// and query suggestions to the stored report
func (s *Service) Ingest(ctx context.Context, raw []byte, filename string, opts models.IngestOptions) (*models.IngestResult, error) {
	if filename == "" {
		return nil, errors.NewInvalidInputError(errors.CodeMissingSource, "A file name is required.")
	}
	if len(raw) == 0 {
		return nil, errors.NewInvalidInputError(errors.CodeEmptyInput, "Uploaded CSV is empty.")
	}
	if opts.Mode == "" {
		opts.Mode = models.IngestModeUpload
	}

	logger := s.logger.WithFields(logrus.Fields{
		"source_file": filename,
		"mode":        opts.Mode,
		"auto_fix":    opts.AutoFix,
	})

	table, err := tabular.ParseCSV(raw)
	if err != nil {
		return nil, err
	}

	cleaned, report, err := s.cleaner.Run(ctx, table, opts.AutoFix)
	if err != nil {
		return nil, err
	}

	created := s.now().UTC()
	report.CreatedAt = &created
	report.SourceFile = filename
	report.Ingestion = &models.IngestionInfo{
		Mode:       opts.Mode,
		AutoFix:    opts.AutoFix,
		SourcePath: optional(opts.SourcePath),
		JobID:      optional(opts.JobID),
	}

	loc, err := s.repo.Save(ctx, raw, cleaned, report)
	if err != nil {
		return nil, err
	}

	// stored; enrichment failures are logged, not returned
	logger = logger.WithField("dataset_id", loc.DatasetID)
	benchmark, err := query.Benchmark(ctx, cleaned, s.logger)
	if err != nil {
		logger.WithError(err).Warn("Benchmark failed")
	}
	suggestions := query.BuildSuggestions(cleaned)
	report.Benchmark = benchmark
	report.QuerySuggestions = suggestions

	if err := s.repo.UpdateReport(ctx, loc.DatasetID, report); err != nil {
		logger.WithError(err).Warn("Failed to attach benchmark to stored report")
	}

	logger.WithFields(logrus.Fields{
		"rows":  cleaned.RowCount(),
		"fixes": len(report.FixesApplied),
	}).Info("Dataset ingested")

	return &models.IngestResult{
		DatasetID:        loc.DatasetID,
		Report:           report,
		Benchmark:        benchmark,
		QuerySuggestions: suggestions,
		CleanedPath:      loc.CleanedPath,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
