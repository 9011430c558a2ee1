// Package export writes cleaned tables in the supported output formats.
package export

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/pkg/models"
)

// ExportFormat defines supported export formats
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions controls how a table is written
type ExportOptions struct {
	IncludeHeaders bool        `json:"include_headers"`
	Gzip           bool        `json:"gzip"`
	CSVOptions     CSVOptions  `json:"csv_options"`
	JSONOptions    JSONOptions `json:"json_options"`
}

// CSVOptions configures CSV output
type CSVOptions struct {
	Delimiter string `json:"delimiter"`
	NullValue string `json:"null_value"`
}

// JSONOptions configures JSON output
type JSONOptions struct {
	Pretty      bool `json:"pretty"`
	StreamLines bool `json:"stream_lines"`
}

// DefaultOptions writes headers and comma-separated values
func DefaultOptions() ExportOptions {
	return ExportOptions{IncludeHeaders: true, CSVOptions: CSVOptions{Delimiter: ","}}
}

// Exporter writes a table in one format
type Exporter interface {
	Name() string
	Format() ExportFormat
	Export(ctx context.Context, w io.Writer, table *models.Table, options ExportOptions) error
	ValidateOptions(options ExportOptions) error
}

// ExportEngine dispatches exports to the registered exporters
type ExportEngine struct {
	logger    *logrus.Logger
	mu        sync.RWMutex
	exporters map[ExportFormat]Exporter
}

// NewExportEngine creates an engine with the CSV and JSON exporters registered
func NewExportEngine(logger *logrus.Logger) *ExportEngine {
	if logger == nil {
		logger = logrus.New()
	}
	ee := &ExportEngine{
		logger:    logger,
		exporters: make(map[ExportFormat]Exporter),
	}
	ee.RegisterExporter(&CSVExporter{})
	ee.RegisterExporter(&JSONExporter{})
	return ee
}

// RegisterExporter adds or replaces the exporter for its format
func (ee *ExportEngine) RegisterExporter(exporter Exporter) {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.exporters[exporter.Format()] = exporter
}

// Export writes table to w in the given format
func (ee *ExportEngine) Export(ctx context.Context, table *models.Table, format ExportFormat, w io.Writer, options ExportOptions) error {
	ee.mu.RLock()
	exporter, ok := ee.exporters[format]
	ee.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unsupported export format: %s", format)
	}
	if err := exporter.ValidateOptions(options); err != nil {
		return fmt.Errorf("invalid %s options: %w", format, err)
	}

	if options.Gzip {
		gz := gzip.NewWriter(w)
		if err := exporter.Export(ctx, gz, table, options); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	}

	if err := exporter.Export(ctx, w, table, options); err != nil {
		return err
	}
	ee.logger.WithFields(logrus.Fields{
		"format":  format,
		"rows":    table.RowCount(),
		"columns": table.ColumnCount(),
	}).Debug("Table exported")
	return nil
}

// GetSupportedFormats returns the registered formats, sorted
func (ee *ExportEngine) GetSupportedFormats() []ExportFormat {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	formats := make([]ExportFormat, 0, len(ee.exporters))
	for f := range ee.exporters {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
