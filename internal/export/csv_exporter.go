package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/inferloop/autoeda/pkg/models"
)

// CSVExporter implements CSV export functionality
type CSVExporter struct{}

// Name returns the exporter name
func (ce *CSVExporter) Name() string {
	return "csv"
}

// Format returns the exported format
func (ce *CSVExporter) Format() ExportFormat {
	return FormatCSV
}

// Export writes the table as CSV; missing cells use the null value
func (ce *CSVExporter) Export(ctx context.Context, writer io.Writer, table *models.Table, options ExportOptions) error {
	csvWriter := csv.NewWriter(writer)
	if options.CSVOptions.Delimiter != "" {
		csvWriter.Comma = rune(options.CSVOptions.Delimiter[0])
	}

	if options.IncludeHeaders {
		if err := csvWriter.Write(table.ColumnNames()); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	row := make([]string, table.ColumnCount())
	for i := 0; i < table.RowCount(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, col := range table.Columns {
			v := col.Values[i]
			if v.IsMissing() {
				row[j] = options.CSVOptions.NullValue
				continue
			}
			row[j] = v.String()
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ValidateOptions validates CSV export options
func (ce *CSVExporter) ValidateOptions(options ExportOptions) error {
	if options.CSVOptions.Delimiter != "" && len(options.CSVOptions.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character")
	}
	return nil
}
