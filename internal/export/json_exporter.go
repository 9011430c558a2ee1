package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/inferloop/autoeda/pkg/models"
)

// JSONExporter writes a table as an array of row objects, or as JSON lines
type JSONExporter struct{}

// Name returns the exporter name
func (je *JSONExporter) Name() string {
	return "json"
}

// Format returns the exported format
func (je *JSONExporter) Format() ExportFormat {
	return FormatJSON
}

// Export writes one object per row keyed by column name. Missing cells are null.
func (je *JSONExporter) Export(ctx context.Context, writer io.Writer, table *models.Table, options ExportOptions) error {
	encoder := json.NewEncoder(writer)
	if options.JSONOptions.Pretty && !options.JSONOptions.StreamLines {
		encoder.SetIndent("", "  ")
	}

	rows := make([]map[string]interface{}, 0, table.RowCount())
	for i := 0; i < table.RowCount(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := RowObject(table, i)
		if options.JSONOptions.StreamLines {
			if err := encoder.Encode(rec); err != nil {
				return err
			}
			continue
		}
		rows = append(rows, rec)
	}

	if options.JSONOptions.StreamLines {
		return nil
	}
	return encoder.Encode(rows)
}

// ValidateOptions validates JSON export options
func (je *JSONExporter) ValidateOptions(options ExportOptions) error {
	return nil
}

// RowObject returns row i as a column-name keyed map
func RowObject(table *models.Table, i int) map[string]interface{} {
	rec := make(map[string]interface{}, table.ColumnCount())
	for _, col := range table.Columns {
		rec[col.Name] = col.Values[i].Interface()
	}
	return rec
}
