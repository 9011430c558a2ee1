package interfaces

import (
	"context"

	"github.com/inferloop/autoeda/pkg/models"
)

// Ingester turns raw CSV bytes into a stored, cleaned dataset. Batch runs
// depend only on this contract.
type Ingester interface {
	Ingest(ctx context.Context, raw []byte, filename string, opts models.IngestOptions) (*models.IngestResult, error)
}

// TableCleaner runs the data-quality pipeline over a table
type TableCleaner interface {
	Run(ctx context.Context, table *models.Table, autoFix bool) (*models.Table, *models.QualityReport, error)
}
