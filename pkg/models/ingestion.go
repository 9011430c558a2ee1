package models

import "time"

// Ingestion modes
const (
	IngestModeUpload = "upload"
	IngestModeBatch  = "batch"
)

// IngestOptions controls a single ingestion
type IngestOptions struct {
	AutoFix    bool
	Mode       string
	SourcePath string
	JobID      string
}

// IngestionInfo is the ingestion metadata stamped into a report
type IngestionInfo struct {
	Mode       string  `json:"mode"`
	AutoFix    bool    `json:"auto_fix"`
	SourcePath *string `json:"source_path"`
	JobID      *string `json:"job_id"`
}

// IngestResult is returned by a successful ingestion
type IngestResult struct {
	DatasetID        string            `json:"dataset_id"`
	Report           *QualityReport    `json:"report"`
	Benchmark        *BenchmarkResult  `json:"benchmark"`
	QuerySuggestions []QuerySuggestion `json:"query_suggestions"`
	CleanedPath      string            `json:"cleaned_path"`
}

// BenchmarkResult compares an aggregate computed in memory with the same
// aggregate computed by the SQL engine
type BenchmarkResult struct {
	Query      string                 `json:"query"`
	InMemoryMS float64                `json:"in_memory_ms"`
	SQLMS      float64                `json:"sql_ms"`
	InMemory   map[string]interface{} `json:"in_memory_result"`
	SQL        map[string]interface{} `json:"sql_result"`
	SQLEngine  string                 `json:"sql_engine"`
}

// QuerySuggestion is a ready-to-run SQL statement over the dataset table
type QuerySuggestion struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// QueryResult is the tabular result of an ad-hoc query. Rows may be capped;
// RowCount is the full result size.
type QueryResult struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
	Engine   string          `json:"engine"`
}

// DatasetSummary is a listing entry for a stored dataset
type DatasetSummary struct {
	DatasetID string     `json:"dataset_id"`
	Rows      *int       `json:"rows"`
	Columns   *int       `json:"columns"`
	CreatedAt *time.Time `json:"created_at"`
}
