package models

import (
	"encoding/json"
	"time"
)

// Fix operation names, in pipeline order
const (
	OpTypeInference       = "auto_type_inference"
	OpFillMissing         = "fill_missing_values"
	OpRemoveDuplicates    = "remove_duplicate_rows"
	OpCapOutliers         = "cap_outliers_iqr"
	OpNormalizeText       = "normalize_categorical_text"
	OpLogTransformSkewed  = "log_transform_skewed_features"
	OpCorrelationDetector = "high_correlation_feature_detection"
)

// TricksCovered lists the data-quality techniques a pipeline run applies
var TricksCovered = []string{
	"missing-value detection and imputation",
	"duplicate row detection and removal",
	"IQR-based outlier capping",
	"inconsistent text category normalization",
	"automatic data-type inference",
	"skewness correction using log1p",
	"redundant feature detection with correlation",
}

// ColumnProfile summarises one column
type ColumnProfile struct {
	Name       string     `json:"name"`
	DType      ColumnType `json:"dtype"`
	Missing    int        `json:"missing"`
	MissingPct float64    `json:"missing_pct"`
	Distinct   int        `json:"unique"`
}

// NumericSummary holds moments of a numeric column. Nil fields are undefined
// for the column and serialise as null.
type NumericSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Skew   *float64 `json:"skew"`
}

// TopValue is one entry of a value frequency table
type TopValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalSummary holds the most frequent values of a text or boolean column
type CategoricalSummary struct {
	Column    string     `json:"column"`
	TopValues []TopValue `json:"top_values"`
}

// CorrelationPair is a pair of numeric columns with high absolute correlation
type CorrelationPair struct {
	FeatureA    string  `json:"feature_a"`
	FeatureB    string  `json:"feature_b"`
	Correlation float64 `json:"correlation"`
}

// Profile is a structural and statistical snapshot of a table
type Profile struct {
	Rows                 int                  `json:"rows"`
	Columns              int                  `json:"columns"`
	DuplicateRows        int                  `json:"duplicate_rows"`
	MissingCells         int                  `json:"missing_cells"`
	ColumnProfile        []ColumnProfile      `json:"column_profile"`
	NumericSummary       []NumericSummary     `json:"numeric_summary"`
	CategoricalSummary   []CategoricalSummary `json:"categorical_summary"`
	HighCorrelationPairs []CorrelationPair    `json:"high_correlation_pairs"`
}

// TypeConversion records a column whose type was changed by inference
type TypeConversion struct {
	Column     string     `json:"column"`
	From       ColumnType `json:"from"`
	To         ColumnType `json:"to"`
	Confidence float64    `json:"confidence"`
}

// FixRecord is the outcome of one pipeline stage. Only the detail field that
// matches the operation is populated.
type FixRecord struct {
	Operation      string
	ColumnsTouched int
	RowsImpacted   int

	ColumnCounts map[string]int
	Columns      []string
	Conversions  []TypeConversion
	Pairs        []CorrelationPair
	PairsFound   int
}

// MarshalJSON renders the record with a single "detail" member shaped by the
// operation
func (f FixRecord) MarshalJSON() ([]byte, error) {
	out := struct {
		Operation      string      `json:"operation"`
		ColumnsTouched *int        `json:"columns_touched,omitempty"`
		RowsImpacted   *int        `json:"rows_impacted,omitempty"`
		PairsFound     *int        `json:"pairs_found,omitempty"`
		Detail         interface{} `json:"detail"`
	}{Operation: f.Operation}

	touched, rows, pairs := f.ColumnsTouched, f.RowsImpacted, f.PairsFound
	switch f.Operation {
	case OpTypeInference:
		out.ColumnsTouched = &touched
		out.Detail = nonNilConversions(f.Conversions)
	case OpLogTransformSkewed:
		out.ColumnsTouched = &touched
		out.Detail = nonNilStrings(f.Columns)
	case OpCorrelationDetector:
		out.PairsFound = &pairs
		out.Detail = nonNilPairs(f.Pairs)
	case OpRemoveDuplicates:
		out.ColumnsTouched = &touched
		out.RowsImpacted = &rows
		out.Detail = map[string]int{"duplicates_removed": rows}
	default:
		out.ColumnsTouched = &touched
		out.RowsImpacted = &rows
		counts := f.ColumnCounts
		if counts == nil {
			counts = map[string]int{}
		}
		out.Detail = counts
	}
	return json.Marshal(out)
}

func nonNilConversions(v []TypeConversion) []TypeConversion {
	if v == nil {
		return []TypeConversion{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilPairs(v []CorrelationPair) []CorrelationPair {
	if v == nil {
		return []CorrelationPair{}
	}
	return v
}

// QualityDelta compares defect counts before and after the pipeline
type QualityDelta struct {
	DuplicateRowsBefore int `json:"duplicate_rows_before"`
	DuplicateRowsAfter  int `json:"duplicate_rows_after"`
	MissingCellsBefore  int `json:"missing_cells_before"`
	MissingCellsAfter   int `json:"missing_cells_after"`
}

// QualityReport is the audit trail of one pipeline run. Ingestion metadata,
// benchmark and query suggestions are attached by the ingestion service.
type QualityReport struct {
	TricksCovered   []string         `json:"tricks_covered"`
	Before          *Profile         `json:"before"`
	After           *Profile         `json:"after"`
	TypeConversions []TypeConversion `json:"type_conversions"`
	FixesApplied    []FixRecord      `json:"fixes_applied"`
	QualityDelta    QualityDelta     `json:"quality_delta"`
	AutoFix         bool             `json:"auto_fix"`

	CreatedAt        *time.Time        `json:"created_at,omitempty"`
	SourceFile       string            `json:"source_file,omitempty"`
	Ingestion        *IngestionInfo    `json:"ingestion,omitempty"`
	Benchmark        *BenchmarkResult  `json:"benchmark,omitempty"`
	QuerySuggestions []QuerySuggestion `json:"query_suggestions,omitempty"`
}

// Fix returns the record for the named operation
func (r *QualityReport) Fix(operation string) (FixRecord, bool) {
	for _, f := range r.FixesApplied {
		if f.Operation == operation {
			return f, true
		}
	}
	return FixRecord{}, false
}
