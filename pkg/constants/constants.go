package constants

import "time"

// Application constants
const (
	// Application metadata
	AppName        = "autoeda"
	AppDescription = "Automated CSV data-quality pipeline and watched-folder ingestion"
	AppVersion     = "0.1.0"

	// API constants
	APIPrefix = "/api"

	// Default configuration values
	DefaultPort            = 8000
	DefaultMetricsPort     = 9090
	DefaultHost            = "0.0.0.0"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxUploadBytes  = 256 << 20

	// Storage defaults
	DefaultStorageDir     = "storage"
	DefaultStateFile      = "batch_state.json"
	DefaultStateBackend   = "file"
	DefaultStateKey       = "autoeda:batch_state"
	DefaultStorageTimeout = 10 * time.Second
	OriginalFileName      = "original.csv"
	CleanedFileName       = "cleaned.csv"
	ReportFileName        = "report.json"
)

// Pipeline thresholds
const (
	NumericRatioThreshold      = 0.85
	DateLikeRatioThreshold     = 0.6
	DatetimeRatioThreshold     = 0.85
	CorrelationThreshold       = 0.9
	SkewThreshold              = 1.0
	IQRMultiplier              = 1.5
	TopValuesLimit             = 5
	CorrelationDetailLimit     = 20
	ProfileDecimals            = 6
	MissingPctDecimals         = 2
	ConfidenceDecimals         = 3
	CorrelationDecimals        = 4
	UnknownCategoryPlaceholder = "unknown"
)

// Batch scheduling
const (
	MaxRunHistory      = 300
	MinPollSeconds     = 10
	MaxPollSeconds     = 86400
	DefaultPollSeconds = 300
	SchedulerTick      = 1 * time.Second
	SchedulerStopWait  = 5 * time.Second
	DefaultRunsLimit   = 30
	MaxRunsLimit       = 200
	IngestibleExt      = ".csv"
	JobNamePrefix      = "Batch Job "
)

// Query limits
const (
	MaxQueryRows     = 500
	DatasetTableName = "dataset"
	SQLEngineName    = "sqlite"
)

// Environment variables
const (
	EnvPrefix     = "AUTOEDA"
	EnvStorageDir = "EDA_STORAGE_DIR"
)

// HTTP headers
const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-ID"
)
