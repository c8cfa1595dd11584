package config

// Application constants
const (
	AppName    = "Churn Lab"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces all environment variables (CHURN_TRAINING_SEED, ...)
	EnvPrefix = "CHURN"

	ServiceName = "churnlab"

	// File Paths (relative to the base directory)
	DefaultDataDir    = "data"
	DefaultImagesDir  = "images"
	DefaultReportsDir = "reports"
	DefaultLogsDir    = "logs"

	// Well-known files inside the data directory
	DefaultCustomerFile    = "clean_data_after_eda.csv"
	DefaultPriceFile       = "price_data.csv"
	DefaultTransformedFile = "transformed_data.csv"
	DefaultModelFile       = "model.bin"
	DefaultLedgerFile      = "data/runs.db"

	// Reports written into the reports directory
	ImportanceReportFile = "feature_importance.csv"
	EvaluationReportFile = "evaluation.json"
	DiagnosticsWorkbook  = "diagnostics.xlsx"

	// Feature engineering
	DefaultReferenceDate = "2016-01-01"

	// Training
	DefaultTestFraction = 0.25
	DefaultSeed         = 42
	DefaultNEstimators  = 1000

	MissingPolicyReject = "reject"
	MissingPolicyDrop   = "drop"

	// Log Settings
	DefaultLogLevel = "info"
)
