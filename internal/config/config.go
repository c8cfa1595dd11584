package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Features  FeaturesConfig  `yaml:"features" envconfig:"FEATURES"`
	Training  TrainingConfig  `yaml:"training" envconfig:"TRAINING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration. Relative entries
// are resolved against BaseDir.
type PathsConfig struct {
	BaseDir         string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir         string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ImagesDir       string `yaml:"images_dir" envconfig:"IMAGES_DIR" validate:"required"`
	ReportsDir      string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
	LogsDir         string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
	CustomerFile    string `yaml:"customer_file" envconfig:"CUSTOMER_FILE" validate:"required"`
	PriceFile       string `yaml:"price_file" envconfig:"PRICE_FILE" validate:"required"`
	TransformedFile string `yaml:"transformed_file" envconfig:"TRANSFORMED_FILE" validate:"required"`
	ModelFile       string `yaml:"model_file" envconfig:"MODEL_FILE" validate:"required"`
}

// FeaturesConfig contains feature engineering configuration
type FeaturesConfig struct {
	// ReferenceDate anchors the months_* contract features (YYYY-MM-DD)
	ReferenceDate string `yaml:"reference_date" envconfig:"REFERENCE_DATE" validate:"required,datetime=2006-01-02"`
}

// TrainingConfig contains classifier training configuration
type TrainingConfig struct {
	TestFraction    float64 `yaml:"test_fraction" envconfig:"TEST_FRACTION" validate:"gt=0,lt=1"`
	Seed            int64   `yaml:"seed" envconfig:"SEED"`
	NEstimators     int     `yaml:"n_estimators" envconfig:"N_ESTIMATORS" validate:"min=1"`
	MaxDepth        int     `yaml:"max_depth" envconfig:"MAX_DEPTH" validate:"min=0"`
	MinSamplesSplit int     `yaml:"min_samples_split" envconfig:"MIN_SAMPLES_SPLIT" validate:"min=2"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf" envconfig:"MIN_SAMPLES_LEAF" validate:"min=1"`
	MaxFeatures     string  `yaml:"max_features" envconfig:"MAX_FEATURES" validate:"oneof=sqrt log2 all"`
	Workers         int     `yaml:"workers" envconfig:"WORKERS" validate:"min=0"`
	MissingPolicy   string  `yaml:"missing_policy" envconfig:"MISSING_POLICY" validate:"oneof=reject drop"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	// MetricsFile is a Prometheus textfile written at the end of a run; empty disables it
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// StoreConfig contains run ledger configuration
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Path    string `yaml:"path" envconfig:"LEDGER_PATH" validate:"required_if=Enabled true"`
}

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. An empty
// configFile searches the usual locations.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg; keys absent from the file keep their values
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct-level constraints and normalises logging settings
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	// Always JSON
	c.Logging.Format = "json"
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/churn.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   "json",
			Output:   "both",
			FilePath: "logs/churn.log",
		},
		Paths: PathsConfig{
			DataDir:         DefaultDataDir,
			ImagesDir:       DefaultImagesDir,
			ReportsDir:      DefaultReportsDir,
			LogsDir:         DefaultLogsDir,
			CustomerFile:    DefaultCustomerFile,
			PriceFile:       DefaultPriceFile,
			TransformedFile: DefaultTransformedFile,
			ModelFile:       DefaultModelFile,
		},
		Features: FeaturesConfig{
			ReferenceDate: DefaultReferenceDate,
		},
		Training: TrainingConfig{
			TestFraction:    DefaultTestFraction,
			Seed:            DefaultSeed,
			NEstimators:     DefaultNEstimators,
			MaxDepth:        0,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
			MaxFeatures:     "sqrt",
			Workers:         0,
			MissingPolicy:   MissingPolicyReject,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   ServiceName,
			Environment:   "development",
			TraceExporter: "none",
			SampleRatio:   1.0,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    DefaultLedgerFile,
		},
	}
}
