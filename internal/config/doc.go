// Package config provides centralized configuration management for the churn
// pipeline. It loads configuration from multiple sources, validates it, and
// resolves every file location a run reads or writes.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CHURN_<SECTION>_<FIELD>:
//
//	CHURN_LOGGING_LEVEL=debug
//	CHURN_PATHS_BASE_DIR=/srv/churn
//	CHURN_TRAINING_N_ESTIMATORS=500
//	CHURN_TRAINING_MISSING_POLICY=drop
//	CHURN_TELEMETRY_METRICS_FILE=reports/churn.prom
//
// # Path Management
//
// ResolvePaths turns the relative PathsConfig entries into absolute input and
// artifact locations:
//
//	paths, err := config.ResolvePaths(cfg.Paths)
//	model := paths.ModelFile
//
// # Validation
//
// Struct tags are checked with go-playground/validator at load time, so a run
// never starts with an out-of-range test fraction or an unknown policy.
package config
