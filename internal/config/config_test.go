package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars or file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0.25, cfg.Training.TestFraction)
				assert.Equal(t, int64(42), cfg.Training.Seed)
				assert.Equal(t, 1000, cfg.Training.NEstimators)
				assert.Equal(t, MissingPolicyReject, cfg.Training.MissingPolicy)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "2016-01-01", cfg.Features.ReferenceDate)
			},
		},
		{
			name: "file overrides defaults",
			fileContent: `
training:
  n_estimators: 50
  missing_policy: drop
paths:
  data_dir: input
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 50, cfg.Training.NEstimators)
				assert.Equal(t, MissingPolicyDrop, cfg.Training.MissingPolicy)
				assert.Equal(t, "input", cfg.Paths.DataDir)
				// untouched keys keep defaults
				assert.Equal(t, DefaultPriceFile, cfg.Paths.PriceFile)
			},
		},
		{
			name: "env overrides file",
			env: map[string]string{
				"CHURN_TRAINING_N_ESTIMATORS": "25",
				"CHURN_LOGGING_LEVEL":         "debug",
			},
			fileContent: `
training:
  n_estimators: 50
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 25, cfg.Training.NEstimators)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name: "invalid test fraction",
			env: map[string]string{
				"CHURN_TRAINING_TEST_FRACTION": "1.5",
			},
			wantErr: true,
		},
		{
			name: "invalid missing policy",
			fileContent: `
training:
  missing_policy: impute
`,
			wantErr: true,
		},
		{
			name: "invalid reference date",
			env: map[string]string{
				"CHURN_FEATURES_REFERENCE_DATE": "01/01/2016",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			configFile := ""
			if tt.fileContent != "" {
				configFile = filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(configFile, []byte(tt.fileContent), 0644))
			} else {
				// Point at an explicit empty file so a stray config.yaml in the
				// working directory cannot leak into the test.
				configFile = filepath.Join(t.TempDir(), "empty.yaml")
				require.NoError(t, os.WriteFile(configFile, nil, 0644))
			}

			cfg, err := Load(configFile)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})

	t.Run("store path required when enabled", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Path = ""
		assert.Error(t, cfg.Validate())

		cfg.Store.Enabled = false
		assert.NoError(t, cfg.Validate())
	})

	t.Run("logging format forced to json", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Format = "text"
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "json", cfg.Logging.Format)
	})
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default().Paths
	cfg.BaseDir = base

	paths, err := ResolvePaths(cfg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "data", DefaultCustomerFile), paths.CustomerCSV)
	assert.Equal(t, filepath.Join(base, "data", DefaultModelFile), paths.ModelFile)
	assert.Equal(t, filepath.Join(base, "reports", ImportanceReportFile), paths.ImportanceCSV)

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.DataDir, paths.ImagesDir, paths.ReportsDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	assert.Error(t, paths.ValidateRequiredFiles())
	require.NoError(t, os.WriteFile(paths.CustomerCSV, []byte("id\n"), 0644))
	require.NoError(t, os.WriteFile(paths.PriceCSV, []byte("id\n"), 0644))
	assert.NoError(t, paths.ValidateRequiredFiles())
}

func TestResolvePaths_AbsoluteEntries(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "customers.csv")
	cfg := Default().Paths
	cfg.BaseDir = t.TempDir()
	cfg.CustomerFile = abs

	paths, err := ResolvePaths(cfg)
	require.NoError(t, err)
	assert.Equal(t, abs, paths.CustomerCSV)
}
