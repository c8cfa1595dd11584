package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all resolved application paths.
// This is the single source of truth for file locations used by a run.
type Paths struct {
	BaseDir    string
	DataDir    string
	ImagesDir  string
	ReportsDir string
	LogsDir    string

	// Inputs
	CustomerCSV string
	PriceCSV    string

	// Artifacts
	TransformedCSV  string
	ModelFile       string
	ImportanceCSV   string
	EvaluationJSON  string
	DiagnosticsXLSX string
}

// ResolvePaths resolves the configured paths against the base directory.
// An empty base directory means the current working directory.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	dataDir := resolve(base, cfg.DataDir)
	reportsDir := resolve(base, cfg.ReportsDir)

	return &Paths{
		BaseDir:    base,
		DataDir:    dataDir,
		ImagesDir:  resolve(base, cfg.ImagesDir),
		ReportsDir: reportsDir,
		LogsDir:    resolve(base, cfg.LogsDir),

		CustomerCSV: resolve(dataDir, cfg.CustomerFile),
		PriceCSV:    resolve(dataDir, cfg.PriceFile),

		TransformedCSV:  resolve(dataDir, cfg.TransformedFile),
		ModelFile:       resolve(dataDir, cfg.ModelFile),
		ImportanceCSV:   filepath.Join(reportsDir, ImportanceReportFile),
		EvaluationJSON:  filepath.Join(reportsDir, EvaluationReportFile),
		DiagnosticsXLSX: filepath.Join(reportsDir, DiagnosticsWorkbook),
	}, nil
}

// Resolve returns p unchanged when absolute, otherwise joined to the base directory
func (p *Paths) Resolve(path string) string {
	return resolve(p.BaseDir, path)
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// EnsureDirectories creates all output directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ImagesDir,
		p.ReportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ValidateRequiredFiles checks that the input tables exist
func (p *Paths) ValidateRequiredFiles() error {
	for _, f := range []string{p.CustomerCSV, p.PriceCSV} {
		if !FileExists(f) {
			return fmt.Errorf("required input file not found: %s", f)
		}
	}
	return nil
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution() {
	slog.Debug("Resolved paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("customer_csv", p.CustomerCSV),
		slog.String("price_csv", p.PriceCSV),
		slog.String("transformed_csv", p.TransformedCSV),
		slog.String("model_file", p.ModelFile),
		slog.String("reports_dir", p.ReportsDir),
		slog.String("images_dir", p.ImagesDir))
}
