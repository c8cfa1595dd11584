package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"churnlab/internal/classifier"
)

// ImportanceHeaders are the columns of the feature-importance report
var ImportanceHeaders = []string{"rank", "feature", "importance"}

// WriteImportance writes the feature ranking, most important first
func (w *CSVWriter) WriteImportance(filePath string, scores []classifier.FeatureScore) error {
	records := make([][]string, len(scores))
	for i := range scores {
		s := scores[len(scores)-1-i]
		records[i] = []string{formatInt(i + 1), s.Name, formatScore(s.Score)}
	}
	return w.WriteSimpleCSV(filePath, ImportanceHeaders, records)
}

// RunSummary is the JSON evaluation report of one pipeline run
type RunSummary struct {
	RunID        string                    `json:"run_id"`
	StartedAt    time.Time                 `json:"started_at"`
	FinishedAt   time.Time                 `json:"finished_at"`
	Customers    int                       `json:"customers"`
	Excluded     int                       `json:"excluded_customers"`
	Dropped      int                       `json:"dropped_rows"`
	Features     int                       `json:"features"`
	TrainRows    int                       `json:"train_rows"`
	TestRows     int                       `json:"test_rows"`
	Trees        int                       `json:"trees"`
	Seed         int64                     `json:"seed"`
	Evaluation   *classifier.Evaluation    `json:"evaluation"`
	TopFeatures  []classifier.FeatureScore `json:"top_features"`
	ModelPath    string                    `json:"model_path"`
	MatrixPath   string                    `json:"matrix_path"`
	WorkbookPath string                    `json:"workbook_path,omitempty"`
}

// WriteSummary writes s as indented JSON
func (w *CSVWriter) WriteSummary(filePath string, s *RunSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	fullPath := w.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(fullPath, append(data, '\n'), 0644)
}

// TopFeatures returns the n highest scoring features, most important first,
// from an ascending ranking
func TopFeatures(scores []classifier.FeatureScore, n int) []classifier.FeatureScore {
	if n > len(scores) {
		n = len(scores)
	}
	top := make([]classifier.FeatureScore, 0, n)
	for i := len(scores) - 1; i >= len(scores)-n; i-- {
		top = append(top, scores[i])
	}
	return top
}
