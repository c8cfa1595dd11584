package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"churnlab/internal/config"
	apperrors "churnlab/internal/errors"
)

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "nested", "churn.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if logger == nil {
		t.Fatal("Logger is nil")
	}
	if GetLogger() != logger {
		t.Error("GetLogger did not return the initialized logger")
	}

	logger.Info("test message", "key", "value")
	CloseLogFile()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("Expected msg='test message', got %v", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("Expected key='value', got %v", entry["key"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("Expected level='INFO', got %v", entry["level"])
	}
	if _, ok := entry["source"]; !ok {
		t.Error("Expected source location in log entry")
	}
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "console"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("Second initialization replaced the logger")
	}
}

func TestRunIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelInfo)

	ctx := WithRunID(context.Background(), "run-123")
	logger.InfoContext(ctx, "with run")
	logger.Info("without run")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}

	var withRun, withoutRun map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &withRun); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &withoutRun); err != nil {
		t.Fatal(err)
	}

	if withRun["run_id"] != "run-123" {
		t.Errorf("Expected run_id='run-123', got %v", withRun["run_id"])
	}
	if _, ok := withoutRun["run_id"]; ok {
		t.Error("Unexpected run_id without context value")
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := parseLogLevel(tt.level); got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}

	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("Info message logged at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("Warn message missing")
	}
}

func TestRunIDHelpers(t *testing.T) {
	ctx := EnsureRunID(context.Background())
	id := GetRunID(ctx)
	if id == "" {
		t.Fatal("EnsureRunID did not set a run id")
	}
	if got := GetRunID(EnsureRunID(ctx)); got != id {
		t.Errorf("EnsureRunID replaced existing id %s with %s", id, got)
	}
	if GenerateRunID() == GenerateRunID() {
		t.Error("Run ids are not unique")
	}
	if GetRunID(context.Background()) != "" {
		t.Error("Expected empty run id")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelInfo)

	err := apperrors.NewInputFormatError("bad number", nil).
		WithStage("load").
		WithRecord("cust-7").
		WithColumn("cons_12m")
	WithError(WithComponent(logger, "loader"), err).Error("failed")

	var entry map[string]interface{}
	if jerr := json.Unmarshal(buf.Bytes(), &entry); jerr != nil {
		t.Fatal(jerr)
	}

	want := map[string]string{
		"component":  "loader",
		"error_type": "INPUT_FORMAT",
		"stage":      "load",
		"record":     "cust-7",
		"column":     "cons_12m",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("Expected %s=%q, got %v", k, v, entry[k])
		}
	}

	if WithError(logger, nil) != logger {
		t.Error("WithError(nil) should return the logger unchanged")
	}

	attrs := ErrorAttrs(errors.New("plain"))
	if len(attrs) != 2 {
		t.Errorf("Expected only the error message for a plain error, got %v", attrs)
	}
}
