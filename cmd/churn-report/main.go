package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churnlab/internal/classifier"
	"churnlab/internal/config"
	apperrors "churnlab/internal/errors"
	"churnlab/internal/exporter"
	"churnlab/internal/infrastructure"
	"churnlab/internal/operations"
	"churnlab/internal/report"
	"churnlab/internal/store"
)

// Set at build time through -ldflags
var (
	Version   = config.AppVersion
	BuildTime = ""
)

func main() {
	os.Exit(execute())
}

// execute returns the process exit code so deferred cleanup runs first
func execute() int {
	configFile := flag.String("config", "", "path to config.yaml (defaults to the usual locations)")
	baseDir := flag.String("base-dir", "", "directory the relative paths are resolved against")
	trees := flag.Int("trees", 0, "number of trees in the forest (overrides config)")
	seed := flag.Int64("seed", -1, "random seed for split and forest (overrides config)")
	workers := flag.Int("workers", -1, "concurrent tree builders, 0 for one per CPU (overrides config)")
	history := flag.Int("history", 0, "print the last N recorded runs and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s %s\n", config.AppName, Version, BuildTime)
		return 0
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}
	if *baseDir != "" {
		cfg.Paths.BaseDir = *baseDir
	}
	if *trees > 0 {
		cfg.Training.NEstimators = *trees
	}
	if *seed >= 0 {
		cfg.Training.Seed = *seed
	}
	if *workers >= 0 {
		cfg.Training.Workers = *workers
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		slog.Error("Failed to resolve paths", "error", err)
		return 1
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create directories", "error", err)
		return 1
	}

	cfg.Logging.FilePath = paths.Resolve(cfg.Logging.FilePath)
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		return 1
	}
	defer infrastructure.CloseLogFile()
	paths.LogPathResolution()

	var ledger *store.Ledger
	if cfg.Store.Enabled {
		ledger, err = store.Open(paths.Resolve(cfg.Store.Path))
		if err != nil {
			logger.Error("Failed to open run ledger", infrastructure.ErrorAttrs(err)...)
			return 1
		}
		defer ledger.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *history > 0 {
		if err := printHistory(ctx, ledger, *history); err != nil {
			logger.Error("Failed to list runs", infrastructure.ErrorAttrs(err)...)
			return 1
		}
		return 0
	}

	if err := paths.ValidateRequiredFiles(); err != nil {
		logger.Error("Input tables not found",
			"error", err,
			"hint", "place the customer and price tables in "+paths.DataDir)
		return 1
	}

	return run(ctx, cfg, paths, ledger, logger)
}

func run(ctx context.Context, cfg *config.Config, paths *config.Paths, ledger *store.Ledger, logger *slog.Logger) int {
	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		logger.Error("Failed to create pipeline tracer", "error", err)
		return 1
	}

	workbook, err := report.NewWorkbook(logger)
	if err != nil {
		logger.Error("Failed to create diagnostics workbook", "error", err)
		return 1
	}
	defer workbook.Close()

	pipeline, err := operations.NewPipeline(&operations.StepOptions{
		Config:     cfg,
		Paths:      paths,
		Writer:     exporter.NewCSVWriter(paths),
		Reporter:   workbook,
		Serializer: classifier.NewGobSerializer(),
		Ledger:     ledger,
		Logger:     logger,
	}, nil, tracer)
	if err != nil {
		logger.Error("Failed to build pipeline", "error", err)
		return 1
	}

	ctx = infrastructure.EnsureRunID(ctx)
	logger.InfoContext(ctx, "Starting churn pipeline",
		slog.String("customers", paths.CustomerCSV),
		slog.String("prices", paths.PriceCSV),
		slog.Int("trees", cfg.Training.NEstimators),
		slog.Int64("seed", cfg.Training.Seed))

	resp, runErr := pipeline.Run(ctx)

	if cfg.Telemetry.MetricsFile != "" {
		metricsPath := paths.Resolve(cfg.Telemetry.MetricsFile)
		if err := providers.WriteMetricsFile(metricsPath); err != nil {
			logger.Warn("Failed to write metrics file", "path", metricsPath, "error", err)
		}
	}

	if runErr != nil {
		printFailure(runErr)
		return 1
	}

	summary, err := operations.ContextValue[*exporter.RunSummary](resp.State, operations.ContextKeySummary)
	if err != nil {
		logger.Error("Run finished without a summary", "error", err)
		return 1
	}
	logger.InfoContext(ctx, "Churn pipeline finished",
		slog.Duration("duration", resp.Duration),
		slog.String("summary", paths.EvaluationJSON))
	printSummaryStats(summary)
	return 0
}

func printFailure(err error) {
	fmt.Fprintln(os.Stderr, "\n=== RUN FAILED ===")
	if step := operations.FailedStep(err); step != "" {
		fmt.Fprintf(os.Stderr, "Step:   %s\n", step)
	}
	if located := apperrors.Locate(err); located != nil {
		fmt.Fprintf(os.Stderr, "Type:   %s\n", located.Type)
		if located.Record != "" {
			fmt.Fprintf(os.Stderr, "Record: %s\n", located.Record)
		}
		if located.Column != "" {
			fmt.Fprintf(os.Stderr, "Column: %s\n", located.Column)
		}
	}
	fmt.Fprintf(os.Stderr, "Error:  %v\n", err)
}

func printSummaryStats(s *exporter.RunSummary) {
	fmt.Println("\n=== CHURN MODEL EVALUATION ===")
	fmt.Printf("Customers: %d (excluded %d, dropped %d)\n", s.Customers, s.Excluded, s.Dropped)
	fmt.Printf("Features:  %d | Train: %d | Test: %d | Trees: %d | Seed: %d\n",
		s.Features, s.TrainRows, s.TestRows, s.Trees, s.Seed)

	if e := s.Evaluation; e != nil {
		fmt.Println("\n         | Predicted 1 | Predicted 0")
		fmt.Println("---------|-------------|------------")
		fmt.Printf("Actual 1 | %11d | %11d\n", e.Confusion.TP, e.Confusion.FN)
		fmt.Printf("Actual 0 | %11d | %11d\n", e.Confusion.FP, e.Confusion.TN)
		fmt.Printf("\nAccuracy: %.4f | Precision: %.4f | Recall: %.4f\n", e.Accuracy, e.Precision, e.Recall)
	}

	if len(s.TopFeatures) > 0 {
		fmt.Printf("\n=== TOP %d FEATURES ===\n", len(s.TopFeatures))
		fmt.Println("Rank | Importance | Feature")
		fmt.Println("-----|------------|--------")
		for i, f := range s.TopFeatures {
			fmt.Printf("%4d | %10.4f | %s\n", i+1, f.Score, f.Name)
		}
	}

	fmt.Println("\n=== ARTIFACTS ===")
	fmt.Printf("Model:    %s\n", s.ModelPath)
	fmt.Printf("Matrix:   %s\n", s.MatrixPath)
	if s.WorkbookPath != "" {
		fmt.Printf("Workbook: %s\n", s.WorkbookPath)
	}
}

func printHistory(ctx context.Context, ledger *store.Ledger, limit int) error {
	if ledger == nil {
		return fmt.Errorf("run ledger is disabled")
	}
	runs, err := ledger.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Println("Started             | Status    | Trees | Accuracy | Recall | Failed Step")
	fmt.Println("--------------------|-----------|-------|----------|--------|------------")
	for _, r := range runs {
		fmt.Printf("%-19s | %-9s | %5d | %8s | %6s | %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.Trees,
			optional(r.Accuracy), optional(r.Recall), r.FailedStage)
	}
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}
