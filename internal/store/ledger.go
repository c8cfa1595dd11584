package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "churnlab/internal/errors"
)

// Run statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one pipeline execution as kept in the ledger. Metrics are nil when
// the run failed before evaluation or when they were undefined.
type Run struct {
	ID         string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time

	Customers int
	Features  int
	TrainRows int
	TestRows  int
	Trees     int
	Seed      int64

	TP, FP, TN, FN int
	Accuracy       *float64
	Precision      *float64
	Recall         *float64

	ModelPath   string
	FailedStage string
	Error       string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	customers INTEGER NOT NULL,
	features INTEGER NOT NULL,
	train_rows INTEGER NOT NULL,
	test_rows INTEGER NOT NULL,
	trees INTEGER NOT NULL,
	seed INTEGER NOT NULL,
	tp INTEGER NOT NULL,
	fp INTEGER NOT NULL,
	tn INTEGER NOT NULL,
	fn INTEGER NOT NULL,
	accuracy REAL,
	precision REAL,
	recall REAL,
	model_path TEXT,
	failed_stage TEXT,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
`

// Ledger records pipeline runs in a SQLite database. A nil *Ledger is a
// valid, disabled ledger: it records nothing and lists no runs.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create ledger directory", err).WithContext("path", path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open ledger", err).WithContext("path", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to create ledger schema", err).WithContext("path", path)
	}
	return &Ledger{db: db}, nil
}

// RecordRun inserts run, replacing any earlier record with the same id
func (l *Ledger) RecordRun(ctx context.Context, run Run) error {
	if l == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, status, started_at, finished_at,
			customers, features, train_rows, test_rows, trees, seed,
			tp, fp, tn, fn, accuracy, precision, recall,
			model_path, failed_stage, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Status, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Customers, run.Features, run.TrainRows, run.TestRows, run.Trees, run.Seed,
		run.TP, run.FP, run.TN, run.FN,
		nullFloat(run.Accuracy), nullFloat(run.Precision), nullFloat(run.Recall),
		nullString(run.ModelPath), nullString(run.FailedStage), nullString(run.Error))
	if err != nil {
		return apperrors.NewStorageError("failed to record run", err).WithRecord(run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs first; limit <= 0 returns all
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if l == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, status, started_at, finished_at,
			customers, features, train_rows, test_rows, trees, seed,
			tp, fp, tn, fn, accuracy, precision, recall,
			model_path, failed_stage, error_message
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                           Run
			accuracy, precision, recall sql.NullFloat64
			modelPath, stage, message   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Status, &r.StartedAt, &r.FinishedAt,
			&r.Customers, &r.Features, &r.TrainRows, &r.TestRows, &r.Trees, &r.Seed,
			&r.TP, &r.FP, &r.TN, &r.FN, &accuracy, &precision, &recall,
			&modelPath, &stage, &message); err != nil {
			return nil, apperrors.NewStorageError("failed to read run", err)
		}
		r.Accuracy = floatPtr(accuracy)
		r.Precision = floatPtr(precision)
		r.Recall = floatPtr(recall)
		r.ModelPath = modelPath.String
		r.FailedStage = stage.String
		r.Error = message.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to list runs", err)
	}
	return runs, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
