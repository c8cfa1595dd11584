package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestLedger_RecordAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "runs.db")
	ledger, err := Open(path)
	require.NoError(t, err)
	defer ledger.Close()

	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ok := Run{
		ID:         "run-1",
		Status:     StatusSucceeded,
		StartedAt:  base,
		FinishedAt: base.Add(time.Minute),
		Customers:  100,
		Features:   60,
		TrainRows:  75,
		TestRows:   25,
		Trees:      1000,
		Seed:       42,
		TP:         7,
		FP:         3,
		TN:         8,
		FN:         2,
		Accuracy:   ptr(0.75),
		Precision:  ptr(0.7),
		Recall:     ptr(7.0 / 9.0),
		ModelPath:  "/tmp/model.bin",
	}
	failed := Run{
		ID:          "run-2",
		Status:      StatusFailed,
		StartedAt:   base.Add(time.Hour),
		FinishedAt:  base.Add(time.Hour + time.Second),
		Seed:        42,
		FailedStage: "features",
		Error:       "[NUMERIC_DOMAIN] log10 of value below -1",
	}
	require.NoError(t, ledger.RecordRun(ctx, ok))
	require.NoError(t, ledger.RecordRun(ctx, failed))

	runs, err := ledger.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID, "most recent first")
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Nil(t, runs[0].Accuracy)
	assert.Nil(t, runs[0].Precision)
	assert.Equal(t, "features", runs[0].FailedStage)
	assert.Equal(t, failed.Error, runs[0].Error)

	got := runs[1]
	assert.Equal(t, ok.TP, got.TP)
	assert.Equal(t, ok.FN, got.FN)
	assert.Equal(t, int64(42), got.Seed)
	require.NotNil(t, got.Recall)
	assert.InDelta(t, 7.0/9.0, *got.Recall, 1e-12)
	assert.True(t, ok.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, ok.ModelPath, got.ModelPath)
	assert.Empty(t, got.Error)

	limited, err := ledger.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLedger_ReplaceAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	ledger, err := Open(path)
	require.NoError(t, err)
	run := Run{ID: "run-1", Status: StatusFailed, StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, ledger.RecordRun(ctx, run))
	run.Status = StatusSucceeded
	require.NoError(t, ledger.RecordRun(ctx, run))
	require.NoError(t, ledger.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusSucceeded, runs[0].Status)
}

func TestLedger_NilIsDisabled(t *testing.T) {
	var ledger *Ledger
	ctx := context.Background()

	assert.NoError(t, ledger.RecordRun(ctx, Run{ID: "x"}))
	runs, err := ledger.ListRuns(ctx, 5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, ledger.Close())
}
