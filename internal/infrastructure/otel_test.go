package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnlab/internal/config"
	apperrors "churnlab/internal/errors"
)

func TestInitializeOTel_NoTracing(t *testing.T) {
	providers, err := InitializeOTel(NewOTelConfig(config.Default().Telemetry), nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.Nil(t, providers.TracerProvider)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Registry)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestInitializeOTel_StdoutTracing(t *testing.T) {
	var buf bytes.Buffer
	cfg := &OTelConfig{
		ServiceName:    "churnlab-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "stdout",
		SampleRatio:    1.0,
		TraceWriter:    &buf,
	}

	providers, err := InitializeOTel(cfg, nil)
	require.NoError(t, err)

	ctx, span := providers.Tracer.Start(context.Background(), "pipeline.features")
	assert.True(t, span.IsRecording())
	SetSpanAttributes(ctx, map[string]interface{}{"rows": 12, "policy": "reject"})
	AddSpanEvent(ctx, "customers.excluded", map[string]interface{}{"count": int64(3)})
	RecordError(ctx, apperrors.NewJoinIntegrityError("duplicate id").WithRecord("c1"))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "pipeline.features")
	assert.Contains(t, out, "customers.excluded")
	assert.Contains(t, out, "JOIN_INTEGRITY")
	assert.Contains(t, out, "churnlab-test")
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{ServiceName: "x", TraceExporter: "otlp"}, nil)
	assert.Error(t, err)
}

func TestPipelineMetrics_WriteMetricsFile(t *testing.T) {
	providers, err := InitializeOTel(NewOTelConfig(config.Default().Telemetry), nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordStep(ctx, "load", 20*time.Millisecond, nil)
	metrics.RecordStep(ctx, "train", time.Second, errors.New("boom"))
	metrics.RecordRows(ctx, "features", "excluded", 4)
	metrics.RecordTrees(ctx, 100)
	metrics.RecordEvaluation(ctx, map[string]float64{"accuracy": 0.9, "recall": 0.25})
	metrics.RecordRun(ctx, 2*time.Second, apperrors.NewFitError("no variance", nil))

	path := filepath.Join(t.TempDir(), "metrics", "churn.prom")
	require.NoError(t, providers.WriteMetricsFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	for _, name := range []string{
		"churn_runs_total",
		"churn_steps_total",
		"churn_step_duration_seconds",
		"churn_rows_total",
		"churn_trees_fitted_total",
		"churn_evaluation_score",
		"churn_errors_total",
		"churn_goroutines",
		"churn_heap_alloc_bytes",
	} {
		assert.Contains(t, text, name)
	}
	assert.Contains(t, text, `outcome="excluded"`)
	assert.Contains(t, text, `error_type="FIT"`)
	assert.Contains(t, text, `metric="recall"`)
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var m *PipelineMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordRun(ctx, time.Second, nil)
		m.RecordStep(ctx, "load", time.Second, nil)
		m.RecordRows(ctx, "load", "loaded", 1)
		m.RecordTrees(ctx, 1)
		m.RecordEvaluation(ctx, map[string]float64{"accuracy": 1})
	})
}

func TestRuntimeMetrics_Collect(t *testing.T) {
	var disabled *RuntimeMetrics
	stats := disabled.Collect(context.Background(), "train")
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.HeapSys)
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "NUMERIC_DOMAIN", errorType(apperrors.NewNumericDomainError("log of -2")))
	assert.Equal(t, "CANCELLED", errorType(context.Canceled))
	assert.Equal(t, "UNKNOWN", errorType(errors.New("x")))
}
