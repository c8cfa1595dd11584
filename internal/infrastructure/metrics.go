package infrastructure

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "churnlab/internal/errors"
)

// PipelineMetrics holds the instruments recorded by a churn pipeline run
type PipelineMetrics struct {
	RunsTotal       metric.Int64Counter
	RunDuration     metric.Float64Histogram
	StepsTotal      metric.Int64Counter
	StepDuration    metric.Float64Histogram
	Errors          metric.Int64Counter
	Rows            metric.Int64Counter
	TreesFitted     metric.Int64Counter
	EvaluationScore metric.Float64Gauge
	Runtime         *RuntimeMetrics
}

// CreatePipelineMetrics registers the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var (
		m   PipelineMetrics
		err error
	)

	if m.RunsTotal, err = meter.Int64Counter(
		"churn_runs_total",
		metric.WithDescription("Total number of pipeline runs"),
	); err != nil {
		return nil, err
	}

	if m.RunDuration, err = meter.Float64Histogram(
		"churn_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.StepsTotal, err = meter.Int64Counter(
		"churn_steps_total",
		metric.WithDescription("Total number of pipeline steps executed"),
	); err != nil {
		return nil, err
	}

	if m.StepDuration, err = meter.Float64Histogram(
		"churn_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.Errors, err = meter.Int64Counter(
		"churn_errors_total",
		metric.WithDescription("Total number of pipeline errors by type"),
	); err != nil {
		return nil, err
	}

	if m.Rows, err = meter.Int64Counter(
		"churn_rows_total",
		metric.WithDescription("Rows seen by each stage, by outcome"),
	); err != nil {
		return nil, err
	}

	if m.TreesFitted, err = meter.Int64Counter(
		"churn_trees_fitted_total",
		metric.WithDescription("Total number of decision trees grown"),
	); err != nil {
		return nil, err
	}

	if m.EvaluationScore, err = meter.Float64Gauge(
		"churn_evaluation_score",
		metric.WithDescription("Latest held-out evaluation score by metric"),
	); err != nil {
		return nil, err
	}

	if m.Runtime, err = NewRuntimeMetrics(meter); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordRun records the outcome of a whole pipeline run
func (m *PipelineMetrics) RecordRun(ctx context.Context, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := attribute.String("status", statusOf(err))
	m.RunsTotal.Add(ctx, 1, metric.WithAttributes(status))
	m.RunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(status))
	if err != nil {
		m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.type", errorType(err))))
	}
}

// RecordStep records one step execution
func (m *PipelineMetrics) RecordStep(ctx context.Context, stepID string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("step.id", stepID),
		attribute.String("status", statusOf(err)))
	m.StepsTotal.Add(ctx, 1, attrs)
	m.StepDuration.Record(ctx, duration.Seconds(), attrs)
	m.Runtime.Collect(ctx, stepID)
}

// RecordRows counts rows passing through stage with the given outcome,
// such as "loaded", "excluded" or "dropped"
func (m *PipelineMetrics) RecordRows(ctx context.Context, stage, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Rows.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome)))
}

// RecordTrees counts fitted trees
func (m *PipelineMetrics) RecordTrees(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.TreesFitted.Add(ctx, int64(n))
}

// RecordEvaluation publishes the named evaluation scores
func (m *PipelineMetrics) RecordEvaluation(ctx context.Context, scores map[string]float64) {
	if m == nil {
		return
	}
	for name, v := range scores {
		m.EvaluationScore.Record(ctx, v, metric.WithAttributes(attribute.String("metric", name)))
	}
}

func statusOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func errorType(err error) string {
	if appErr := apperrors.Locate(err); appErr != nil {
		return string(appErr.Type)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELLED"
	}
	return "UNKNOWN"
}
