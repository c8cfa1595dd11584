package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"churnlab/internal/infrastructure"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer recording spans on providers and
// instruments on its meter. Nil providers give a tracer that records nothing.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	if providers == nil {
		return &OperationTracer{tracer: noop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)}, nil
	}

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	return &OperationTracer{
		tracer:  providers.Tracer,
		metrics: metrics,
	}, nil
}

// Metrics returns the pipeline instruments; nil when telemetry is off
func (pt *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	return pt.metrics
}

// TraceOperationExecution creates a span for the entire pipeline run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string, stepCount int) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", operationID),
			attribute.Int("run.step_count", stepCount),
		),
	)
}

// RecordOperationCompletion ends the run span and records run metrics
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, duration time.Duration, err error) {
	defer span.End()

	span.SetAttributes(attribute.Float64("run.duration_seconds", duration.Seconds()))
	pt.metrics.RecordRun(ctx, duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		return
	}
	infrastructure.AddSpanEvent(ctx, "run.completed", map[string]interface{}{
		"duration": duration.Seconds(),
	})
	span.SetStatus(codes.Ok, "run completed")
}

// TraceStepExecution creates a span for one step
func (pt *OperationTracer) TraceStepExecution(ctx context.Context, operationID, stepID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.step."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", operationID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordStepCompletion ends the step span and records step metrics
func (pt *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	defer span.End()

	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	pt.metrics.RecordStep(ctx, stepID, duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		return
	}
	span.SetStatus(codes.Ok, "step completed")
}
