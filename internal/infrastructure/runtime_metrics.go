package infrastructure

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics samples the Go runtime after each pipeline step, so the
// memory cost of assembly and forest training shows up per step
type RuntimeMetrics struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	heapSys    metric.Int64Gauge
	gcCycles   metric.Int64Gauge
}

// RuntimeStats is one runtime sample
type RuntimeStats struct {
	Goroutines int64
	HeapAlloc  int64
	HeapSys    int64
	GCCycles   int64
}

// NewRuntimeMetrics registers the runtime gauges on meter
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	var (
		m   RuntimeMetrics
		err error
	)

	if m.goroutines, err = meter.Int64Gauge(
		"churn_goroutines",
		metric.WithDescription("Number of goroutines when the step finished"),
	); err != nil {
		return nil, err
	}

	if m.heapAlloc, err = meter.Int64Gauge(
		"churn_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects when the step finished"),
	); err != nil {
		return nil, err
	}

	if m.heapSys, err = meter.Int64Gauge(
		"churn_heap_sys_bytes",
		metric.WithDescription("Bytes of heap memory obtained from the OS when the step finished"),
	); err != nil {
		return nil, err
	}

	if m.gcCycles, err = meter.Int64Gauge(
		"churn_gc_cycles",
		metric.WithDescription("Completed GC cycles when the step finished"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// Collect reads the runtime statistics and records them against stepID
func (m *RuntimeMetrics) Collect(ctx context.Context, stepID string) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := RuntimeStats{
		Goroutines: int64(runtime.NumGoroutine()),
		HeapAlloc:  int64(mem.HeapAlloc),
		HeapSys:    int64(mem.HeapSys),
		GCCycles:   int64(mem.NumGC),
	}
	if m == nil {
		return stats
	}

	attrs := metric.WithAttributes(attribute.String("step.id", stepID))
	m.goroutines.Record(ctx, stats.Goroutines, attrs)
	m.heapAlloc.Record(ctx, stats.HeapAlloc, attrs)
	m.heapSys.Record(ctx, stats.HeapSys, attrs)
	m.gcCycles.Record(ctx, stats.GCCycles, attrs)
	return stats
}
