// Package operations runs the churn pipeline as an ordered list of steps.
//
// Core Components:
//
// Manager: executes registered steps in registration order. Each step runs
// under its own timeout; the first failure marks the run failed and skips the
// remaining steps. Every run and step is traced and counted through
// OperationTracer.
//
// Step: a single unit of work. Steps exchange data through the
// OperationState context using the ContextKey* constants.
//
// Registry: keeps the registered steps in order and rejects duplicates.
//
// Pipeline: wires the churn steps (load, analyse, features, export, train,
// evaluate, persist, record) onto a Manager and records failed runs in the
// ledger.
//
// Example usage:
//
//	p, err := operations.NewPipeline(&operations.StepOptions{
//		Config: cfg,
//		Paths:  paths,
//		Writer: exporter.NewCSVWriter(paths),
//		Ledger: ledger,
//		Logger: logger,
//	}, nil, tracer)
//	if err != nil {
//		return err
//	}
//	resp, err := p.Run(ctx)
package operations
