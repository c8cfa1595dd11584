package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "churnlab/internal/errors"
	"churnlab/internal/infrastructure"
)

// Manager orchestrates pipeline execution
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager creates a new pipeline manager. Nil arguments fall back to
// an empty registry, the default config, a tracer recording nothing and
// the default logger.
func NewManager(registry *Registry, config *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer, _ = NewOperationTracer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		registry: registry,
		config:   config,
		tracer:   tracer,
		logger:   logger,
	}
}

// RegisterStep registers a step with the pipeline
func (m *Manager) RegisterStep(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs every registered step in order. The first failing step stops
// the run; later steps are marked skipped. The returned error is an
// *OperationError naming the step, wrapping the step's own error.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = infrastructure.GetRunID(ctx)
	}
	if req.ID == "" {
		req.ID = infrastructure.GenerateRunID()
	}
	ctx = infrastructure.WithRunID(ctx, req.ID)

	state := NewOperationState(req.ID)
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	steps := m.registry.List()
	if len(steps) == 0 {
		err := NewFatalError("no steps registered", nil)
		m.logOperationError(ctx, req.ID, err)
		state.Fail(err)
		return m.createResponse(state), err
	}
	for _, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceOperationExecution(ctx, req.ID, len(steps))
	m.logOperationStart(ctx, state, len(steps))
	state.Start()

	err := m.executeSequential(ctx, state, steps)

	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}
	if err != nil {
		m.logOperationError(ctx, req.ID, err)
	}
	m.logOperationComplete(ctx, state)
	m.tracer.RecordOperationCompletion(ctx, span, state.Duration(), err)

	return m.createResponse(state), err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID(), err)
		}

		m.logStepStart(ctx, state.ID, step.ID(), i+1, len(steps))
		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("previous step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStep runs one step inside its own span and timeout
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStep(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("state for step %s not found", step.ID()), nil)
	}

	stepCtx, span := m.tracer.TraceStepExecution(ctx, state.ID, step.ID())
	stepState.Start()
	start := time.Now()

	err := m.runStep(stepCtx, state, step)
	duration := time.Since(start)
	m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), duration, err)

	if err != nil {
		stepState.Fail(err)
		m.logStepError(ctx, state.ID, step.ID(), duration, err)
		return err
	}

	stepState.Complete()
	m.logStepComplete(ctx, state.ID, step.ID(), duration)
	return nil
}

// runStep validates and executes step, classifying any failure
func (m *Manager) runStep(ctx context.Context, state *OperationState, step Step) error {
	if err := step.Validate(state); err != nil {
		return NewValidationError(step.ID(), err)
	}

	timeout := m.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := step.Execute(stepCtx, state)
	if err == nil {
		return nil
	}

	if appErr := apperrors.Locate(err); appErr != nil && appErr.Stage == "" {
		appErr.WithStage(step.ID())
	}

	switch {
	case ctx.Err() != nil:
		return NewCancellationError(step.ID(), err)
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		return NewTimeoutError(step.ID(), timeout.String(), err)
	default:
		return NewExecutionError(step.ID(), err)
	}
}

// skipRemaining marks steps that will not run
func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStep(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}

// createResponse creates an operation response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.GetStatus(),
		Duration: state.Duration(),
		Steps:    state.Steps,
		State:    state,
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}
