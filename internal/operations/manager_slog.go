package operations

import (
	"context"
	"log/slog"
	"time"

	"churnlab/internal/infrastructure"
)

// logOperationStart logs the start of a pipeline run
func (m *Manager) logOperationStart(ctx context.Context, state *OperationState, stepCount int) {
	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", state.ID),
		slog.Int("step_count", stepCount),
		slog.Any("parameters", state.Config))
}

// logOperationComplete logs the completion of a pipeline run
func (m *Manager) logOperationComplete(ctx context.Context, state *OperationState) {
	m.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", state.ID),
		slog.String("status", string(state.GetStatus())),
		slog.Duration("duration", state.Duration()))
}

// logOperationError logs a failed pipeline run, naming where it failed
func (m *Manager) logOperationError(ctx context.Context, operationID string, err error) {
	attrs := append([]any{slog.String("operation_id", operationID)}, infrastructure.ErrorAttrs(err)...)
	m.logger.ErrorContext(ctx, "operation_error", attrs...)
}

// logStepStart logs the start of a step execution
func (m *Manager) logStepStart(ctx context.Context, operationID, stepID string, number, total int) {
	m.logger.InfoContext(ctx, "step_start",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Int("step_number", number),
		slog.Int("total_steps", total))
}

// logStepComplete logs the completion of a step execution
func (m *Manager) logStepComplete(ctx context.Context, operationID, stepID string, duration time.Duration) {
	m.logger.InfoContext(ctx, "step_complete",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Duration("duration", duration))
}

// logStepError logs a step error
func (m *Manager) logStepError(ctx context.Context, operationID, stepID string, duration time.Duration, err error) {
	attrs := append([]any{
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Duration("duration", duration),
	}, infrastructure.ErrorAttrs(err)...)
	m.logger.ErrorContext(ctx, "step_error", attrs...)
}
