package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	apperrors "churnlab/internal/errors"
)

// GenerateRunID creates a new unique run id
func GenerateRunID() string {
	return uuid.New().String()
}

// EnsureRunID returns ctx carrying a run id, generating one if needed
func EnsureRunID(ctx context.Context) context.Context {
	if GetRunID(ctx) == "" {
		return WithRunID(ctx, GenerateRunID())
	}
	return ctx
}

// LoggerWithContext returns the global logger tagged with the context's run id
func LoggerWithContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()
	if runID := GetRunID(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}
	return logger
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithError creates a logger with an error field. Located errors also
// contribute their stage, record and column.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With(ErrorAttrs(err)...)
}

// ErrorAttrs returns slog key/value pairs describing err
func ErrorAttrs(err error) []any {
	args := []any{"error", err.Error()}
	if appErr := apperrors.Locate(err); appErr != nil {
		args = append(args, "error_type", string(appErr.Type))
		if appErr.Stage != "" {
			args = append(args, "stage", appErr.Stage)
		}
		if appErr.Record != "" {
			args = append(args, "record", appErr.Record)
		}
		if appErr.Column != "" {
			args = append(args, "column", appErr.Column)
		}
	}
	return args
}
