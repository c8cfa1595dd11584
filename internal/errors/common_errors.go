package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeInputFormat     ErrorType = "INPUT_FORMAT"
	ErrTypeJoinIntegrity   ErrorType = "JOIN_INTEGRITY"
	ErrTypeNumericDomain   ErrorType = "NUMERIC_DOMAIN"
	ErrTypeUndefinedMetric ErrorType = "UNDEFINED_METRIC"
	ErrTypeFit             ErrorType = "FIT"
	ErrTypeStorage         ErrorType = "STORAGE"
	ErrTypeConfig          ErrorType = "CONFIG"
)

// AppError represents a pipeline error. Stage, Record and Column locate the
// failure so the run report can name the offending stage, customer and field.
type AppError struct {
	Type    ErrorType
	Message string
	Stage   string
	Record  string
	Column  string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)

	var loc []string
	if e.Stage != "" {
		loc = append(loc, "stage="+e.Stage)
	}
	if e.Record != "" {
		loc = append(loc, "record="+e.Record)
	}
	if e.Column != "" {
		loc = append(loc, "column="+e.Column)
	}
	if len(loc) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(loc, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithStage sets the pipeline stage that raised the error
func (e *AppError) WithStage(stage string) *AppError {
	e.Stage = stage
	return e
}

// WithRecord sets the offending record (customer id or row number)
func (e *AppError) WithRecord(record string) *AppError {
	e.Record = record
	return e
}

// WithColumn sets the offending column
func (e *AppError) WithColumn(column string) *AppError {
	e.Column = column
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewInputFormatError creates an error for unparseable input or missing columns
func NewInputFormatError(message string, cause error) *AppError {
	return NewAppError(ErrTypeInputFormat, message, cause)
}

// NewJoinIntegrityError creates an error for unexpected cardinality after a merge
func NewJoinIntegrityError(message string) *AppError {
	return NewAppError(ErrTypeJoinIntegrity, message, nil)
}

// NewNumericDomainError creates an error for values outside a transform's domain
func NewNumericDomainError(message string) *AppError {
	return NewAppError(ErrTypeNumericDomain, message, nil)
}

// NewUndefinedMetricError creates an error for a metric with a zero denominator
func NewUndefinedMetricError(metric string) *AppError {
	return NewAppError(ErrTypeUndefinedMetric,
		fmt.Sprintf("%s is undefined: denominator is zero", metric), nil).
		WithContext("metric", metric)
}

// NewFitError creates a classifier training error
func NewFitError(message string, cause error) *AppError {
	return NewAppError(ErrTypeFit, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err wraps an AppError of the given type.
// UndefinedMetric errors also match ErrTypeNumericDomain.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	if appErr.Type == errType {
		return true
	}
	return errType == ErrTypeNumericDomain && appErr.Type == ErrTypeUndefinedMetric
}

// Locate returns the first AppError in err's chain, or nil
func Locate(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
