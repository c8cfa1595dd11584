package operations

import (
	"time"
)

// Pipeline step identifiers, in execution order
const (
	StepIDLoad     = "load"
	StepIDAnalyse  = "analyse"
	StepIDFeatures = "features"
	StepIDExport   = "export"
	StepIDTrain    = "train"
	StepIDEvaluate = "evaluate"
	StepIDPersist  = "persist"
	StepIDRecord   = "record"
)

// Pipeline step names
const (
	StepNameLoad     = "Load Input Tables"
	StepNameAnalyse  = "Exploratory Analysis"
	StepNameFeatures = "Feature Engineering"
	StepNameExport   = "Export Feature Matrix"
	StepNameTrain    = "Train Classifier"
	StepNameEvaluate = "Evaluate Classifier"
	StepNamePersist  = "Persist Artifacts"
	StepNameRecord   = "Record Run"
)

// Context keys for values passed between steps
const (
	ContextKeyCustomers  = "customers"
	ContextKeyPrices     = "prices"
	ContextKeyMatrix     = "matrix"
	ContextKeyExcluded   = "excluded_customers"
	ContextKeyDropped    = "dropped_rows"
	ContextKeyTrainSet   = "train_set"
	ContextKeyTestSet    = "test_set"
	ContextKeyModel      = "model"
	ContextKeyEvaluation = "evaluation"
	ContextKeyImportance = "importance"
	ContextKeySummary    = "summary"
)

// Default timeouts
const (
	DefaultStepTimeout  = 30 * time.Minute
	DefaultTrainTimeout = 2 * time.Hour
)

// OperationRequest represents a request to execute the pipeline
type OperationRequest struct {
	ID         string                 `json:"id"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the response from a pipeline execution.
// State carries the values the steps produced.
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
	State    *OperationState       `json:"-"`
}
