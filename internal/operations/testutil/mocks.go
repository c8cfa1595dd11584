package testutil

import (
	"context"
	"errors"
	"sync"

	"churnlab/internal/operations"
)

// MockStep is a configurable mock implementation of the step interface
type MockStep struct {
	IDValue   string
	NameValue string

	// Configurable functions
	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	mu           sync.Mutex
	executeCalls int
}

// ID returns the step ID
func (m *MockStep) ID() string {
	return m.IDValue
}

// Name returns the step name
func (m *MockStep) Name() string {
	return m.NameValue
}

// Execute runs the mock execute function
func (m *MockStep) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.executeCalls++
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return nil
}

// Validate runs the mock validate function
func (m *MockStep) Validate(state *operations.OperationState) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(state)
	}
	return nil
}

// ExecuteCalls returns the number of Execute calls
func (m *MockStep) ExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeCalls
}

// SucceedingStep creates a step that stores value under its own id
func SucceedingStep(id string) *MockStep {
	return &MockStep{
		IDValue:   id,
		NameValue: "Step " + id,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			state.SetContext(id, true)
			return nil
		},
	}
}

// FailingStep creates a step that always returns err
func FailingStep(id string, err error) *MockStep {
	if err == nil {
		err = errors.New("step failed")
	}
	return &MockStep{
		IDValue:   id,
		NameValue: "Step " + id,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return err
		},
	}
}

// BlockingStep creates a step that waits for its context to end
func BlockingStep(id string) *MockStep {
	return &MockStep{
		IDValue:   id,
		NameValue: "Step " + id,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
}
