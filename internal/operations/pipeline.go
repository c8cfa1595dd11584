package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"churnlab/internal/classifier"
	"churnlab/internal/dataset"
	"churnlab/internal/exporter"
	"churnlab/internal/features"
	"churnlab/internal/infrastructure"
	"churnlab/internal/store"
)

// Pipeline is the churn run: the eight steps registered on a Manager
type Pipeline struct {
	manager *Manager
	opts    *StepOptions
}

// NewPipeline registers the churn steps in execution order
func NewPipeline(opts *StepOptions, config *Config, tracer *OperationTracer) (*Pipeline, error) {
	if opts == nil || opts.Config == nil || opts.Paths == nil || opts.Writer == nil {
		return nil, fmt.Errorf("pipeline needs config, paths and a writer")
	}
	if opts.Metrics == nil && tracer != nil {
		opts.Metrics = tracer.Metrics()
	}

	manager := NewManager(NewRegistry(), config, tracer, opts.Logger)
	steps := []Step{
		NewLoadStep(opts),
		NewAnalyseStep(opts),
		NewFeaturesStep(opts),
		NewExportStep(opts),
		NewTrainStep(opts),
		NewEvaluateStep(opts),
		NewPersistStep(opts),
		NewRecordStep(opts),
	}
	for _, step := range steps {
		if err := manager.RegisterStep(step); err != nil {
			return nil, err
		}
	}
	return &Pipeline{manager: manager, opts: opts}, nil
}

// Manager returns the underlying manager
func (p *Pipeline) Manager() *Manager {
	return p.manager
}

// Run executes the pipeline. A failed run is still written to the ledger,
// with the failing step and error and without metrics.
func (p *Pipeline) Run(ctx context.Context) (*OperationResponse, error) {
	resp, err := p.manager.Execute(ctx, OperationRequest{ID: infrastructure.GetRunID(ctx)})
	if err != nil && resp != nil && resp.State != nil {
		if lerr := p.recordFailure(ctx, resp.State, err); lerr != nil {
			p.manager.logger.WarnContext(ctx, "failed run not recorded",
				slog.String("operation_id", resp.ID),
				slog.String("error", lerr.Error()))
		}
	}
	return resp, err
}

func (p *Pipeline) recordFailure(ctx context.Context, state *OperationState, runErr error) error {
	if p.opts.Ledger == nil {
		return nil
	}
	summary := BuildSummary(state)
	summary.FinishedAt = time.Now()
	summary.Seed = p.opts.Config.Training.Seed

	run := LedgerRun(summary)
	run.Status = store.StatusFailed
	run.FailedStage = FailedStep(runErr)
	run.Error = runErr.Error()
	// The run context may already be cancelled; the failure must still land.
	return p.opts.Ledger.RecordRun(context.WithoutCancel(ctx), run)
}

// BuildSummary collects what the steps of state have produced so far.
// Values missing from the context leave their fields zero.
func BuildSummary(state *OperationState) *exporter.RunSummary {
	s := &exporter.RunSummary{
		RunID:     state.ID,
		StartedAt: state.StartTime,
	}
	if customers, err := ContextValue[[]dataset.CustomerRecord](state, ContextKeyCustomers); err == nil {
		s.Customers = len(customers)
	}
	if n, err := ContextValue[int](state, ContextKeyExcluded); err == nil {
		s.Excluded = n
	}
	if n, err := ContextValue[int](state, ContextKeyDropped); err == nil {
		s.Dropped = n
	}
	if m, err := ContextValue[*features.Matrix](state, ContextKeyMatrix); err == nil {
		s.Features = len(m.Columns) - 1
	}
	if train, err := ContextValue[*classifier.Dataset](state, ContextKeyTrainSet); err == nil {
		s.TrainRows = train.Len()
	}
	if test, err := ContextValue[*classifier.Dataset](state, ContextKeyTestSet); err == nil {
		s.TestRows = test.Len()
	}
	if model, err := ContextValue[*classifier.Model](state, ContextKeyModel); err == nil {
		s.Trees = len(model.Trees)
		s.Seed = model.Params.Seed
	}
	if eval, err := ContextValue[*classifier.Evaluation](state, ContextKeyEvaluation); err == nil {
		s.Evaluation = eval
	}
	if scores, err := ContextValue[[]classifier.FeatureScore](state, ContextKeyImportance); err == nil {
		s.TopFeatures = exporter.TopFeatures(scores, topFeatureCount)
	}
	return s
}

// LedgerRun converts a run summary into a ledger record
func LedgerRun(s *exporter.RunSummary) store.Run {
	run := store.Run{
		ID:         s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Customers:  s.Customers,
		Features:   s.Features,
		TrainRows:  s.TrainRows,
		TestRows:   s.TestRows,
		Trees:      s.Trees,
		Seed:       s.Seed,
		ModelPath:  s.ModelPath,
	}
	if e := s.Evaluation; e != nil {
		run.TP, run.FP, run.TN, run.FN = e.Confusion.TP, e.Confusion.FP, e.Confusion.TN, e.Confusion.FN
		run.Accuracy = &e.Accuracy
		run.Precision = &e.Precision
		run.Recall = &e.Recall
	}
	return run
}
