package operations

import (
	"context"
	"log/slog"
	"time"

	"churnlab/internal/classifier"
	"churnlab/internal/config"
	"churnlab/internal/dataset"
	apperrors "churnlab/internal/errors"
	"churnlab/internal/exporter"
	"churnlab/internal/features"
	"churnlab/internal/infrastructure"
	"churnlab/internal/report"
	"churnlab/internal/store"
)

// topFeatureCount is the number of features listed in the run summary
const topFeatureCount = 10

// StepOptions holds the collaborators shared by the pipeline steps
type StepOptions struct {
	Config     *config.Config
	Paths      *config.Paths
	Writer     *exporter.CSVWriter
	Reporter   report.Reporter
	Serializer classifier.Serializer
	Ledger     *store.Ledger
	Metrics    *infrastructure.PipelineMetrics
	Logger     *slog.Logger
}

func (o *StepOptions) stepLogger(stepID string) *slog.Logger {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("step", stepID))
}

// workbookSaver is implemented by reporters that keep their charts in a file
type workbookSaver interface {
	Save(path string) error
}

// LoadStep reads the customer and price tables
type LoadStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewLoadStep creates the load step
func NewLoadStep(opts *StepOptions) *LoadStep {
	return &LoadStep{
		BaseStep: NewBaseStep(StepIDLoad, StepNameLoad),
		opts:     opts,
		logger:   opts.stepLogger(StepIDLoad),
	}
}

// Execute loads both input tables into the operation context
func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	customers, err := dataset.LoadCustomers(s.opts.Paths.CustomerCSV)
	if err != nil {
		return err
	}
	prices, err := dataset.LoadPrices(s.opts.Paths.PriceCSV)
	if err != nil {
		return err
	}

	state.SetContext(ContextKeyCustomers, customers)
	state.SetContext(ContextKeyPrices, prices)
	s.opts.Metrics.RecordRows(ctx, StepIDLoad, "customers", len(customers))
	s.opts.Metrics.RecordRows(ctx, StepIDLoad, "price_observations", len(prices))

	if st := state.GetStep(s.ID()); st != nil {
		st.SetMetadata("customers", len(customers))
		st.SetMetadata("price_observations", len(prices))
	}
	s.logger.InfoContext(ctx, "input tables loaded",
		slog.Int("customers", len(customers)),
		slog.Int("price_observations", len(prices)))
	return nil
}

// AnalyseStep records the exploratory charts of the raw customer table
type AnalyseStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewAnalyseStep creates the analysis step
func NewAnalyseStep(opts *StepOptions) *AnalyseStep {
	return &AnalyseStep{
		BaseStep: NewBaseStep(StepIDAnalyse, StepNameAnalyse),
		opts:     opts,
		logger:   opts.stepLogger(StepIDAnalyse),
	}
}

// Validate requires the loaded customers
func (s *AnalyseStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyCustomers)
}

// Execute records churn shares, consumption histograms and spreads
func (s *AnalyseStep) Execute(ctx context.Context, state *OperationState) error {
	customers, err := ContextValue[[]dataset.CustomerRecord](state, ContextKeyCustomers)
	if err != nil {
		return err
	}
	if err := report.Analyse(ctx, s.reporter(), customers); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "exploratory charts recorded")
	return nil
}

func (s *AnalyseStep) reporter() report.Reporter {
	if s.opts.Reporter == nil {
		return report.Nop{}
	}
	return s.opts.Reporter
}

// FeaturesStep derives price features, joins them onto the customers and
// applies the missing-value policy
type FeaturesStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewFeaturesStep creates the feature engineering step
func NewFeaturesStep(opts *StepOptions) *FeaturesStep {
	return &FeaturesStep{
		BaseStep: NewBaseStep(StepIDFeatures, StepNameFeatures),
		opts:     opts,
		logger:   opts.stepLogger(StepIDFeatures),
	}
}

// Validate requires both input tables
func (s *FeaturesStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyCustomers, ContextKeyPrices)
}

// Execute builds the feature matrix
func (s *FeaturesStep) Execute(ctx context.Context, state *OperationState) error {
	customers, err := ContextValue[[]dataset.CustomerRecord](state, ContextKeyCustomers)
	if err != nil {
		return err
	}
	prices, err := ContextValue[[]dataset.PriceObservation](state, ContextKeyPrices)
	if err != nil {
		return err
	}

	refDate, err := time.Parse(dataset.DateLayout, s.opts.Config.Features.ReferenceDate)
	if err != nil {
		return apperrors.NewConfigError("invalid reference date", err).WithColumn("features.reference_date")
	}

	corrected := make([]dataset.CustomerRecord, len(customers))
	for i, c := range customers {
		if corrected[i], err = features.CorrectRecord(c); err != nil {
			return err
		}
	}

	deltas, err := features.BuildPriceDeltas(prices)
	if err != nil {
		return err
	}
	matrix, err := features.NewAssembler(refDate, s.logger).Assemble(ctx, customers, deltas)
	if err != nil {
		return err
	}
	excluded := len(customers) - matrix.Len()
	s.opts.Metrics.RecordRows(ctx, StepIDFeatures, "excluded", excluded)

	dropped := 0
	if s.opts.Config.Training.MissingPolicy == config.MissingPolicyDrop {
		matrix, dropped = matrix.DropIncomplete()
		s.opts.Metrics.RecordRows(ctx, StepIDFeatures, "dropped", dropped)
		if dropped > 0 {
			s.logger.WarnContext(ctx, "rows with missing values dropped",
				slog.Int("dropped", dropped),
				slog.Int("remaining", matrix.Len()))
		}
	} else if row, col, ok := matrix.FirstNonFinite(); ok {
		return apperrors.NewFitError("non-finite feature value", nil).
			WithRecord(matrix.IDs[row]).
			WithColumn(matrix.Columns[col])
	}

	if err := report.AnalyseCorrected(ctx, s.reporter(), corrected); err != nil {
		return err
	}

	state.SetContext(ContextKeyMatrix, matrix)
	state.SetContext(ContextKeyExcluded, excluded)
	state.SetContext(ContextKeyDropped, dropped)
	if st := state.GetStep(s.ID()); st != nil {
		st.SetMetadata("rows", matrix.Len())
		st.SetMetadata("columns", len(matrix.Columns))
		st.SetMetadata("excluded", excluded)
		st.SetMetadata("dropped", dropped)
	}
	return nil
}

func (s *FeaturesStep) reporter() report.Reporter {
	if s.opts.Reporter == nil {
		return report.Nop{}
	}
	return s.opts.Reporter
}

// ExportStep writes the feature matrix to CSV
type ExportStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewExportStep creates the export step
func NewExportStep(opts *StepOptions) *ExportStep {
	return &ExportStep{
		BaseStep: NewBaseStep(StepIDExport, StepNameExport),
		opts:     opts,
		logger:   opts.stepLogger(StepIDExport),
	}
}

// Validate requires the assembled matrix
func (s *ExportStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyMatrix)
}

// Execute writes the transformed table
func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	matrix, err := ContextValue[*features.Matrix](state, ContextKeyMatrix)
	if err != nil {
		return err
	}
	if err := s.opts.Writer.WriteMatrix(s.opts.Paths.TransformedCSV, matrix); err != nil {
		return apperrors.NewStorageError("failed to write feature matrix", err).
			WithContext("path", s.opts.Paths.TransformedCSV)
	}
	s.logger.InfoContext(ctx, "feature matrix written",
		slog.String("path", s.opts.Paths.TransformedCSV),
		slog.Int("rows", matrix.Len()))
	return nil
}

// TrainStep splits the matrix and fits the forest
type TrainStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewTrainStep creates the training step
func NewTrainStep(opts *StepOptions) *TrainStep {
	return &TrainStep{
		BaseStep: NewBaseStep(StepIDTrain, StepNameTrain),
		opts:     opts,
		logger:   opts.stepLogger(StepIDTrain),
	}
}

// Validate requires the assembled matrix
func (s *TrainStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyMatrix)
}

// Execute fits the classifier on the training split
func (s *TrainStep) Execute(ctx context.Context, state *OperationState) error {
	matrix, err := ContextValue[*features.Matrix](state, ContextKeyMatrix)
	if err != nil {
		return err
	}

	tc := s.opts.Config.Training
	train, test, err := classifier.Split(matrix, features.LabelColumn, tc.TestFraction, tc.Seed)
	if err != nil {
		return err
	}

	model, err := classifier.Fit(ctx, train, TrainingParams(tc), s.logger)
	if err != nil {
		return err
	}
	s.opts.Metrics.RecordTrees(ctx, len(model.Trees))

	state.SetContext(ContextKeyTrainSet, train)
	state.SetContext(ContextKeyTestSet, test)
	state.SetContext(ContextKeyModel, model)
	if st := state.GetStep(s.ID()); st != nil {
		st.SetMetadata("train_rows", train.Len())
		st.SetMetadata("test_rows", test.Len())
		st.SetMetadata("trees", len(model.Trees))
	}
	return nil
}

// TrainingParams maps the training configuration onto forest parameters
func TrainingParams(tc config.TrainingConfig) classifier.Params {
	return classifier.Params{
		NEstimators:     tc.NEstimators,
		MaxDepth:        tc.MaxDepth,
		MinSamplesSplit: tc.MinSamplesSplit,
		MinSamplesLeaf:  tc.MinSamplesLeaf,
		MaxFeatures:     tc.MaxFeatures,
		Seed:            tc.Seed,
		Workers:         tc.Workers,
	}
}

// EvaluateStep scores the model on the test split and ranks the features
type EvaluateStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewEvaluateStep creates the evaluation step
func NewEvaluateStep(opts *StepOptions) *EvaluateStep {
	return &EvaluateStep{
		BaseStep: NewBaseStep(StepIDEvaluate, StepNameEvaluate),
		opts:     opts,
		logger:   opts.stepLogger(StepIDEvaluate),
	}
}

// Validate requires the model and the test split
func (s *EvaluateStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyModel, ContextKeyTestSet)
}

// Execute computes the confusion metrics and the importance ranking
func (s *EvaluateStep) Execute(ctx context.Context, state *OperationState) error {
	model, err := ContextValue[*classifier.Model](state, ContextKeyModel)
	if err != nil {
		return err
	}
	test, err := ContextValue[*classifier.Dataset](state, ContextKeyTestSet)
	if err != nil {
		return err
	}

	eval, err := classifier.Evaluate(model, test)
	if err != nil {
		return err
	}
	s.opts.Metrics.RecordEvaluation(ctx, map[string]float64{
		"accuracy":  eval.Accuracy,
		"precision": eval.Precision,
		"recall":    eval.Recall,
	})

	scores, err := classifier.FeatureImportance(model, model.Features)
	if err != nil {
		return err
	}

	reporter := s.opts.Reporter
	if reporter == nil {
		reporter = report.Nop{}
	}
	if err := reporter.Record(ctx, report.ImportanceChart(scores)); err != nil {
		return err
	}
	if err := s.opts.Writer.WriteImportance(s.opts.Paths.ImportanceCSV, scores); err != nil {
		return apperrors.NewStorageError("failed to write feature importance", err).
			WithContext("path", s.opts.Paths.ImportanceCSV)
	}

	state.SetContext(ContextKeyEvaluation, eval)
	state.SetContext(ContextKeyImportance, scores)
	s.logger.InfoContext(ctx, "classifier evaluated",
		slog.Int("true_positives", eval.Confusion.TP),
		slog.Int("false_positives", eval.Confusion.FP),
		slog.Int("true_negatives", eval.Confusion.TN),
		slog.Int("false_negatives", eval.Confusion.FN),
		slog.Float64("accuracy", eval.Accuracy),
		slog.Float64("precision", eval.Precision),
		slog.Float64("recall", eval.Recall))
	return nil
}

// PersistStep saves the model, the diagnostics workbook and the run summary
type PersistStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewPersistStep creates the persist step
func NewPersistStep(opts *StepOptions) *PersistStep {
	return &PersistStep{
		BaseStep: NewBaseStep(StepIDPersist, StepNamePersist),
		opts:     opts,
		logger:   opts.stepLogger(StepIDPersist),
	}
}

// Validate requires everything the summary reports on
func (s *PersistStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyModel, ContextKeyEvaluation, ContextKeyImportance)
}

// Execute writes every artifact of the run
func (s *PersistStep) Execute(ctx context.Context, state *OperationState) error {
	model, err := ContextValue[*classifier.Model](state, ContextKeyModel)
	if err != nil {
		return err
	}

	serializer := s.opts.Serializer
	if serializer == nil {
		serializer = classifier.NewGobSerializer()
	}
	if err := serializer.Save(s.opts.Paths.ModelFile, model); err != nil {
		return err
	}

	summary := BuildSummary(state)
	summary.ModelPath = s.opts.Paths.ModelFile
	summary.MatrixPath = s.opts.Paths.TransformedCSV

	if saver, ok := s.opts.Reporter.(workbookSaver); ok {
		if err := saver.Save(s.opts.Paths.DiagnosticsXLSX); err != nil {
			return err
		}
		summary.WorkbookPath = s.opts.Paths.DiagnosticsXLSX
	}

	summary.FinishedAt = time.Now()
	if err := s.opts.Writer.WriteSummary(s.opts.Paths.EvaluationJSON, summary); err != nil {
		return apperrors.NewStorageError("failed to write run summary", err).
			WithContext("path", s.opts.Paths.EvaluationJSON)
	}

	state.SetContext(ContextKeySummary, summary)
	s.logger.InfoContext(ctx, "artifacts written",
		slog.String("model", summary.ModelPath),
		slog.String("summary", s.opts.Paths.EvaluationJSON),
		slog.String("workbook", summary.WorkbookPath))
	return nil
}

// RecordStep appends the finished run to the ledger
type RecordStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewRecordStep creates the ledger step
func NewRecordStep(opts *StepOptions) *RecordStep {
	return &RecordStep{
		BaseStep: NewBaseStep(StepIDRecord, StepNameRecord),
		opts:     opts,
		logger:   opts.stepLogger(StepIDRecord),
	}
}

// Validate requires the run summary
func (s *RecordStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeySummary)
}

// Execute records the run. A nil ledger records nothing.
func (s *RecordStep) Execute(ctx context.Context, state *OperationState) error {
	summary, err := ContextValue[*exporter.RunSummary](state, ContextKeySummary)
	if err != nil {
		return err
	}
	if s.opts.Ledger == nil {
		s.logger.DebugContext(ctx, "run ledger disabled")
		return nil
	}

	run := LedgerRun(summary)
	run.Status = store.StatusSucceeded
	if err := s.opts.Ledger.RecordRun(ctx, run); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "run recorded", slog.String("run_id", run.ID))
	return nil
}
