package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	apperrors "churnlab/internal/errors"
)

// Candidate feature counts per split
const (
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
	MaxFeaturesAll  = "all"
)

// Params configures forest training
type Params struct {
	NEstimators     int
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Seed            int64
	Workers         int // 0 means GOMAXPROCS
}

// DefaultParams returns the production training parameters
func DefaultParams() Params {
	return Params{
		NEstimators:     1000,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     MaxFeaturesSqrt,
		Seed:            42,
	}
}

// Model is a fitted random forest
type Model struct {
	Features    []string
	Trees       []Tree
	Importances []float64
	Params      Params
	TrainedAt   time.Time
}

// Fit grows params.NEstimators CART trees on bootstrap samples of train.
// Trees are grown concurrently; each tree draws from its own generator
// seeded from params.Seed and its index, so the fitted model does not
// depend on the worker count. Non-finite input is rejected with the
// offending row and column.
func Fit(ctx context.Context, train *Dataset, params Params, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if train.Len() == 0 {
		return nil, apperrors.NewFitError("training set is empty", nil)
	}
	if len(train.Features) == 0 {
		return nil, apperrors.NewFitError("training set has no features", nil)
	}
	if err := checkFinite(train); err != nil {
		return nil, err
	}

	nFeatures := len(train.Features)
	tp := treeParams{
		maxDepth:        params.MaxDepth,
		minSamplesSplit: params.MinSamplesSplit,
		minSamplesLeaf:  params.MinSamplesLeaf,
		maxFeatures:     candidateCount(params.MaxFeatures, nFeatures),
	}

	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	logger.InfoContext(ctx, "fitting random forest",
		slog.Int("trees", params.NEstimators),
		slog.Int("samples", train.Len()),
		slog.Int("features", nFeatures),
		slog.Int("candidates_per_split", tp.maxFeatures),
		slog.Int("workers", workers))

	start := time.Now()
	trees := make([]Tree, params.NEstimators)
	treeImportances := make([][]float64, params.NEstimators)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(treeSeed(params.Seed, i)))
			sample := bootstrap(train.Len(), rng)
			trees[i], treeImportances[i] = growTree(train.X, train.Y, sample, tp, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewFitError("training interrupted", err)
	}

	model := &Model{
		Features:    append([]string(nil), train.Features...),
		Trees:       trees,
		Importances: meanImportances(treeImportances, nFeatures),
		Params:      params,
		TrainedAt:   time.Now().UTC(),
	}

	logger.InfoContext(ctx, "random forest fitted",
		slog.Duration("duration", time.Since(start)),
		slog.Int("nodes", model.NodeCount()))

	return model, nil
}

// PredictProba returns the mean positive-class probability over all trees
func (m *Model) PredictProba(x []float64) float64 {
	var sum float64
	for i := range m.Trees {
		sum += m.Trees[i].predict(x)
	}
	return sum / float64(len(m.Trees))
}

// Predict labels each row 1 when its probability exceeds one half
func (m *Model) Predict(x [][]float64) ([]int, error) {
	out := make([]int, len(x))
	for i, row := range x {
		if len(row) != len(m.Features) {
			return nil, apperrors.NewFitError(
				fmt.Sprintf("row has %d features, model expects %d", len(row), len(m.Features)), nil).
				WithContext("row", i)
		}
		if m.PredictProba(row) > 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// NodeCount returns the total number of nodes in the forest
func (m *Model) NodeCount() int {
	total := 0
	for i := range m.Trees {
		total += len(m.Trees[i].Nodes)
	}
	return total
}

func validateParams(p Params) error {
	switch {
	case p.NEstimators < 1:
		return apperrors.NewFitError(fmt.Sprintf("n_estimators must be positive, got %d", p.NEstimators), nil)
	case p.MinSamplesSplit < 2:
		return apperrors.NewFitError(fmt.Sprintf("min_samples_split must be at least 2, got %d", p.MinSamplesSplit), nil)
	case p.MinSamplesLeaf < 1:
		return apperrors.NewFitError(fmt.Sprintf("min_samples_leaf must be at least 1, got %d", p.MinSamplesLeaf), nil)
	case p.MaxDepth < 0:
		return apperrors.NewFitError(fmt.Sprintf("max_depth must not be negative, got %d", p.MaxDepth), nil)
	}
	switch p.MaxFeatures {
	case MaxFeaturesSqrt, MaxFeaturesLog2, MaxFeaturesAll:
		return nil
	default:
		return apperrors.NewFitError(fmt.Sprintf("unknown max_features %q", p.MaxFeatures), nil)
	}
}

// checkFinite rejects NaN and Inf anywhere in the training data
func checkFinite(d *Dataset) error {
	for i, row := range d.X {
		if len(row) != len(d.Features) {
			return apperrors.NewFitError(
				fmt.Sprintf("row has %d values, expected %d", len(row), len(d.Features)), nil).
				WithRecord(d.IDs[i])
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperrors.NewFitError(fmt.Sprintf("non-finite value %v", v), nil).
					WithRecord(d.IDs[i]).
					WithColumn(d.Features[j]).
					WithContext("row", i)
			}
		}
	}
	return nil
}

func candidateCount(mode string, nFeatures int) int {
	var k int
	switch mode {
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	case MaxFeaturesAll:
		k = nFeatures
	default:
		k = int(math.Sqrt(float64(nFeatures)))
	}
	if k < 1 {
		k = 1
	}
	if k > nFeatures {
		k = nFeatures
	}
	return k
}

// treeSeed derives an independent generator seed for tree i
func treeSeed(seed int64, i int) int64 {
	z := uint64(seed) + uint64(i+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return int64(z ^ (z >> 31))
}

// bootstrap draws n sample indices with replacement
func bootstrap(n int, rng *rand.Rand) []int {
	sample := make([]int, n)
	for i := range sample {
		sample[i] = rng.Intn(n)
	}
	return sample
}

// meanImportances normalises each tree's impurity decreases, averages them
// over the trees that split at all and renormalises to sum to one. A forest
// without a single split gets equal importances.
func meanImportances(perTree [][]float64, nFeatures int) []float64 {
	mean := make([]float64, nFeatures)
	contributing := 0
	for _, imp := range perTree {
		total := floats.Sum(imp)
		if total <= 0 {
			continue
		}
		for j, v := range imp {
			mean[j] += v / total
		}
		contributing++
	}

	if contributing == 0 {
		for j := range mean {
			mean[j] = 1 / float64(nFeatures)
		}
		return mean
	}

	floats.Scale(1/floats.Sum(mean), mean)
	return mean
}
