package classifier

import (
	"fmt"
	"math"

	apperrors "churnlab/internal/errors"
)

// Confusion holds binary confusion counts with churn (1) as the positive class
type Confusion struct {
	TP int `json:"true_positives"`
	FP int `json:"false_positives"`
	TN int `json:"true_negatives"`
	FN int `json:"false_negatives"`
}

// Total returns the number of scored samples
func (c Confusion) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Accuracy is (tp+tn)/total
func (c Confusion) Accuracy() (float64, error) {
	return ratio("accuracy", c.TP+c.TN, c.Total())
}

// Precision is tp/(tp+fp)
func (c Confusion) Precision() (float64, error) {
	return ratio("precision", c.TP, c.TP+c.FP)
}

// Recall is tp/(tp+fn)
func (c Confusion) Recall() (float64, error) {
	return ratio("recall", c.TP, c.TP+c.FN)
}

func ratio(metric string, num, den int) (float64, error) {
	if den == 0 {
		return math.NaN(), apperrors.NewUndefinedMetricError(metric)
	}
	return float64(num) / float64(den), nil
}

// NewConfusion tallies predictions against actual labels
func NewConfusion(actual, predicted []int) (Confusion, error) {
	var c Confusion
	if len(actual) != len(predicted) {
		return c, apperrors.NewFitError(
			fmt.Sprintf("%d labels but %d predictions", len(actual), len(predicted)), nil)
	}
	for i := range actual {
		switch {
		case actual[i] == 1 && predicted[i] == 1:
			c.TP++
		case actual[i] == 0 && predicted[i] == 1:
			c.FP++
		case actual[i] == 0 && predicted[i] == 0:
			c.TN++
		default:
			c.FN++
		}
	}
	return c, nil
}

// Evaluation is the quality report of a model on held-out data
type Evaluation struct {
	Confusion Confusion `json:"confusion"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
}

// Evaluate scores the model on test. A metric whose denominator is zero is
// an UndefinedMetric error; no metric is silently reported as zero.
func Evaluate(model *Model, test *Dataset) (*Evaluation, error) {
	if err := checkFinite(test); err != nil {
		return nil, err
	}
	predicted, err := model.Predict(test.X)
	if err != nil {
		return nil, err
	}
	c, err := NewConfusion(test.Y, predicted)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{Confusion: c}
	if eval.Accuracy, err = c.Accuracy(); err != nil {
		return nil, err
	}
	if eval.Precision, err = c.Precision(); err != nil {
		return nil, err
	}
	if eval.Recall, err = c.Recall(); err != nil {
		return nil, err
	}
	return eval, nil
}
