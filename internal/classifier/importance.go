package classifier

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	apperrors "churnlab/internal/errors"
)

// FeatureScore pairs a feature name with its importance
type FeatureScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// FeatureImportance returns the model's impurity-based importances in
// ascending order. Scores are non-negative and sum to one. names must match
// the training feature order.
func FeatureImportance(model *Model, names []string) ([]FeatureScore, error) {
	if len(names) != len(model.Importances) {
		return nil, apperrors.NewFitError(
			fmt.Sprintf("%d names for %d importances", len(names), len(model.Importances)), nil)
	}

	total := floats.Sum(model.Importances)
	if total <= 0 {
		return nil, apperrors.NewFitError("model has no importances", nil)
	}

	scores := make([]FeatureScore, len(names))
	for i, name := range names {
		scores[i] = FeatureScore{Name: name, Score: model.Importances[i] / total}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score < scores[j].Score
		}
		return scores[i].Name < scores[j].Name
	})
	return scores, nil
}
