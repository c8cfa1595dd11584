// Package classifier trains and evaluates the churn model: a random forest
// of CART trees using Gini impurity, bootstrap sampling and a random subset
// of candidate features per split.
//
// Typical use:
//
//	train, test, err := classifier.Split(matrix, features.LabelColumn, 0.25, 42)
//	model, err := classifier.Fit(ctx, train, params, logger)
//	eval, err := classifier.Evaluate(model, test)
//	ranking, err := classifier.FeatureImportance(model, train.Features)
//
// Input must be finite; the classifier never imputes. Models are persisted
// through a Serializer.
package classifier
