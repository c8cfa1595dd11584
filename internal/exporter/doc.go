// Package exporter writes the artifacts of a churn run.
//
// CSVWriter resolves relative paths against the configured directories and
// writes the transformed feature matrix, the feature-importance ranking and
// the JSON run summary. Large tables are streamed through StreamWriter.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths)
//	err := w.WriteMatrix(paths.TransformedCSV, matrix)
//	err = w.WriteImportance(paths.ImportanceCSV, ranking)
package exporter
