// Package store keeps the run ledger: one SQLite row per pipeline run with
// its outcome, evaluation counts and artifact paths.
package store
