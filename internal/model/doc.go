// Package model defines the core data structures used throughout nhaneskit.
//
// This package contains the following main types:
//   - DatasetFile: A single NHANES data file (remote URL and local location)
//   - MergeGroup: A set of CSV files sharing a filename prefix
//   - RunReport: The result of one pipeline run over a stage
//   - SimpleReport: A summarized, human-readable view of a RunReport
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, convert, organize, report, catalog)
// need these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// catalog storage.
package model
