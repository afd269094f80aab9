// Package catalog provides SQLite-based storage for download history and
// pipeline run outcomes.
//
// The catalog answers two questions across invocations: which files have
// been downloaded (per component and survey cycle), and how previous
// stage runs went. The status command reads it; the fetch, convert,
// merge and classify commands write to it when saving is enabled.
package catalog
