// Package log provides logging functionality for nhaneskit, built on top of
// the standard slog package.
//
// This package extends slog to provide:
//   - Duplication of log records to a persistent run log file
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// Long batch runs benefit from a durable record of what was downloaded,
// converted, and skipped; the TeeHandler writes every record to a run log
// file in addition to the terminal handler, so the terminal can stay at
// warn level while the file keeps the full debug trail.
//
// # Usage
//
//	logger, closer, err := log.NewRunLogger(os.Stderr, "fetch.log", true)
//	if err != nil { ... }
//	defer closer.Close()
//	slog.SetDefault(logger)
package log
