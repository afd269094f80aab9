// Package config provides configuration structures and utilities for nhaneskit.
// It defines the main options for fetching NHANES data files, converting them
// to CSV, merging by filename prefix, and report generation preferences.
package config
