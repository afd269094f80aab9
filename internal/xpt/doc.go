// Package xpt decodes SAS transport (XPORT version 5) files, the binary
// tabular format NHANES publishes its data files in.
//
// A transport file is a sequence of 80-byte records: a library header, a
// member header describing one dataset, NAMESTR records describing the
// dataset's variables, and finally the observation rows packed back to
// back. Numeric values are stored as truncated IBM System/360 doubles and
// are converted to IEEE 754 on read; character values are fixed-width,
// space padded, and decoded as Windows-1252.
//
// The Reader exposes the dataset's variables and streams observation rows
// one at a time, so arbitrarily large files can be converted without
// loading them into memory.
//
// NHANES transport files carry exactly one dataset per file; the Reader
// decodes the first member and ignores any that follow.
package xpt
