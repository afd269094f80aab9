// Package convert turns downloaded SAS transport files into CSV files.
//
// The Converter walks the raw data tree, decodes each .XPT file with the
// xpt package, and writes a CSV mirror of the tree. Column headers can be
// relabeled from sidecar .JSON label maps, matching the variable name
// case-insensitively. Decode failures are recorded per file and skipped;
// a bad transport file never aborts the stage.
package convert
