// Package main provides the entry point for the nhaneskit CLI.
//
// nhaneskit is a batch ETL tool for NHANES survey data. It downloads SAS
// transport (.XPT) files from the CDC data portal, converts them to CSV,
// and merges datasets that share a common prefix across survey cycles.
//
// Usage:
//
//	nhaneskit fetch --download
//	nhaneskit convert
//	nhaneskit merge
//	nhaneskit classify --titles
//
// See --help for all available options.
package main

// main is the entry point for nhaneskit.
func main() {
	Execute()
}
