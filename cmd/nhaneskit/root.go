// Package main provides the entry point for the nhaneskit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/inkhuang/nhaneskit/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for nhaneskit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nhaneskit",
		Short: "Batch ETL tool for NHANES public health survey data",
		Long: `nhaneskit downloads, converts and merges NHANES survey data files.

The pipeline runs in four stages, each with its own subcommand:

  fetch     index component listing pages and download .XPT files
  convert   decode SAS transport files to CSV
  merge     group CSVs by dataset prefix and concatenate compatible groups
  classify  copy grouped files into a browsable tree with extracted titles

Each stage reads the previous stage's output under the data directory,
so the stages can be run independently and re-run safely.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("data-dir", config.DefaultDataDir,
		"Root directory for downloaded and derived data")
	cmd.PersistentFlags().String("log-file", "",
		"Write a copy of all log output to this file")

	// Add subcommands
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewConvertCmd())
	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
