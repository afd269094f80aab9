package main

import (
	"fmt"

	"github.com/inkhuang/nhaneskit/internal/config"
	"github.com/inkhuang/nhaneskit/internal/model"
	"github.com/inkhuang/nhaneskit/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewMergeCmd creates the merge command.
func NewMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Group CSV files by dataset prefix and concatenate compatible groups",
		Long: `Merge groups the converted CSV files by their dataset prefix (the part
of the file name before the first "." or "_", e.g. DEMO for DEMO_J.csv)
and concatenates each group whose members share an identical ordered
column set.

Groups with a single member or with differing columns are recorded but
never merged. The grouping outcome is persisted as JSON and YAML
dictionaries next to the merged files.

Examples:
  # Merge all converted files
  nhaneskit merge

  # Merge a custom CSV tree
  nhaneskit merge --input-dir /data/csv --output-dir /data/merged`,
		RunE: runMergeCmd,
	}

	cmd.Flags().String("input-dir", "",
		"Directory of CSV files (default: <data-dir>/csv)")
	cmd.Flags().String("output-dir", "",
		"Directory for merged output (default: <data-dir>/merged)")

	addReportFlags(cmd)

	return cmd
}

// runMergeCmd executes the merge command.
func runMergeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildOrganizeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := setupRunLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signalContext(logger)
	defer cancel()

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}

	p := pipeline.MergePipeline(cfg, pipelineOpts, logger)
	return runStagePipeline(ctx, cfg, logger, model.StageMerge, p)
}

// buildOrganizeConfig creates a Config from the directory flags shared by
// the merge and classify commands.
func buildOrganizeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildBaseConfig(cmd)
	if err != nil {
		return nil, err
	}

	cfg.InputDir, err = cmd.Flags().GetString("input-dir")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
