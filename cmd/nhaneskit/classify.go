package main

import (
	"fmt"

	"github.com/inkhuang/nhaneskit/internal/model"
	"github.com/inkhuang/nhaneskit/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Copy grouped CSV files into a browsable tree",
		Long: `Classify copies the converted CSV files into per-prefix directories
under <data-dir>/classified/, renaming each file to
<component>_<cycle>_<name>.csv so the survey context is visible in the
file name. Documentation sidecars (.htm) are copied alongside.

With --titles, the dataset titles are extracted from the .htm
documentation pages and written to a name dictionary.

Examples:
  # Classify all converted files
  nhaneskit classify

  # Classify and extract dataset titles
  nhaneskit classify --titles`,
		RunE: runClassifyCmd,
	}

	cmd.Flags().Bool("titles", false,
		"Extract dataset titles from .htm documentation pages")
	cmd.Flags().String("input-dir", "",
		"Directory of CSV files (default: <data-dir>/csv)")
	cmd.Flags().String("output-dir", "",
		"Directory for the classified tree (default: <data-dir>/classified)")

	addReportFlags(cmd)

	return cmd
}

// runClassifyCmd executes the classify command.
func runClassifyCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildOrganizeConfig(cmd)
	if err != nil {
		return err
	}

	cfg.Titles, err = cmd.Flags().GetBool("titles")
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

	p := pipeline.ClassifyPipeline(cfg, pipelineOpts, logger)
	return runStagePipeline(ctx, cfg, logger, model.StageClassify, p)
}
