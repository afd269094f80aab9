package main

import (
	"fmt"

	"github.com/inkhuang/nhaneskit/internal/config"
	"github.com/inkhuang/nhaneskit/internal/model"
	"github.com/inkhuang/nhaneskit/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewConvertCmd creates the convert command.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Decode SAS transport (.XPT) files to CSV",
		Long: `Convert walks the raw download tree, decodes every SAS transport
(.XPT) file and writes a CSV file with the same relative path under
<data-dir>/csv/.

Conversions whose CSV output already exists are skipped unless --force
is given. With --labels, variable names are replaced using sidecar
.JSON label maps found next to the transport files.

Examples:
  # Convert all downloaded files
  nhaneskit convert

  # Re-run conversions and relabel columns
  nhaneskit convert --force --labels

  # Convert a custom directory and delete sources afterwards
  nhaneskit convert --input-dir /data/xpt --remove-source`,
		RunE: runConvertCmd,
	}

	cmd.Flags().BoolP("labels", "l", false,
		"Relabel columns using sidecar .JSON label maps")
	cmd.Flags().Bool("remove-source", false,
		"Delete each .XPT file after its CSV is fully written")
	cmd.Flags().BoolP("force", "f", false,
		"Re-run conversions whose CSV output already exists")
	cmd.Flags().String("input-dir", "",
		"Directory of .XPT files (default: <data-dir>/raw)")
	cmd.Flags().String("output-dir", "",
		"Directory for CSV output (default: <data-dir>/csv)")

	addReportFlags(cmd)

	return cmd
}

// runConvertCmd executes the convert command.
func runConvertCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConvertConfig(cmd)
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

	p := pipeline.ConvertPipeline(cfg, pipelineOpts, logger)
	return runStagePipeline(ctx, cfg, logger, model.StageConvert, p)
}

// buildConvertConfig creates a Config from the convert command flags.
func buildConvertConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildBaseConfig(cmd)
	if err != nil {
		return nil, err
	}

	cfg.Labels, err = cmd.Flags().GetBool("labels")
	if err != nil {
		return nil, err
	}

	cfg.RemoveSource, err = cmd.Flags().GetBool("remove-source")
	if err != nil {
		return nil, err
	}

	cfg.Force, err = cmd.Flags().GetBool("force")
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
