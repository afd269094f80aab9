package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/inkhuang/nhaneskit/internal/catalog"
	"github.com/inkhuang/nhaneskit/internal/config"
	"github.com/inkhuang/nhaneskit/internal/log"
	"github.com/inkhuang/nhaneskit/internal/model"
	"github.com/inkhuang/nhaneskit/internal/pipeline"
	"github.com/inkhuang/nhaneskit/internal/report"
	"github.com/spf13/cobra"
)

// addReportFlags registers the report output flags shared by the stage
// commands.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// buildBaseConfig creates a Config from the flags shared by all stage
// commands: the persistent root flags and the report flags.
func buildBaseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Verbose = getVerboseFlag(cmd)

	cfg.DataDir, err = cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}

	cfg.LogFile, err = cmd.Flags().GetString("log-file")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	// Always record runs in the catalog using the XDG data directory.
	cfg.SaveToCatalog = true
	cfg.CatalogDir = config.XDGDataDir()

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupRunLogger creates the structured logger for a run. When a log file
// is configured, every record is mirrored to it regardless of verbosity.
// The returned closer must be closed when the run finishes.
func setupRunLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	logger, closer, err := log.NewRunLogger(os.Stderr, cfg.LogFile, cfg.Verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// openCatalog opens the run catalog if saving is enabled.
// Returns nil without error when the catalog is disabled.
func openCatalog(cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	if !cfg.SaveToCatalog {
		return nil, nil
	}

	cat, err := catalog.Open(cfg.CatalogDir, catalog.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	logger.Info("catalog opened", "dir", cfg.CatalogDir)
	return cat, nil
}

// runStagePipeline executes a single-pipeline stage (convert, merge,
// classify), then outputs the report and records the run in the catalog.
func runStagePipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, stage string, p *pipeline.Pipeline) error {
	cat, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
	}

	runReport := model.NewRunReport(stage, "")

	fmt.Printf("Running %s stage...\n", stage)
	startTime := time.Now()

	execErr := p.Execute(ctx, runReport)
	runReport.Finish()

	elapsed := time.Since(startTime)
	fmt.Printf("Stage completed in %s\n\n", elapsed.Round(time.Millisecond))

	if err := outputReport(cfg, runReport); err != nil {
		logger.Error("report failed", "stage", stage, "error", err)
	}

	if err := saveRunReport(ctx, cat, runReport, logger); err != nil {
		logger.Error("failed to save run report", "stage", stage, "error", err)
	}

	return execErr
}

// outputReport outputs the run report in the requested format.
func outputReport(cfg *config.Config, runReport *model.RunReport) error {
	// Generate simple report if needed
	if runReport.SimpleReport == nil {
		runReport.SimpleReport = model.NewSimpleReport(runReport)
	}

	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (detailed report with all data)
	if cfg.JSONReport {
		writer := report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
		_, err := writer.Write(runReport)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(runReport)
		return err
	}

	// Human-readable report (default)
	writer := report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	_, err := writer.Write(runReport)
	return err
}

// saveRunReport records the run in the catalog if enabled.
// If cat is nil, this function is a no-op.
func saveRunReport(ctx context.Context, cat *catalog.Catalog, runReport *model.RunReport, logger *slog.Logger) error {
	if cat == nil {
		return nil
	}

	// Ensure SimpleReport is generated before saving
	if runReport.SimpleReport == nil {
		runReport.SimpleReport = model.NewSimpleReport(runReport)
	}

	if err := cat.SaveRunReport(ctx, runReport); err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}

	logger.Info("run report saved to catalog",
		"stage", runReport.Stage,
		"component", runReport.Component,
	)
	return nil
}

// recordDownloads stores each downloaded file in the catalog.
// If cat is nil, this function is a no-op.
func recordDownloads(ctx context.Context, cat *catalog.Catalog, runReport *model.RunReport, logger *slog.Logger) {
	if cat == nil {
		return
	}

	for _, file := range runReport.Downloaded {
		if err := cat.RecordDownload(ctx, file); err != nil {
			logger.Error("failed to record download",
				"url", file.URL,
				"error", err,
			)
		}
	}
}
