package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/inkhuang/nhaneskit/internal/config"
	"github.com/inkhuang/nhaneskit/internal/model"
	"github.com/inkhuang/nhaneskit/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Index NHANES component pages and download .XPT files",
		Long: `Fetch scrapes the NHANES component listing pages for SAS transport
(.XPT) file links and downloads them.

For each component, the discovered file URLs are written to an index file
under <data-dir>/index/. Downloads are only performed with --download;
files already present on disk are skipped, so interrupted runs can be
resumed by re-running the command.

Examples:
  # Rebuild the URL index for all components
  nhaneskit fetch --update

  # Download files from the existing index
  nhaneskit fetch --download

  # Index and download selected components only
  nhaneskit fetch -u -d --components Demographics,Laboratory

  # Use a custom configuration file with per-component cycles
  nhaneskit fetch -d -c myconfig.yaml

Configuration file (.nhaneskit) example:
  components:
    Demographics:
      cycles: ["2017-2018", "2015-2016"]
    Laboratory: {}
  defaults:
    cycles: []`,
		RunE: runFetchCmd,
	}

	// Fetch behavior flags
	cmd.Flags().BoolP("update", "u", false,
		"Rebuild the per-component URL index from the listing pages")
	cmd.Flags().BoolP("download", "d", false,
		"Download .XPT files from the URL index")
	cmd.Flags().StringSlice("components", nil,
		"NHANES components to fetch (default: all survey components)")
	cmd.Flags().String("listing-url", config.DefaultListingURL,
		"Component listing page URL template with one %s placeholder")

	// HTTP flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Download attempts per file before it is skipped")
	cmd.Flags().Duration("delay", config.DefaultFetchDelay,
		"Politeness delay between download requests")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with HTTP requests")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of components processed concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .nhaneskit in current or home directory)")

	addReportFlags(cmd)

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildFetchConfig(cmd)
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

	return runFetch(ctx, cfg, logger)
}

// buildFetchConfig creates a Config from the fetch command flags.
func buildFetchConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildBaseConfig(cmd)
	if err != nil {
		return nil, err
	}

	cfg.UpdateIndex, err = cmd.Flags().GetBool("update")
	if err != nil {
		return nil, err
	}

	cfg.Download, err = cmd.Flags().GetBool("download")
	if err != nil {
		return nil, err
	}

	// With neither flag given, a bare "nhaneskit fetch" does the full stage.
	if !cfg.UpdateIndex && !cfg.Download {
		cfg.UpdateIndex = true
		cfg.Download = true
	}

	components, err := cmd.Flags().GetStringSlice("components")
	if err != nil {
		return nil, err
	}
	if len(components) > 0 {
		cfg.Components = components
	}

	cfg.ListingURL, err = cmd.Flags().GetString("listing-url")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Retries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.FetchDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-component configurations from the config file.
	// If the user explicitly specified a config file path, error if not
	// found. If no path was specified, silently use an empty config.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.ComponentConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.ComponentConfigs = &config.File{
			Components: make(map[string]config.ComponentConfig),
		}
	}

	// The config file narrows the component set unless flags already did.
	if len(components) == 0 {
		if names := cfg.ComponentConfigs.ComponentNames(); len(names) > 0 {
			cfg.Components = names
		}
	}

	return cfg, nil
}

// runFetch processes all configured components concurrently.
func runFetch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting fetch",
		"components", cfg.Components,
		"updateIndex", cfg.UpdateIndex,
		"download", cfg.Download,
		"batchSize", cfg.BatchSize,
	)

	cat, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
	}

	client := &http.Client{Timeout: cfg.Timeout}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}

	fmt.Printf("Fetching %d component(s) (concurrency: %d)...\n\n",
		len(cfg.Components), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		model.StageFetch,
		func(component string) *pipeline.Pipeline {
			return pipeline.FetchPipeline(cfg, client, component, pipelineOpts, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err = bp.ProcessBatchWithCallback(ctx, cfg.Components, func(runReport *model.RunReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Component completed: %s\n",
			index+1, len(cfg.Components), runReport.Component)

		if err := outputReport(cfg, runReport); err != nil {
			logger.Error("report failed", "component", runReport.Component, "error", err)
		}

		recordDownloads(ctx, cat, runReport, logger)

		if err := saveRunReport(ctx, cat, runReport, logger); err != nil {
			logger.Error("failed to save run report",
				"component", runReport.Component, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nFetch completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}
