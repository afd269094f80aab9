package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/inkhuang/nhaneskit/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor handles concurrent processing of multiple survey
// components. It uses errgroup to manage goroutines and respect
// concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-component execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each component.
	// We use a factory to ensure each component gets a fresh pipeline
	// instance, and to allow per-component configuration (listing URL,
	// cycle filters).
	pipelineFactory func(component string) *Pipeline

	// stage is the pipeline stage the batch runs, recorded on each report.
	stage string

	// concurrency is the maximum number of components processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed component reports.
	// Access is synchronized via mutex.
	results []*model.RunReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of components processed
// concurrently. Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor for the given stage.
//
// The pipelineFactory function is called for each component to create a
// fresh pipeline instance. This ensures that pipeline state doesn't leak
// between components and allows for per-component customization.
func NewBatchProcessor(stage string, pipelineFactory func(component string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		stage:           stage,
		concurrency:     4,
		results:         make([]*model.RunReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs the pipeline for multiple components concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each component gets its own goroutine, but only 'concurrency'
// goroutines run simultaneously.
//
// Returns all reports collected, even for components that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, components []string) ([]*model.RunReport, error) {
	bp.logger.Info("starting batch processing",
		"stage", bp.stage,
		"total_components", len(components),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.RunReport, len(components))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, component := range components {
		i, component := i, component
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("processing component",
				"component", component,
				"index", i+1,
				"total", len(components),
			)

			// Create report for this component
			report := model.NewRunReport(bp.stage, component)

			// Create and execute pipeline
			pipeline := bp.pipelineFactory(component)
			err := pipeline.Execute(ctx, report)
			report.Finish()

			// Store result regardless of error
			// The report contains error information if the run failed
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("component failed",
					"component", component,
					"error", err,
				)
				// Don't return error to errgroup - we want to continue
				// the other components. The error is recorded in the report.
				return nil
			}

			bp.logger.Info("component completed",
				"component", component,
			)

			return nil
		})
	}

	// Wait for all components to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"stage", bp.stage,
		"total_components", len(components),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback runs the pipeline for multiple components and
// calls a callback for each completed component. This is useful for
// streaming results.
//
// The callback receives the report and the index of the component in the
// original slice. The callback is called from the goroutine that completed
// the component, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	components []string,
	callback func(report *model.RunReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"stage", bp.stage,
		"total_components", len(components),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, component := range components {
		i, component := i, component
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewRunReport(bp.stage, component)
			pipeline := bp.pipelineFactory(component)
			_ = pipeline.Execute(ctx, report) //nolint:errcheck // Error is stored in report
			report.Finish()

			// Call the callback with the result
			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
