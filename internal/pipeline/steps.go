package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inkhuang/nhaneskit/internal/config"
	"github.com/inkhuang/nhaneskit/internal/convert"
	"github.com/inkhuang/nhaneskit/internal/crawler"
	"github.com/inkhuang/nhaneskit/internal/model"
	"github.com/inkhuang/nhaneskit/internal/organize"
)

// IndexStep builds or loads the per-component URL index.
//
// When updating, the component listing page is fetched and parsed for
// .XPT file links, and the sorted link list is written to
// <indexDir>/<Component>.txt. Otherwise the existing index file is
// loaded. A missing index file always triggers a fetch, so a first run
// works without --update.
type IndexStep struct {
	// fetcher retrieves the listing page.
	fetcher *crawler.Fetcher

	// listingURL is the component listing page, already formatted for
	// this component.
	listingURL string

	// indexDir is the directory holding per-component index files.
	indexDir string

	// update forces a refresh of the index file even when it exists.
	update bool

	// logger for structured logging.
	logger *slog.Logger
}

// IndexStepOption configures an IndexStep.
type IndexStepOption func(*IndexStep)

// WithIndexLogger sets a custom logger for the index step.
func WithIndexLogger(logger *slog.Logger) IndexStepOption {
	return func(s *IndexStep) {
		s.logger = logger
	}
}

// WithIndexUpdate forces the index file to be rebuilt from the listing
// page even when a cached copy exists.
func WithIndexUpdate(update bool) IndexStepOption {
	return func(s *IndexStep) {
		s.update = update
	}
}

// NewIndexStep creates a new index step for one component listing page.
func NewIndexStep(fetcher *crawler.Fetcher, listingURL, indexDir string, opts ...IndexStepOption) *IndexStep {
	s := &IndexStep{
		fetcher:    fetcher,
		listingURL: listingURL,
		indexDir:   indexDir,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do executes the index step.
func (s *IndexStep) Do(ctx context.Context, report *model.RunReport) error {
	indexPath := filepath.Join(s.indexDir, report.Component+".txt")

	if !s.update {
		urls, err := readIndexFile(indexPath)
		if err == nil {
			s.logger.Debug("loaded cached index",
				"component", report.Component,
				"urls", len(urls),
			)
			report.IndexURLs = urls
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("read index file: %w", err)
		}
		// No cached index yet: fall through to a fetch.
	}

	page, err := s.fetcher.FetchPage(ctx, s.listingURL)
	if err != nil {
		return fmt.Errorf("fetch listing page: %w", err)
	}

	parser, err := crawler.NewParser(s.listingURL)
	if err != nil {
		return fmt.Errorf("parse listing URL: %w", err)
	}
	urls, err := parser.DataFileLinks(bytes.NewReader(page))
	if err != nil {
		return fmt.Errorf("parse listing page: %w", err)
	}

	if err := writeIndexFile(indexPath, urls); err != nil {
		return err
	}

	s.logger.Info("index updated",
		"component", report.Component,
		"urls", len(urls),
	)
	report.IndexURLs = urls
	return nil
}

// readIndexFile loads the URL list from a per-component index file.
func readIndexFile(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is under the configured index directory
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	return urls, nil
}

// writeIndexFile writes the URL list one per line, via a temporary file
// so a cancelled run never leaves a truncated index behind.
func writeIndexFile(path string, urls []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	for _, u := range urls {
		if _, err := fmt.Fprintln(tmp, u); err != nil {
			return fmt.Errorf("write index file: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

// DownloadStep downloads the component's indexed data files into the
// raw tree, laid out as <rawDir>/<cycle>/<component>/<name>.
//
// Design decision: Download failures never abort the step. Each failed
// file is logged and recorded on the report, matching the
// retry-then-skip behavior a long unattended batch run needs.
type DownloadStep struct {
	// fetcher downloads files with retry and politeness delay.
	fetcher *crawler.Fetcher

	// rawDir is the root of the downloaded file tree.
	rawDir string

	// cycleFilter restricts downloads to the listed survey cycles.
	// Empty means all cycles.
	cycleFilter config.ComponentConfig

	// logger for structured logging.
	logger *slog.Logger
}

// DownloadStepOption configures a DownloadStep.
type DownloadStepOption func(*DownloadStep)

// WithDownloadLogger sets a custom logger for the download step.
func WithDownloadLogger(logger *slog.Logger) DownloadStepOption {
	return func(s *DownloadStep) {
		s.logger = logger
	}
}

// WithDownloadCycles restricts downloads to the given survey cycles.
func WithDownloadCycles(cycles []string) DownloadStepOption {
	return func(s *DownloadStep) {
		s.cycleFilter = config.ComponentConfig{Cycles: cycles}
	}
}

// NewDownloadStep creates a new download step writing under rawDir.
func NewDownloadStep(fetcher *crawler.Fetcher, rawDir string, opts ...DownloadStepOption) *DownloadStep {
	s := &DownloadStep{
		fetcher: fetcher,
		rawDir:  rawDir,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do executes the download step.
func (s *DownloadStep) Do(ctx context.Context, report *model.RunReport) error {
	for _, fileURL := range report.IndexURLs {
		select {
		case <-ctx.Done():
			report.TimedOut = true
			return ctx.Err()
		default:
		}

		file := model.NewDatasetFile(fileURL, report.Component)
		if !s.cycleFilter.WantsCycle(file.Cycle) {
			continue
		}

		dest := filepath.Join(s.rawDir, file.Cycle, file.Component, file.Name)
		downloaded, err := s.fetcher.FetchFile(ctx, fileURL, dest)
		if err != nil {
			s.logger.Warn("download failed",
				"url", fileURL,
				"error", err,
			)
			report.AddFailure(fileURL, err)
			continue
		}

		if !downloaded {
			report.SkippedExisting = append(report.SkippedExisting, dest)
			continue
		}

		file.Path = dest
		file.DownloadedAt = time.Now()
		if info, err := os.Stat(dest); err == nil {
			file.Size = info.Size()
		}
		report.Downloaded = append(report.Downloaded, file)

		// Politeness delay between actual downloads only; skipped files
		// cost the portal nothing.
		if err := s.fetcher.Delay(ctx); err != nil {
			report.TimedOut = true
			return err
		}
	}

	return nil
}

// ConvertStep decodes the downloaded transport files into CSV.
//
// The label map, when enabled, is loaded from the sidecar .JSON files in
// the input tree at execution time rather than at construction, so a
// fetch that ran earlier in the same invocation is picked up.
type ConvertStep struct {
	// inputDir is the root of the .XPT tree.
	inputDir string

	// outputDir is the root of the mirrored .csv tree.
	outputDir string

	// labels enables column relabeling from sidecar label maps.
	labels bool

	// removeSource deletes each .XPT after its CSV is written.
	removeSource bool

	// force re-runs conversions whose output already exists.
	force bool

	// logger for structured logging.
	logger *slog.Logger
}

// ConvertStepOption configures a ConvertStep.
type ConvertStepOption func(*ConvertStep)

// WithConvertLogger sets a custom logger for the convert step.
func WithConvertLogger(logger *slog.Logger) ConvertStepOption {
	return func(s *ConvertStep) {
		s.logger = logger
	}
}

// WithConvertLabels enables column relabeling from sidecar label maps.
func WithConvertLabels(labels bool) ConvertStepOption {
	return func(s *ConvertStep) {
		s.labels = labels
	}
}

// WithConvertRemoveSource deletes each source file after conversion.
func WithConvertRemoveSource(remove bool) ConvertStepOption {
	return func(s *ConvertStep) {
		s.removeSource = remove
	}
}

// WithConvertForce re-runs conversions whose output already exists.
func WithConvertForce(force bool) ConvertStepOption {
	return func(s *ConvertStep) {
		s.force = force
	}
}

// NewConvertStep creates a new conversion step.
func NewConvertStep(inputDir, outputDir string, opts ...ConvertStepOption) *ConvertStep {
	s := &ConvertStep{
		inputDir:  inputDir,
		outputDir: outputDir,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ConvertStep) Name() string {
	return "convert"
}

// Do executes the conversion step.
func (s *ConvertStep) Do(ctx context.Context, report *model.RunReport) error {
	opts := []convert.Option{
		convert.WithLogger(s.logger),
		convert.WithRemoveSource(s.removeSource),
		convert.WithForce(s.force),
	}

	if s.labels {
		labels, err := convert.LoadLabelMap(s.inputDir, s.logger)
		if err != nil {
			return fmt.Errorf("load label maps: %w", err)
		}
		opts = append(opts, convert.WithLabels(labels))
	}

	return convert.New(s.inputDir, s.outputDir, opts...).Run(ctx, report)
}

// GroupStep partitions the converted CSV tree into merge groups by
// filename prefix and stores them on the report for the following steps.
type GroupStep struct {
	organizer *organize.Organizer
	logger    *slog.Logger
}

// NewGroupStep creates a new grouping step.
func NewGroupStep(organizer *organize.Organizer, logger *slog.Logger) *GroupStep {
	return &GroupStep{organizer: organizer, logger: logger}
}

// Name returns the step name.
func (s *GroupStep) Name() string {
	return "group"
}

// Do executes the grouping step.
func (s *GroupStep) Do(ctx context.Context, report *model.RunReport) error {
	files, err := s.organizer.FileDict(".csv")
	if err != nil {
		return fmt.Errorf("walk CSV tree: %w", err)
	}

	report.Groups = s.organizer.Groups(files)
	s.logger.Info("grouped files",
		"files", len(files),
		"groups", len(report.Groups),
	)
	return nil
}

// SchemaCheckStep verifies that every group's members share an identical
// ordered column set before any merging happens.
type SchemaCheckStep struct {
	organizer *organize.Organizer
}

// NewSchemaCheckStep creates a new schema check step.
func NewSchemaCheckStep(organizer *organize.Organizer) *SchemaCheckStep {
	return &SchemaCheckStep{organizer: organizer}
}

// Name returns the step name.
func (s *SchemaCheckStep) Name() string {
	return "schema_check"
}

// Do executes the schema check step.
func (s *SchemaCheckStep) Do(ctx context.Context, report *model.RunReport) error {
	return s.organizer.CheckColumns(ctx, report.Groups, report)
}

// MergeStep concatenates the compatible multi-member groups and persists
// the grouping dictionaries next to the merged output.
type MergeStep struct {
	organizer *organize.Organizer

	// dictDir is where the JSON/YAML dictionaries are written.
	dictDir string
}

// NewMergeStep creates a new merge step writing dictionaries to dictDir.
func NewMergeStep(organizer *organize.Organizer, dictDir string) *MergeStep {
	return &MergeStep{organizer: organizer, dictDir: dictDir}
}

// Name returns the step name.
func (s *MergeStep) Name() string {
	return "merge"
}

// Do executes the merge step.
func (s *MergeStep) Do(ctx context.Context, report *model.RunReport) error {
	if err := s.organizer.Merge(ctx, report.Groups, report); err != nil {
		return err
	}

	// The filename dictionary is reconstructed from the groups rather
	// than re-walking the tree; the grouping step already visited it.
	files := make(map[string]string)
	for _, g := range report.Groups {
		for _, member := range g.Members {
			files[filepath.Base(member)] = member
		}
	}

	if err := os.MkdirAll(s.dictDir, 0750); err != nil {
		return fmt.Errorf("create dictionary directory: %w", err)
	}
	return s.organizer.WriteMergeDicts(s.dictDir, files, report.Groups)
}

// ClassifyStep copies group members into the classified tree and, when
// enabled, extracts dataset titles from documentation sidecars.
type ClassifyStep struct {
	organizer *organize.Organizer

	// titles enables dataset title extraction.
	titles bool

	// dictDir is where the title dictionary is written.
	dictDir string
}

// ClassifyStepOption configures a ClassifyStep.
type ClassifyStepOption func(*ClassifyStep)

// WithClassifyTitles enables dataset title extraction and sets the
// directory the title dictionary is written to.
func WithClassifyTitles(dictDir string) ClassifyStepOption {
	return func(s *ClassifyStep) {
		s.titles = true
		s.dictDir = dictDir
	}
}

// NewClassifyStep creates a new classification step.
func NewClassifyStep(organizer *organize.Organizer, opts ...ClassifyStepOption) *ClassifyStep {
	s := &ClassifyStep{organizer: organizer}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do executes the classification step.
func (s *ClassifyStep) Do(ctx context.Context, report *model.RunReport) error {
	if err := s.organizer.Classify(ctx, report.Groups, report); err != nil {
		return err
	}

	if !s.titles {
		return nil
	}

	titles, err := s.organizer.Titles(ctx, report.Groups)
	if err != nil {
		return err
	}
	report.Titles = titles

	if err := os.MkdirAll(s.dictDir, 0750); err != nil {
		return fmt.Errorf("create dictionary directory: %w", err)
	}
	return s.organizer.WriteTitleDict(s.dictDir, titles)
}

// FetchPipeline creates the pipeline run per component during fetch:
// the index step, and the download step when downloading is enabled.
//
// Design decision: We provide per-stage pipeline constructors because:
// 1. Each CLI command wants the same step ordering
// 2. Reduces boilerplate in the CLI
// 3. Keeps step wiring decisions next to the steps themselves
func FetchPipeline(cfg *config.Config, client *http.Client, component string, pipelineOpts []Option, logger *slog.Logger) *Pipeline {
	p := New(pipelineOpts...)

	fetcher := crawler.NewFetcher(client,
		crawler.WithRetries(cfg.Retries),
		crawler.WithDelay(cfg.FetchDelay),
		crawler.WithUserAgent(cfg.UserAgent),
	)

	listingURL := fmt.Sprintf(cfg.ListingURL, component)
	var cycles []string
	if cfg.ComponentConfigs != nil {
		cc := cfg.ComponentConfigs.GetComponentConfig(component)
		if cc.ListingURL != "" {
			listingURL = cc.ListingURL
		}
		cycles = cc.Cycles
	}

	p.AddStep(NewIndexStep(fetcher, listingURL, cfg.IndexDir(),
		WithIndexUpdate(cfg.UpdateIndex),
		WithIndexLogger(logger),
	))

	if cfg.Download {
		p.AddStep(NewDownloadStep(fetcher, cfg.RawDir(),
			WithDownloadCycles(cycles),
			WithDownloadLogger(logger),
		))
	}

	return p
}

// ConvertPipeline creates the pipeline for the convert stage.
func ConvertPipeline(cfg *config.Config, pipelineOpts []Option, logger *slog.Logger) *Pipeline {
	p := New(pipelineOpts...)

	inputDir := cfg.RawDir()
	if cfg.InputDir != "" {
		inputDir = cfg.InputDir
	}
	outputDir := cfg.CSVDir()
	if cfg.OutputDir != "" {
		outputDir = cfg.OutputDir
	}

	p.AddStep(NewConvertStep(inputDir, outputDir,
		WithConvertLabels(cfg.Labels),
		WithConvertRemoveSource(cfg.RemoveSource),
		WithConvertForce(cfg.Force),
		WithConvertLogger(logger),
	))

	return p
}

// MergePipeline creates the pipeline for the merge stage: group the CSV
// tree, check column compatibility, then concatenate compatible groups.
func MergePipeline(cfg *config.Config, pipelineOpts []Option, logger *slog.Logger) *Pipeline {
	p := New(pipelineOpts...)

	organizer := mergeOrganizer(cfg, logger)
	mergedDir := cfg.MergedDir()
	if cfg.OutputDir != "" {
		mergedDir = cfg.OutputDir
	}

	p.AddSteps(
		NewGroupStep(organizer, logger),
		NewSchemaCheckStep(organizer),
		NewMergeStep(organizer, mergedDir),
	)

	return p
}

// ClassifyPipeline creates the pipeline for the classify stage: group
// the CSV tree, then copy members into the classified layout.
func ClassifyPipeline(cfg *config.Config, pipelineOpts []Option, logger *slog.Logger) *Pipeline {
	p := New(pipelineOpts...)

	organizer := mergeOrganizer(cfg, logger)
	classifiedDir := cfg.ClassifiedDir()
	if cfg.OutputDir != "" {
		classifiedDir = cfg.OutputDir
	}

	classifyOpts := []ClassifyStepOption{}
	if cfg.Titles {
		classifyOpts = append(classifyOpts, WithClassifyTitles(classifiedDir))
	}

	p.AddSteps(
		NewGroupStep(organizer, logger),
		NewClassifyStep(organizer, classifyOpts...),
	)

	return p
}

// mergeOrganizer builds the Organizer shared by the merge and classify
// pipelines, honoring the input/output directory overrides.
func mergeOrganizer(cfg *config.Config, logger *slog.Logger) *organize.Organizer {
	csvDir := cfg.CSVDir()
	if cfg.InputDir != "" {
		csvDir = cfg.InputDir
	}
	mergedDir := cfg.MergedDir()
	classifiedDir := cfg.ClassifiedDir()
	if cfg.OutputDir != "" {
		mergedDir = cfg.OutputDir
		classifiedDir = cfg.OutputDir
	}

	return organize.New(csvDir, mergedDir, classifiedDir,
		organize.WithLogger(logger),
	)
}
