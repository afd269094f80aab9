package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/inkhuang/nhaneskit/internal/model"
)

// setupTestCatalog creates a temporary catalog for testing.
func setupTestCatalog(t *testing.T) (*Catalog, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	c, err := Open(tmpDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}

	cleanup := func() {
		_ = c.Close()
	}

	return c, cleanup
}

// TestOpen tests catalog opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates catalog in new directory", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()

		dbDir := filepath.Join(tmpDir, "newdir", "subdir")
		c, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open catalog: %v", err)
		}
		defer c.Close()

		// Check that database file exists
		dbPath := filepath.Join(dbDir, "nhaneskit.db")
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("catalog file was not created")
		}
	})

	t.Run("CreateIfNotExists=false returns error when catalog does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")

		opts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}

		if _, err := Open(dbDir, opts); err == nil {
			t.Fatal("expected error for missing catalog")
		}
	})

	t.Run("CreateIfNotExists=false opens existing catalog", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()

		// Create the catalog first
		c, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create catalog: %v", err)
		}
		_ = c.Close()

		opts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}
		c, err = Open(dbDir, opts)
		if err != nil {
			t.Fatalf("failed to open existing catalog: %v", err)
		}
		defer c.Close()
	})
}

// TestDefaultOptions tests the default option values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()

	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true")
	}
}

// TestRecordAndGetDownload tests download record round-trips and upserts.
func TestRecordAndGetDownload(t *testing.T) {
	t.Parallel()

	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	ctx := context.Background()

	file := model.DatasetFile{
		URL:       "https://example.com/2017-2018/DEMO_J.XPT",
		Component: "Demographics",
		Cycle:     "2017-2018",
		Name:      "DEMO_J.XPT",
		Path:      "/data/raw/2017-2018/Demographics/DEMO_J.XPT",
		Size:      1024,
	}

	if err := c.RecordDownload(ctx, file); err != nil {
		t.Fatalf("failed to record download: %v", err)
	}

	got, err := c.GetDownload(ctx, file.URL)
	if err != nil {
		t.Fatalf("failed to get download: %v", err)
	}
	if got == nil {
		t.Fatal("expected download record, got nil")
	}
	if got.Component != "Demographics" || got.Cycle != "2017-2018" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Size != 1024 {
		t.Errorf("size = %d, expected 1024", got.Size)
	}
	if got.DownloadedAt.IsZero() {
		t.Error("expected non-zero download timestamp")
	}

	// Upsert refreshes the existing row instead of duplicating it
	file.Size = 2048
	if err := c.RecordDownload(ctx, file); err != nil {
		t.Fatalf("failed to upsert download: %v", err)
	}

	counts, err := c.DownloadCounts(ctx)
	if err != nil {
		t.Fatalf("failed to count downloads: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("expected 1 count row, got %d", len(counts))
	}
	if counts[0].Files != 1 {
		t.Errorf("files = %d, expected 1 after upsert", counts[0].Files)
	}
	if counts[0].Bytes != 2048 {
		t.Errorf("bytes = %d, expected 2048 after upsert", counts[0].Bytes)
	}
}

// TestGetDownloadMissing tests the nil return for unknown URLs.
func TestGetDownloadMissing(t *testing.T) {
	t.Parallel()

	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	got, err := c.GetDownload(context.Background(), "https://example.com/unknown.XPT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown URL, got %+v", got)
	}
}

// TestDownloadCounts tests per-component, per-cycle grouping.
func TestDownloadCounts(t *testing.T) {
	t.Parallel()

	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	ctx := context.Background()

	files := []model.DatasetFile{
		{URL: "https://e.com/2017-2018/DEMO_J.XPT", Component: "Demographics", Cycle: "2017-2018", Name: "DEMO_J.XPT", Size: 10},
		{URL: "https://e.com/2015-2016/DEMO_I.XPT", Component: "Demographics", Cycle: "2015-2016", Name: "DEMO_I.XPT", Size: 20},
		{URL: "https://e.com/2017-2018/DR1TOT_J.XPT", Component: "Dietary", Cycle: "2017-2018", Name: "DR1TOT_J.XPT", Size: 30},
	}
	for _, f := range files {
		if err := c.RecordDownload(ctx, f); err != nil {
			t.Fatalf("failed to record download: %v", err)
		}
	}

	counts, err := c.DownloadCounts(ctx)
	if err != nil {
		t.Fatalf("failed to count downloads: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("expected 3 count rows, got %d", len(counts))
	}
	// Ordered by component then cycle
	if counts[0].Component != "Demographics" || counts[0].Cycle != "2015-2016" {
		t.Errorf("unexpected first row: %+v", counts[0])
	}
	if counts[2].Component != "Dietary" {
		t.Errorf("unexpected last row: %+v", counts[2])
	}
}

// TestRunReports tests run report storage and retrieval.
func TestRunReports(t *testing.T) {
	t.Parallel()

	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	ctx := context.Background()

	report := model.NewRunReport(model.StageFetch, "Demographics")
	report.IndexURLs = []string{"https://e.com/2017-2018/DEMO_J.XPT"}
	report.Downloaded = []model.DatasetFile{
		{URL: "https://e.com/2017-2018/DEMO_J.XPT", Component: "Demographics", Cycle: "2017-2018", Name: "DEMO_J.XPT"},
	}
	report.Finish()
	report.SimpleReport = model.NewSimpleReport(report)

	if err := c.SaveRunReport(ctx, report); err != nil {
		t.Fatalf("failed to save run report: %v", err)
	}

	got, err := c.LatestRunReport(ctx, model.StageFetch, "Demographics")
	if err != nil {
		t.Fatalf("failed to get run report: %v", err)
	}
	if got == nil {
		t.Fatal("expected run report, got nil")
	}
	if got.Stage != model.StageFetch || got.Component != "Demographics" {
		t.Errorf("unexpected report: stage=%q component=%q", got.Stage, got.Component)
	}
	if len(got.Downloaded) != 1 {
		t.Errorf("expected 1 downloaded file, got %d", len(got.Downloaded))
	}
}

// TestLatestRunReportMissing tests the nil return for unknown stages.
func TestLatestRunReportMissing(t *testing.T) {
	t.Parallel()

	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	got, err := c.LatestRunReport(context.Background(), model.StageMerge, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty catalog, got %+v", got)
	}
}

// TestRunHistory tests metadata retrieval with and without a stage filter.
func TestRunHistory(t *testing.T) {
	t.Parallel()

	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	ctx := context.Background()

	fetchReport := model.NewRunReport(model.StageFetch, "Demographics")
	fetchReport.Downloaded = []model.DatasetFile{{URL: "https://e.com/DEMO_J.XPT"}}
	fetchReport.Finish()
	if err := c.SaveRunReport(ctx, fetchReport); err != nil {
		t.Fatalf("failed to save fetch report: %v", err)
	}

	mergeReport := model.NewRunReport(model.StageMerge, "")
	mergeReport.Groups = []model.MergeGroup{
		{Prefix: "DEMO", Members: []string{"a.csv", "b.csv"}, Compatible: true, MergedPath: "/m/DEMO.csv"},
	}
	mergeReport.Finish()
	if err := c.SaveRunReport(ctx, mergeReport); err != nil {
		t.Fatalf("failed to save merge report: %v", err)
	}

	all, err := c.RunHistory(ctx, "")
	if err != nil {
		t.Fatalf("failed to get run history: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(all))
	}

	merges, err := c.RunHistory(ctx, model.StageMerge)
	if err != nil {
		t.Fatalf("failed to get merge history: %v", err)
	}
	if len(merges) != 1 {
		t.Fatalf("expected 1 merge row, got %d", len(merges))
	}
	if merges[0].Summary["merged"] != 1 {
		t.Errorf("merged count = %d, expected 1", merges[0].Summary["merged"])
	}
}

// TestRunReportByID tests retrieval by database ID.
func TestRunReportByID(t *testing.T) {
	t.Parallel()

	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	ctx := context.Background()

	report := model.NewRunReport(model.StageConvert, "")
	report.Conversions = []model.Conversion{{Source: "a.XPT", Output: "a.csv", Rows: 2, Columns: 3}}
	report.Finish()
	if err := c.SaveRunReport(ctx, report); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	history, err := c.RunHistory(ctx, model.StageConvert)
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(history))
	}

	got, err := c.RunReportByID(ctx, history[0].ID)
	if err != nil {
		t.Fatalf("failed to get report by ID: %v", err)
	}
	if got == nil {
		t.Fatal("expected report, got nil")
	}
	if len(got.Conversions) != 1 || got.Conversions[0].Rows != 2 {
		t.Errorf("unexpected conversions: %+v", got.Conversions)
	}

	missing, err := c.RunReportByID(ctx, 9999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown ID, got %+v", missing)
	}
}
