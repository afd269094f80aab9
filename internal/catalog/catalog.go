package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/inkhuang/nhaneskit/internal/model"
)

// Catalog provides SQLite-based storage for download history and run
// reports. It manages connection pooling and provides methods for CRUD
// operations.
//
// Design decision: We use a single database file for all stages rather
// than separate files per component. This simplifies cross-component
// queries (the status overview) and backup/restore operations.
type Catalog struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Catalog behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default catalog options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Catalog at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Catalog, error) {
	dbPath := filepath.Join(dbDir, "nhaneskit.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check catalog path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	c := &Catalog{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := c.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// createTables creates the catalog schema if it doesn't exist.
func (c *Catalog) createTables() error {
	schema := `
	-- Download records store individual file fetches
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		component TEXT NOT NULL,
		cycle TEXT NOT NULL,
		name TEXT NOT NULL,
		path TEXT,
		size INTEGER DEFAULT 0,
		downloaded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(url)
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_component ON downloads(component);
	CREATE INDEX IF NOT EXISTS idx_downloads_cycle ON downloads(cycle);

	-- Run reports store complete stage run outcomes as JSON
	CREATE TABLE IF NOT EXISTS run_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stage TEXT NOT NULL,
		component TEXT NOT NULL DEFAULT '',
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		outcome_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_stage ON run_reports(stage);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON run_reports(timestamp);
	`

	_, err := c.db.ExecContext(context.Background(), schema)
	return err
}

// RecordDownload inserts or updates a download record.
// Uses UPSERT keyed on the file URL, so re-running fetch refreshes the
// existing row instead of duplicating it.
func (c *Catalog) RecordDownload(ctx context.Context, file model.DatasetFile) error {
	query := `
	INSERT INTO downloads (url, component, cycle, name, path, size)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		component = excluded.component,
		cycle = excluded.cycle,
		name = excluded.name,
		path = excluded.path,
		size = excluded.size,
		downloaded_at = CURRENT_TIMESTAMP
	`

	_, err := c.db.ExecContext(ctx, query,
		file.URL,
		file.Component,
		file.Cycle,
		file.Name,
		file.Path,
		file.Size,
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}

	return nil
}

// GetDownload retrieves a download record by file URL.
// Returns nil without error when the URL has never been downloaded.
func (c *Catalog) GetDownload(ctx context.Context, fileURL string) (*model.DatasetFile, error) {
	query := `
	SELECT url, component, cycle, name, path, size, downloaded_at
	FROM downloads
	WHERE url = ?
	`

	var file model.DatasetFile
	var timestamp string

	err := c.db.QueryRowContext(ctx, query, fileURL).Scan(
		&file.URL,
		&file.Component,
		&file.Cycle,
		&file.Name,
		&file.Path,
		&file.Size,
		&timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get download record: %w", err)
	}

	file.DownloadedAt = parseTimestamp(timestamp)
	return &file, nil
}

// DownloadCount summarizes the downloaded files of one component and cycle.
type DownloadCount struct {
	// Component is the NHANES component.
	Component string

	// Cycle is the survey cycle.
	Cycle string

	// Files is the number of downloaded files.
	Files int

	// Bytes is the total size of the downloaded files.
	Bytes int64
}

// DownloadCounts returns per-component, per-cycle download totals,
// ordered by component then cycle.
func (c *Catalog) DownloadCounts(ctx context.Context) ([]DownloadCount, error) {
	query := `
	SELECT component, cycle, COUNT(*), COALESCE(SUM(size), 0)
	FROM downloads
	GROUP BY component, cycle
	ORDER BY component, cycle
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count downloads: %w", err)
	}
	defer rows.Close()

	var results []DownloadCount
	for rows.Next() {
		var dc DownloadCount
		if err := rows.Scan(&dc.Component, &dc.Cycle, &dc.Files, &dc.Bytes); err != nil {
			return nil, fmt.Errorf("failed to scan download count: %w", err)
		}
		results = append(results, dc)
	}

	return results, rows.Err()
}

// SaveRunReport saves a complete run report as JSON, alongside a compact
// outcome summary used by the status command.
func (c *Catalog) SaveRunReport(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	// Compact per-outcome counts, cheap to scan without the full report
	summary := map[string]int{
		"indexed":      0,
		"downloaded":   0,
		"skipped":      0,
		"converted":    0,
		"groups":       0,
		"merged":       0,
		"singleton":    0,
		"incompatible": 0,
		"classified":   0,
		"failures":     0,
	}
	simple := report.SimpleReport
	if simple == nil {
		simple = model.NewSimpleReport(report)
	}
	summary["indexed"] = simple.IndexedCount
	summary["downloaded"] = simple.DownloadedCount
	summary["skipped"] = simple.SkippedCount
	summary["converted"] = simple.ConvertedCount
	summary["groups"] = simple.GroupCount
	summary["merged"] = simple.MergedCount
	summary["singleton"] = simple.SingletonCount
	summary["incompatible"] = simple.IncompatibleCount
	summary["classified"] = simple.ClassifiedCount
	summary["failures"] = simple.FailureCount
	summaryJSON, _ := json.Marshal(summary) //nolint:errcheck,errchkjson // summary is a simple map; Marshal won't fail

	query := `
	INSERT INTO run_reports (stage, component, report_json, outcome_summary)
	VALUES (?, ?, ?, ?)
	`

	_, err = c.db.ExecContext(ctx, query,
		report.Stage,
		report.Component,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}

	return nil
}

// LatestRunReport retrieves the most recent run report for a stage and
// component. An empty component matches tree-wide stages (merge, classify).
func (c *Catalog) LatestRunReport(ctx context.Context, stage, component string) (*model.RunReport, error) {
	query := `
	SELECT report_json FROM run_reports
	WHERE stage = ? AND component = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`

	var reportJSON string
	err := c.db.QueryRowContext(ctx, query, stage, component).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// RunMetadata contains summary information about a stored run report.
// This is used for displaying run history without loading the full report.
type RunMetadata struct {
	// ID is the unique identifier of the run report in the database.
	ID int64

	// Stage is the pipeline stage of the run.
	Stage string

	// Component is the NHANES component, or empty for tree-wide stages.
	Component string

	// Timestamp is when the run was recorded.
	Timestamp time.Time

	// Summary contains per-outcome counts for the run.
	Summary map[string]int
}

// RunHistory retrieves run metadata, newest first. An empty stage returns
// the history of every stage.
func (c *Catalog) RunHistory(ctx context.Context, stage string) ([]RunMetadata, error) {
	query := `
	SELECT id, stage, component, timestamp, outcome_summary
	FROM run_reports
	WHERE 1=1
	`
	args := make([]any, 0)

	if stage != "" {
		query += " AND stage = ?"
		args = append(args, stage)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Stage, &meta.Component, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.Summary); err != nil {
				meta.Summary = make(map[string]int)
			}
		} else {
			meta.Summary = make(map[string]int)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// RunReportByID retrieves a run report by its database ID.
func (c *Catalog) RunReportByID(ctx context.Context, id int64) (*model.RunReport, error) {
	query := `
	SELECT report_json FROM run_reports
	WHERE id = ?
	`

	var reportJSON string
	err := c.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}
