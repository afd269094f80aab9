package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen based on the NHANES data portal's characteristics
// and the behavior of the original download scripts where applicable.
const (
	// DefaultListingURL is the NHANES data portal search page, parameterized
	// by component name. Each component page lists the .XPT files for every
	// survey cycle.
	DefaultListingURL = "https://wwwn.cdc.gov/nchs/nhanes/search/datapage.aspx?Component=%s"

	// DefaultTimeout is the per-request timeout. NHANES data files can be
	// tens of megabytes, so this is generous; it bounds a single download,
	// not the whole run.
	DefaultTimeout = 5 * time.Minute

	// DefaultRetries is the number of download attempts per file before the
	// file is logged and skipped. Transient portal errors are common enough
	// that a single retry pass recovers most failures.
	DefaultRetries = 3

	// DefaultFetchDelay is the delay between download requests. This is a
	// politeness setting to avoid hammering the data portal.
	DefaultFetchDelay = 500 * time.Millisecond

	// DefaultBatchSize is the number of components processed concurrently
	// during fetch. The portal serves a handful of parallel downloads
	// without throttling; higher values buy little.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies nhaneskit in HTTP requests.
	// A descriptive User-Agent lets portal operators identify tool traffic.
	DefaultUserAgent = "nhaneskit/1.0 (+https://github.com/inkhuang/nhaneskit)"

	// AppName is the application name used for XDG directory paths.
	AppName = "nhaneskit"

	// DefaultDataDir is the default root for downloaded and derived data,
	// relative to the working directory.
	DefaultDataDir = "data"
)

// DefaultComponents are the NHANES survey components fetched when the
// configuration file does not narrow the set.
var DefaultComponents = []string{
	"Demographics",
	"Dietary",
	"Examination",
	"Laboratory",
	"Questionnaire",
}

// Config holds all configuration options for nhaneskit.
// This struct is populated from CLI flags and passed through the application
// via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested per-stage
// structs. The number of options is manageable, and nesting would add
// complexity without significant benefit.
type Config struct {
	// Components are the NHANES components to fetch.
	Components []string

	// ListingURL is the component listing page URL template with one %s
	// placeholder for the component name.
	ListingURL string

	// DataDir is the root directory for all pipeline data. The stages use
	// the index/, raw/, csv/, merged/ and classified/ subdirectories.
	DataDir string

	// InputDir overrides the input directory of the convert and merge
	// stages. Empty means the previous stage's output under DataDir.
	InputDir string

	// OutputDir overrides the output directory of a stage.
	// Empty means the stage default under DataDir.
	OutputDir string

	// Timeout is the per-HTTP-request timeout.
	Timeout time.Duration

	// Retries is the number of attempts per download before the file is
	// logged and skipped.
	Retries int

	// FetchDelay is the politeness delay between download requests.
	FetchDelay time.Duration

	// BatchSize is the number of components processed concurrently.
	BatchSize int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogFile is an optional path that receives a copy of all log records,
	// mirroring what the original download script wrote to its run log.
	LogFile string

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .nhaneskit in the current directory and then in the
	// user's home directory.
	ConfigFilePath string

	// ComponentConfigs holds per-component configuration loaded from the
	// config file.
	ComponentConfigs *File

	// UpdateIndex rebuilds the per-component URL index files during fetch.
	UpdateIndex bool

	// Download fetches files from the URL index during fetch.
	Download bool

	// Labels enables column relabeling from sidecar .JSON label maps
	// during convert.
	Labels bool

	// RemoveSource deletes each .XPT file after its CSV is fully written.
	RemoveSource bool

	// Force re-runs conversions whose CSV output already exists and lets
	// init overwrite an existing config file.
	Force bool

	// Titles enables dataset title extraction from .htm documentation
	// pages during classify.
	Titles bool

	// JSONReport enables JSON report output instead of human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// CatalogDir is the directory for the SQLite run catalog.
	// Defaults to the XDG data directory.
	CatalogDir string

	// SaveToCatalog indicates whether to record run outcomes in the catalog.
	SaveToCatalog bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on zero
// values because many defaults are non-zero (timeouts, batch sizes). This
// also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Components: append([]string(nil), DefaultComponents...),
		ListingURL: DefaultListingURL,
		DataDir:    DefaultDataDir,
		Timeout:    DefaultTimeout,
		Retries:    DefaultRetries,
		FetchDelay: DefaultFetchDelay,
		BatchSize:  DefaultBatchSize,
		UserAgent:  DefaultUserAgent,
	}
}

// IndexDir returns the directory holding per-component URL index files.
func (c *Config) IndexDir() string {
	return filepath.Join(c.DataDir, "index")
}

// RawDir returns the directory holding downloaded .XPT files.
func (c *Config) RawDir() string {
	return filepath.Join(c.DataDir, "raw")
}

// CSVDir returns the directory holding converted .csv files.
func (c *Config) CSVDir() string {
	return filepath.Join(c.DataDir, "csv")
}

// MergedDir returns the directory holding merged group files.
func (c *Config) MergedDir() string {
	return filepath.Join(c.DataDir, "merged")
}

// ClassifiedDir returns the directory holding the classified tree.
func (c *Config) ClassifiedDir() string {
	return filepath.Join(c.DataDir, "classified")
}

// XDGDataDir returns the XDG data directory for nhaneskit.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/nhaneskit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for nhaneskit.
// On Linux: ~/.config/nhaneskit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each point
// of use to fail fast and provide clear error messages upfront. This is
// called once after CLI parsing, before any stage runs. We return the first
// error found rather than collecting all errors because fixing one error
// often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Components) == 0 {
		return ErrNoComponents
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.FetchDelay < 0 {
		return ErrInvalidFetchDelay
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
