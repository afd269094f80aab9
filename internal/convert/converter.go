package convert

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkhuang/nhaneskit/internal/model"
	"github.com/inkhuang/nhaneskit/internal/xpt"
)

// Converter converts the .XPT files beneath an input directory into CSV
// files beneath an output directory, mirroring the directory layout.
type Converter struct {
	// inputDir is the root of the raw data tree.
	inputDir string

	// outputDir is the root of the CSV mirror tree.
	outputDir string

	// labels maps lower-cased variable names to replacement headers.
	labels map[string]string

	// removeSource deletes each .XPT file after its CSV is fully written.
	removeSource bool

	// force re-converts files whose CSV output already exists.
	force bool

	// logger is used for per-file progress logging.
	logger *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLabels sets the column relabeling map. Keys are matched against
// variable names case-insensitively.
func WithLabels(labels map[string]string) Option {
	return func(c *Converter) {
		c.labels = labels
	}
}

// WithRemoveSource deletes each source file after a successful conversion.
func WithRemoveSource(remove bool) Option {
	return func(c *Converter) {
		c.removeSource = remove
	}
}

// WithForce re-converts files whose CSV output already exists.
func WithForce(force bool) Option {
	return func(c *Converter) {
		c.force = force
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// New creates a Converter for the given input and output directories.
func New(inputDir, outputDir string, opts ...Option) *Converter {
	c := &Converter{
		inputDir:  inputDir,
		outputDir: outputDir,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Run converts every .XPT file beneath the input directory, recording
// conversions, skips, and failures in the report.
//
// A file that fails to decode is recorded and skipped; Run only returns an
// error for filesystem-level problems or context cancellation.
func (c *Converter) Run(ctx context.Context, report *model.RunReport) error {
	return filepath.WalkDir(c.inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTransportFile(d.Name()) {
			return nil
		}

		select {
		case <-ctx.Done():
			report.TimedOut = true
			return ctx.Err()
		default:
		}

		dest, err := c.destPath(path)
		if err != nil {
			return err
		}

		if !c.force {
			if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
				report.SkippedExisting = append(report.SkippedExisting, dest)
				return nil
			}
		}

		c.logger.Info("converting file", "source", path)

		conv, err := c.convertFile(path, dest)
		if err != nil {
			c.logger.Warn("conversion failed", "source", path, "error", err)
			report.AddFailure(path, err)
			return nil
		}
		report.Conversions = append(report.Conversions, conv)

		if c.removeSource {
			if err := os.Remove(path); err != nil {
				c.logger.Warn("failed to remove source", "source", path, "error", err)
			}
		}

		return nil
	})
}

// destPath maps a source .XPT path to its CSV mirror path.
func (c *Converter) destPath(srcPath string) (string, error) {
	rel, err := filepath.Rel(c.inputDir, srcPath)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(rel)
	return filepath.Join(c.outputDir, strings.TrimSuffix(rel, ext)+".csv"), nil
}

// convertFile decodes one transport file and writes its CSV mirror.
// The CSV is written through a temp file and renamed into place so a failed
// conversion never leaves a truncated output.
func (c *Converter) convertFile(srcPath, destPath string) (model.Conversion, error) {
	src, err := os.Open(srcPath) //nolint:gosec // Path comes from the walked input tree
	if err != nil {
		return model.Conversion{}, err
	}
	defer src.Close()

	reader, err := xpt.NewReader(src)
	if err != nil {
		return model.Conversion{}, fmt.Errorf("decoding %s: %w", filepath.Base(srcPath), err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return model.Conversion{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".tmp*")
	if err != nil {
		return model.Conversion{}, err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	columns := c.relabel(reader.Dataset().Columns())
	if err := w.Write(columns); err != nil {
		tmp.Close()
		return model.Conversion{}, err
	}

	rows := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			tmp.Close()
			return model.Conversion{}, err
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return model.Conversion{}, err
		}
		rows++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return model.Conversion{}, err
	}
	if err := tmp.Close(); err != nil {
		return model.Conversion{}, err
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return model.Conversion{}, err
	}

	return model.Conversion{
		Source:  srcPath,
		Output:  destPath,
		Rows:    rows,
		Columns: len(columns),
	}, nil
}

// relabel replaces column names that have an entry in the label map.
// Matching is case-insensitive; unmapped columns keep the variable name.
func (c *Converter) relabel(columns []string) []string {
	if len(c.labels) == 0 {
		return columns
	}

	out := make([]string, len(columns))
	for i, col := range columns {
		if label, ok := c.labels[strings.ToLower(col)]; ok {
			out[i] = label
			continue
		}
		out[i] = col
	}
	return out
}

// isTransportFile reports whether a file name has the .XPT extension.
func isTransportFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xpt")
}
