package organize

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inkhuang/nhaneskit/internal/model"
)

// Organizer groups converted CSV files, verifies column compatibility,
// merges compatible groups and classifies the results.
type Organizer struct {
	csvDir        string
	mergedDir     string
	classifiedDir string
	logger        *slog.Logger
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithLogger sets the logger used for per-file progress and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *Organizer) {
		o.logger = l
	}
}

// New returns an Organizer reading CSV files from csvDir and writing
// merged files to mergedDir and classified trees to classifiedDir.
func New(csvDir, mergedDir, classifiedDir string, opts ...Option) *Organizer {
	o := &Organizer{
		csvDir:        csvDir,
		mergedDir:     mergedDir,
		classifiedDir: classifiedDir,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FileDict walks the CSV directory and returns a map from base filename
// to absolute path for every file with the given extension. The extension
// comparison is case-insensitive.
func (o *Organizer) FileDict(ext string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(o.csvDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		files[d.Name()] = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Groups partitions the file dictionary into merge groups keyed by
// filename prefix. Groups and their members come back sorted, so two
// runs over the same tree produce identical output.
func (o *Organizer) Groups(files map[string]string) []model.MergeGroup {
	byPrefix := make(map[string][]string)
	for name := range files {
		prefix := model.GroupPrefix(name)
		byPrefix[prefix] = append(byPrefix[prefix], name)
	}

	prefixes := make([]string, 0, len(byPrefix))
	for prefix := range byPrefix {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	groups := make([]model.MergeGroup, 0, len(prefixes))
	for _, prefix := range prefixes {
		names := byPrefix[prefix]
		sort.Strings(names)

		members := make([]string, 0, len(names))
		for _, name := range names {
			members = append(members, files[name])
		}
		groups = append(groups, model.MergeGroup{
			Prefix:  prefix,
			Members: members,
		})
	}
	return groups
}
