package convert

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LoadLabelMap walks dir for .JSON sidecar files and merges them into a
// single column label map keyed by lower-cased variable name.
//
// When two sidecars define the same variable, the first mapping wins;
// sidecars are visited in lexical walk order, so the result is stable.
// Empty or unparsable sidecars are logged and skipped.
func LoadLabelMap(dir string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	labels := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			return nil
		}

		data, err := os.ReadFile(path) //nolint:gosec // Path comes from the walked input tree
		if err != nil {
			logger.Warn("failed to read label sidecar", "path", path, "error", err)
			return nil
		}

		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			logger.Warn("skipping malformed label sidecar", "path", path, "error", err)
			return nil
		}

		for name, label := range m {
			key := strings.ToLower(name)
			if _, ok := labels[key]; !ok {
				labels[key] = label
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return labels, nil
}
