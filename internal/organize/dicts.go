package organize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inkhuang/nhaneskit/internal/model"
)

// Dictionary file base names written by the merge and classify stages.
const (
	FileDictName     = "csv_dict.json"
	GroupDictName    = "merge_csv_dict.json"
	SameColsDictName = "same_col_dict.json"
	DiffColsDictName = "diff_col_dict.json"
	TitleDictName    = "name_dict.json"
)

// WriteMergeDicts persists the grouping and schema-check outcomes next to
// the merged output: the filename dictionary, the prefix grouping, and
// the compatible/incompatible column dictionaries. Each dictionary is
// written as JSON and as a YAML twin.
func (o *Organizer) WriteMergeDicts(dir string, files map[string]string, groups []model.MergeGroup) error {
	sameCols := make(map[string][]string)
	diffCols := make(map[string][]string)
	byPrefix := make(map[string][]string)
	for _, g := range groups {
		names := make([]string, 0, len(g.Members))
		for _, member := range g.Members {
			names = append(names, filepath.Base(member))
		}
		byPrefix[g.Prefix] = names
		if g.Compatible {
			sameCols[g.Prefix] = g.Columns
		} else {
			diffCols[g.Prefix] = g.ColumnSets
		}
	}

	dicts := map[string]any{
		FileDictName:     files,
		GroupDictName:    byPrefix,
		SameColsDictName: sameCols,
		DiffColsDictName: diffCols,
	}
	for name, dict := range dicts {
		if err := writeDict(filepath.Join(dir, name), dict); err != nil {
			return err
		}
	}
	return nil
}

// WriteTitleDict persists the prefix-to-titles dictionary produced by the
// classify stage, as JSON and as a YAML twin.
func (o *Organizer) WriteTitleDict(dir string, titles map[string][]string) error {
	return writeDict(filepath.Join(dir, TitleDictName), titles)
}

// writeDict writes v as indented JSON to path and as YAML to the path
// with the extension swapped. Map keys come out sorted in both formats,
// so dictionaries from consecutive runs diff cleanly.
func writeDict(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}

	yamlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".yml"
	yamlData, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(yamlPath), err)
	}
	if err := os.WriteFile(yamlPath, yamlData, 0600); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}
	return nil
}
