package organize

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/inkhuang/nhaneskit/internal/model"
)

// Merge concatenates every compatible multi-member group into a single
// CSV under the merged directory. The output carries one header row
// followed by the data rows of each member in member order. Singleton
// and incompatible groups are left untouched. A failing group is
// recorded on the report and does not stop the remaining groups.
func (o *Organizer) Merge(ctx context.Context, groups []model.MergeGroup, report *model.RunReport) error {
	for i := range groups {
		select {
		case <-ctx.Done():
			report.TimedOut = true
			return ctx.Err()
		default:
		}

		group := &groups[i]
		if !group.Compatible || group.Singleton() {
			continue
		}

		dest := filepath.Join(o.mergedDir, group.Prefix+".csv")
		rows, err := o.mergeGroup(group, dest)
		if err != nil {
			o.logger.WarnContext(ctx, "merge failed",
				"prefix", group.Prefix, "error", err)
			report.AddFailure(group.Prefix, err)
			continue
		}
		group.MergedPath = dest
		group.Rows = rows
		o.logger.InfoContext(ctx, "merged group",
			"prefix", group.Prefix, "members", len(group.Members), "rows", rows)
	}
	return nil
}

// mergeGroup writes the concatenation of the group's members to dest and
// returns the number of data rows written. The file is assembled in a
// temporary file and renamed into place, so a failed merge never leaves
// a truncated output behind.
func (o *Organizer) mergeGroup(group *model.MergeGroup, dest string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return 0, fmt.Errorf("create merged directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".merge-*")
	if err != nil {
		return 0, fmt.Errorf("create temporary file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(group.Columns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	rows := 0
	for _, member := range group.Members {
		n, err := appendRows(w, member)
		if err != nil {
			return 0, err
		}
		rows += n
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	return rows, nil
}

// appendRows copies the data rows of the CSV at path to w, skipping the
// header row, and returns the number of rows copied.
func appendRows(w *csv.Writer, path string) (int, error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from the walked CSV tree
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows := 0
	for i := 0; ; i++ {
		record, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		if i == 0 {
			continue // header already written
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("append row from %s: %w", path, err)
		}
		rows++
	}
}
