package organize

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/inkhuang/nhaneskit/internal/model"
)

// CheckColumns reads the header row of every group member and marks each
// group compatible when all members carry the identical ordered column
// set. Incompatible groups keep the distinct header signatures they were
// rejected for. Members whose header cannot be read are recorded as merge
// failures on the report and the whole group is treated as incompatible.
func (o *Organizer) CheckColumns(ctx context.Context, groups []model.MergeGroup, report *model.RunReport) error {
	for i := range groups {
		select {
		case <-ctx.Done():
			report.TimedOut = true
			return ctx.Err()
		default:
		}

		group := &groups[i]
		seen := make(map[string]struct{})
		var signatures []string
		var first []string
		failed := false

		for _, member := range group.Members {
			header, err := readHeader(member)
			if err != nil {
				o.logger.WarnContext(ctx, "skip unreadable header",
					"path", member, "error", err)
				report.AddFailure(member, err)
				failed = true
				continue
			}
			if first == nil {
				first = header
			}
			sig := model.Signature(header)
			if _, ok := seen[sig]; !ok {
				seen[sig] = struct{}{}
				signatures = append(signatures, sig)
			}
		}

		if !failed && len(signatures) == 1 {
			group.Compatible = true
			group.Columns = first
			continue
		}
		sort.Strings(signatures)
		group.ColumnSets = signatures
	}
	return nil
}

// readHeader returns the first CSV record of the file at path.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from the walked CSV tree
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header of %s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return header, nil
}
