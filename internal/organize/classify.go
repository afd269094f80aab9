package organize

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inkhuang/nhaneskit/internal/crawler"
	"github.com/inkhuang/nhaneskit/internal/model"
)

// Classify copies every group member into a per-prefix directory under
// the classified tree, renamed to <component>_<cycle>_<name>.csv. The
// component and cycle come from the member's two parent directories,
// mirroring the layout the fetch stage writes. Documentation sidecars
// (.htm next to the CSV) are copied under the same renamed base.
func (o *Organizer) Classify(ctx context.Context, groups []model.MergeGroup, report *model.RunReport) error {
	for i := range groups {
		select {
		case <-ctx.Done():
			report.TimedOut = true
			return ctx.Err()
		default:
		}

		group := &groups[i]
		destDir := filepath.Join(o.classifiedDir, group.Prefix)
		if err := os.MkdirAll(destDir, 0750); err != nil {
			return fmt.Errorf("create classified directory: %w", err)
		}

		for _, member := range group.Members {
			dest := filepath.Join(destDir, classifiedName(member))
			if err := copyFile(member, dest); err != nil {
				o.logger.WarnContext(ctx, "classify failed",
					"path", member, "error", err)
				report.AddFailure(member, err)
				continue
			}
			report.Classified = append(report.Classified, dest)

			if err := o.copySidecar(member, dest); err != nil {
				o.logger.WarnContext(ctx, "sidecar copy failed",
					"path", member, "error", err)
				report.AddFailure(member, err)
			}
		}
	}
	return nil
}

// Titles extracts the dataset title of every group member from the .htm
// documentation sidecar next to it and returns a prefix-to-titles map.
// Members without a sidecar or without a recognizable title contribute
// nothing. Titles are deduplicated and sorted per prefix.
func (o *Organizer) Titles(ctx context.Context, groups []model.MergeGroup) (map[string][]string, error) {
	titles := make(map[string][]string)
	for _, group := range groups {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		seen := make(map[string]bool)
		for _, member := range group.Members {
			title, err := o.sidecarTitle(member)
			if err != nil {
				o.logger.WarnContext(ctx, "skip unreadable documentation page",
					"path", member, "error", err)
				continue
			}
			if title == "" || seen[title] {
				continue
			}
			seen[title] = true
			titles[group.Prefix] = append(titles[group.Prefix], title)
		}
		sort.Strings(titles[group.Prefix])
	}
	return titles, nil
}

// sidecarTitle parses the documentation page next to the CSV at path.
// A missing sidecar is not an error; it returns an empty title.
func (o *Organizer) sidecarTitle(path string) (string, error) {
	f, err := os.Open(sidecarPath(path)) //nolint:gosec // Path comes from the walked CSV tree
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	return crawler.DatasetTitle(f)
}

// copySidecar copies the .htm documentation page next to src, if present,
// to sit next to dest under the same base name.
func (o *Organizer) copySidecar(src, dest string) error {
	sidecar := sidecarPath(src)
	if _, err := os.Stat(sidecar); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	return copyFile(sidecar, sidecarPath(dest))
}

// classifiedName builds the classified base name from the member path:
// <component>_<cycle>_<name>.csv, where component and cycle are the
// member's parent and grandparent directory names.
func classifiedName(path string) string {
	name := filepath.Base(path)
	component := filepath.Base(filepath.Dir(path))
	cycle := filepath.Base(filepath.Dir(filepath.Dir(path)))
	return component + "_" + cycle + "_" + name
}

// sidecarPath returns the path of the .htm documentation page paired with
// the CSV at path.
func sidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".htm"
}

// copyFile copies src to dest, truncating any existing file.
func copyFile(src, dest string) error {
	in, err := os.Open(src) //nolint:gosec // Path comes from the walked CSV tree
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest) //nolint:gosec // Path is under the classified tree
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
