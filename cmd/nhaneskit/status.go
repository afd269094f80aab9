package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/inkhuang/nhaneskit/internal/catalog"
	"github.com/inkhuang/nhaneskit/internal/config"
	"github.com/inkhuang/nhaneskit/internal/model"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show download totals and run history from the catalog",
		Long: `Status summarizes the run catalog: per-component download totals and
the recorded pipeline runs with their outcome counts.

The catalog is written automatically by the stage commands and lives in
the XDG data directory (~/.local/share/nhaneskit on Linux).

Examples:
  # Show download totals and recent runs
  nhaneskit status

  # Show merge runs only
  nhaneskit status --stage merge

  # Show the last 5 runs
  nhaneskit status --limit 5`,
		RunE: runStatusCmd,
	}

	cmd.Flags().String("stage", "",
		"Filter run history by stage (fetch, convert, merge, classify)")
	cmd.Flags().IntP("limit", "n", 10,
		"Maximum number of runs to show")
	cmd.Flags().String("catalog-dir", config.XDGDataDir(),
		"Directory of the run catalog")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	stage, err := cmd.Flags().GetString("stage")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	catalogDir, err := cmd.Flags().GetString("catalog-dir")
	if err != nil {
		return err
	}

	opts := catalog.DefaultOptions()
	opts.CreateIfNotExists = false

	cat, err := catalog.Open(catalogDir, opts)
	if err != nil {
		return fmt.Errorf("no catalog found in %s (run a stage command first): %w", catalogDir, err)
	}
	defer cat.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// Download totals
	counts, err := cat.DownloadCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to read download counts: %w", err)
	}

	fmt.Fprintln(out, "Downloads:")
	if len(counts) == 0 {
		fmt.Fprintln(out, "  (none recorded)")
	} else {
		tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  COMPONENT\tCYCLE\tFILES\tSIZE")
		var totalFiles int
		var totalBytes int64
		for _, c := range counts {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n",
				c.Component, c.Cycle, c.Files, formatBytes(c.Bytes))
			totalFiles += c.Files
			totalBytes += c.Bytes
		}
		fmt.Fprintf(tw, "  TOTAL\t\t%d\t%s\n", totalFiles, formatBytes(totalBytes))
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)

	// Run history
	runs, err := cat.RunHistory(ctx, stage)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	fmt.Fprintln(out, "Recent runs:")
	if len(runs) == 0 {
		fmt.Fprintln(out, "  (none recorded)")
		return nil
	}

	tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tSTAGE\tCOMPONENT\tTIME\tOUTCOME")
	for _, run := range runs {
		component := run.Component
		if component == "" {
			component = "-"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Stage,
			component,
			run.Timestamp.Format("2006-01-02 15:04"),
			formatSummary(run),
		)
	}
	return tw.Flush()
}

// formatSummary renders the headline outcome counts for a recorded run.
func formatSummary(run catalog.RunMetadata) string {
	type entry struct {
		key   string
		label string
	}

	var entries []entry
	switch run.Stage {
	case model.StageFetch:
		entries = []entry{
			{"downloaded", "downloaded"},
			{"skipped", "skipped"},
		}
	case model.StageConvert:
		entries = []entry{{"converted", "converted"}}
	case model.StageMerge:
		entries = []entry{
			{"merged", "merged"},
			{"singleton", "singleton"},
			{"incompatible", "incompatible"},
		}
	case model.StageClassify:
		entries = []entry{{"classified", "classified"}}
	}
	entries = append(entries, entry{"failures", "failures"})

	s := ""
	for _, e := range entries {
		if s != "" {
			s += ", "
		}
		s += fmt.Sprintf("%d %s", run.Summary[e.key], e.label)
	}
	return s
}

// formatBytes renders a byte count in a human-readable unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
