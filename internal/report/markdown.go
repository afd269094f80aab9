package report

import (
	"io"
	"strconv"

	"github.com/inkhuang/nhaneskit/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	simple := report.SimpleReport
	if simple == nil {
		simple = model.NewSimpleReport(report)
	}

	return w.WriteSimple(simple)
}

// WriteSimple outputs the simple report in Markdown format.
func (w *MarkdownWriter) WriteSimple(report *model.SimpleReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, report)

	// Outcome summary
	w.writeSummary(md, report)

	// Skipped units
	w.writeFailures(md, report)

	// Footer
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SimpleReport) {
	md.H1("NHANES Run Report")
	md.PlainText("")

	rows := [][]string{
		{"Stage", "`" + report.Stage + "`"},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", report.Duration.String()},
		{"Status", w.getStatusText(report)},
	}
	if report.Component != "" {
		rows = append(rows[:1], append([][]string{{"Component", report.Component}}, rows[1:]...)...)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.SimpleReport) string {
	if report.TimedOut {
		return "⚠️ Cancelled (partial results)"
	}
	if report.Error != "" {
		return "❌ Error - " + report.Error
	}
	return "✅ Complete"
}

// writeSummary writes the outcome summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.SimpleReport) {
	md.H2("Outcome Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   w.summaryRows(report),
	})
	md.PlainText("")

	w.writePieChart(md, report)
	w.writeAlert(md, report)
}

// summaryRows builds the outcome table rows relevant to the run's stage.
func (w *MarkdownWriter) summaryRows(report *model.SimpleReport) [][]string {
	type row struct {
		label string
		value int
		show  bool
	}

	candidates := []row{
		{"Indexed URLs", report.IndexedCount, report.Stage == model.StageFetch},
		{"Downloaded", report.DownloadedCount, report.Stage == model.StageFetch},
		{"Skipped (existing)", report.SkippedCount, report.Stage == model.StageFetch},
		{"Converted", report.ConvertedCount, report.Stage == model.StageConvert},
		{"Groups", report.GroupCount, report.Stage == model.StageMerge || report.Stage == model.StageClassify},
		{"Merged", report.MergedCount, report.Stage == model.StageMerge},
		{"Singletons", report.SingletonCount, report.Stage == model.StageMerge},
		{"Incompatible", report.IncompatibleCount, report.Stage == model.StageMerge},
		{"Classified", report.ClassifiedCount, report.Stage == model.StageClassify},
	}

	rows := make([][]string, 0, len(candidates)+1)
	for _, c := range candidates {
		if !c.show && c.value == 0 {
			continue
		}
		rows = append(rows, []string{c.label, strconv.Itoa(c.value)})
	}
	rows = append(rows, []string{"**Failures**", "**" + strconv.Itoa(report.FailureCount) + "**"})
	return rows
}

// writePieChart writes a mermaid pie chart for the outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.SimpleReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Run Outcome Distribution"),
		piechart.WithShowData(true),
	)

	slices := []struct {
		label string
		value int
	}{
		{"Downloaded", report.DownloadedCount},
		{"Skipped", report.SkippedCount},
		{"Converted", report.ConvertedCount},
		{"Merged", report.MergedCount},
		{"Singletons", report.SingletonCount},
		{"Incompatible", report.IncompatibleCount},
		{"Classified", report.ClassifiedCount},
		{"Failures", report.FailureCount},
	}

	any := false
	for _, s := range slices {
		if s.value > 0 {
			chart.LabelAndIntValue(s.label, uint64(s.value))
			any = true
		}
	}
	if !any {
		return
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.SimpleReport) {
	switch {
	case report.Error != "":
		md.Cautionf("The run aborted with an error: %s", report.Error)
	case report.TimedOut:
		md.Warningf("The run was cancelled after %s. Results are partial.", report.Duration)
	case report.FailureCount > 0:
		md.Importantf(
			"%d unit(s) were skipped due to errors. Re-run the stage to retry them.",
			report.FailureCount,
		)
	case report.IncompatibleCount > 0:
		md.Note(strconv.Itoa(report.IncompatibleCount) +
			" group(s) have members with differing column sets and were not merged.")
	default:
		md.Tip("All units processed without failures.")
	}
	md.PlainText("")
}

// writeFailures writes the skipped units grouped into a table.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.SimpleReport) {
	md.H2("Skipped Units")
	md.PlainText("")

	if !report.HasFailures() {
		md.PlainText("No units were skipped.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Failures))
	for i, f := range report.Failures {
		rows[i] = []string{
			f.Stage,
			"`" + truncateString(f.Target, 60) + "`",
			truncateString(f.Reason, 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Stage", "Target", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [nhaneskit](https://github.com/inkhuang/nhaneskit)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
