package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/inkhuang/nhaneskit/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
// It generates a SimpleReport from the RunReport if not already present.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	simple := report.SimpleReport
	if simple == nil {
		simple = model.NewSimpleReport(report)
	}

	return w.WriteSimple(simple)
}

// WriteSimple outputs the simple report in human-readable format.
func (w *SimpleWriter) WriteSimple(report *model.SimpleReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCounts(&sb, report)
	w.writeFailures(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.SimpleReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        NHANESKIT RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Stage:          %s\n", report.Stage))
	if report.Component != "" {
		sb.WriteString(fmt.Sprintf("Component:      %s\n", report.Component))
	}
	sb.WriteString(fmt.Sprintf("Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	if report.Duration > 0 {
		sb.WriteString(fmt.Sprintf("Duration:       %s\n", report.Duration.Round(10*time.Millisecond)))
	}

	switch {
	case report.TimedOut:
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	case report.Error != "":
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", report.Error))
	default:
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeCounts writes the per-outcome counts for the run's stage.
// Only counts relevant to the stage are printed; a convert run has no
// merge-group numbers to show.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, report *model.SimpleReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("OUTCOME\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	counts := []struct {
		label string
		value int
		show  bool
	}{
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

	for _, c := range counts {
		if !c.show && c.value == 0 && !w.showEmpty {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-20s %d\n", c.label+":", c.value))
	}
	sb.WriteString(fmt.Sprintf("  %-20s %d\n", "Failures:", report.FailureCount))
	sb.WriteString("\n")
}

// writeFailures writes the skipped units section.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.SimpleReport) {
	if !report.HasFailures() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SKIPPED UNITS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if !report.HasFailures() {
		sb.WriteString("  No failures\n")
	}
	for _, f := range report.Failures {
		sb.WriteString(fmt.Sprintf("  * %s\n", f.Target))
		if w.verbose && f.Reason != "" {
			sb.WriteString(fmt.Sprintf("    Reason: %s\n", f.Reason))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by nhaneskit\n")
	sb.WriteString("https://github.com/inkhuang/nhaneskit\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
