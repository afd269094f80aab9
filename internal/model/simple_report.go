package model

import "time"

// SimpleReport is a summarized, human-readable view of a RunReport.
//
// Design decision: We create a separate summary rather than printing parts
// of RunReport because:
// 1. It provides a consistent, curated view of the run outcome
// 2. It can be serialized to JSON for tools that want structured but simple output
// 3. It separates presentation concerns from data collection
type SimpleReport struct {
	// Stage is the pipeline stage of the summarized run.
	Stage string `json:"stage"`

	// Component is the NHANES component, if the run was per-component.
	Component string `json:"component,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock run time.
	Duration time.Duration `json:"duration"`

	// TimedOut is true if the run was cancelled.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error is the critical error message, if any.
	Error string `json:"error,omitempty"`

	// === Counts ===

	// IndexedCount is the number of file URLs discovered.
	IndexedCount int `json:"indexed_count,omitempty"`

	// DownloadedCount is the number of files fetched.
	DownloadedCount int `json:"downloaded_count,omitempty"`

	// SkippedCount is the number of files skipped as already present.
	SkippedCount int `json:"skipped_count,omitempty"`

	// ConvertedCount is the number of XPT files decoded to CSV.
	ConvertedCount int `json:"converted_count,omitempty"`

	// GroupCount is the number of merge groups formed.
	GroupCount int `json:"group_count,omitempty"`

	// MergedCount is the number of groups concatenated.
	MergedCount int `json:"merged_count,omitempty"`

	// SingletonCount is the number of one-member groups (never merged).
	SingletonCount int `json:"singleton_count,omitempty"`

	// IncompatibleCount is the number of groups whose members disagree
	// on their column set.
	IncompatibleCount int `json:"incompatible_count,omitempty"`

	// ClassifiedCount is the number of files copied into the classified tree.
	ClassifiedCount int `json:"classified_count,omitempty"`

	// FailureCount is the number of units logged and skipped.
	FailureCount int `json:"failure_count"`

	// Failures carries the skipped units for display.
	Failures []Failure `json:"failures,omitempty"`
}

// NewSimpleReport builds a SimpleReport from a RunReport.
func NewSimpleReport(r *RunReport) *SimpleReport {
	s := &SimpleReport{
		Stage:           r.Stage,
		Component:       r.Component,
		StartedAt:       r.StartedAt,
		TimedOut:        r.TimedOut,
		Error:           r.ErrorMessage,
		IndexedCount:    len(r.IndexURLs),
		DownloadedCount: len(r.Downloaded),
		SkippedCount:    len(r.SkippedExisting),
		ConvertedCount:  len(r.Conversions),
		GroupCount:      len(r.Groups),
		ClassifiedCount: len(r.Classified),
		FailureCount:    len(r.Failures),
		Failures:        r.Failures,
	}

	if !r.FinishedAt.IsZero() {
		s.Duration = r.FinishedAt.Sub(r.StartedAt)
	}

	for i := range r.Groups {
		g := &r.Groups[i]
		switch {
		case g.MergedPath != "":
			s.MergedCount++
		case g.Singleton():
			s.SingletonCount++
		case !g.Compatible:
			s.IncompatibleCount++
		}
	}

	return s
}

// HasFailures reports whether any unit was skipped during the run.
func (s *SimpleReport) HasFailures() bool {
	return s.FailureCount > 0
}
