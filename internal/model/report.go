package model

import "time"

// Stage names used in reports and the catalog.
const (
	StageFetch    = "fetch"
	StageConvert  = "convert"
	StageMerge    = "merge"
	StageClassify = "classify"
)

// Conversion records one XPT file decoded to CSV.
type Conversion struct {
	// Source is the path of the input .XPT file.
	Source string `json:"source"`

	// Output is the path of the written .csv file.
	Output string `json:"output"`

	// Rows is the number of observation rows written.
	Rows int `json:"rows"`

	// Columns is the number of variables in the dataset.
	Columns int `json:"columns"`
}

// Failure records a unit of work that was logged and skipped.
// Failures never abort a stage; they are collected for the report.
type Failure struct {
	// Stage is the pipeline stage the failure occurred in.
	Stage string `json:"stage"`

	// Target identifies the failed unit (URL, file path, or group prefix).
	Target string `json:"target"`

	// Reason is the error message.
	Reason string `json:"reason"`
}

// RunReport is the main pipeline result structure.
// It accumulates the outcome of every step executed for one unit of work
// (a component during fetch, or a whole directory tree for the local stages).
//
// Design decision: We use a single struct covering all stages rather than
// one report type per stage. Steps only fill the fields relevant to them,
// and the report writers and the catalog can handle every stage uniformly.
type RunReport struct {
	// Stage is the pipeline stage this run belongs to.
	Stage string `json:"stage"`

	// Component is the NHANES component processed, or empty for stages
	// that operate on the whole tree (merge, classify).
	Component string `json:"component,omitempty"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// TimedOut is true if the run was cancelled before completing.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds the first critical error, if any.
	// Excluded from JSON; ErrorMessage carries the serializable form.
	Error error `json:"-"`

	// ErrorMessage is the message of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// === Fetch stage ===

	// IndexURLs are the .XPT file URLs discovered on the listing page.
	IndexURLs []string `json:"index_urls,omitempty"`

	// Downloaded are the files fetched during this run.
	Downloaded []DatasetFile `json:"downloaded,omitempty"`

	// SkippedExisting are local paths skipped because the file was
	// already present.
	SkippedExisting []string `json:"skipped_existing,omitempty"`

	// === Convert stage ===

	// Conversions are the XPT files decoded to CSV.
	Conversions []Conversion `json:"conversions,omitempty"`

	// === Merge / classify stages ===

	// Groups are the merge groups formed, with their schema-check and
	// merge outcomes.
	Groups []MergeGroup `json:"groups,omitempty"`

	// Classified are the paths copied into the classified tree.
	Classified []string `json:"classified,omitempty"`

	// Titles maps group prefixes to dataset titles extracted from
	// documentation pages.
	Titles map[string][]string `json:"titles,omitempty"`

	// === Bookkeeping ===

	// Failures are the units logged and skipped during the run.
	Failures []Failure `json:"failures,omitempty"`

	// PerformedSteps lists the pipeline steps executed, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// SimpleReport is the summarized view, generated before output.
	SimpleReport *SimpleReport `json:"summary,omitempty"`
}

// NewRunReport creates a RunReport for the given stage and component.
func NewRunReport(stage, component string) *RunReport {
	return &RunReport{
		Stage:     stage,
		Component: component,
		StartedAt: time.Now(),
	}
}

// AddFailure records a skipped unit of work.
func (r *RunReport) AddFailure(target string, err error) {
	r.Failures = append(r.Failures, Failure{
		Stage:  r.Stage,
		Target: target,
		Reason: err.Error(),
	})
}

// Finish stamps the completion time.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now()
}
