package model

import (
	"path"
	"regexp"
	"time"
)

// cycleRe matches a survey cycle path segment such as "1999-2000".
var cycleRe = regexp.MustCompile(`/(\d{4}-\d{4})/`)

// OtherCycle is the cycle assigned to files whose URL carries no
// recognizable survey cycle segment.
const OtherCycle = "Other"

// DatasetFile describes one NHANES data file, either as a remote download
// target or as a file already present on disk.
type DatasetFile struct {
	// URL is the remote location the file was (or will be) fetched from.
	URL string `json:"url,omitempty"`

	// Component is the NHANES component the file belongs to
	// (Demographics, Dietary, Examination, Laboratory, Questionnaire).
	Component string `json:"component"`

	// Cycle is the survey cycle (e.g. "2017-2018"), or OtherCycle when the
	// URL carries no cycle segment.
	Cycle string `json:"cycle"`

	// Name is the bare file name (e.g. "DEMO_J.XPT").
	Name string `json:"name"`

	// Path is the local file path once downloaded.
	Path string `json:"path,omitempty"`

	// Size is the file size in bytes.
	Size int64 `json:"size,omitempty"`

	// DownloadedAt is when the file finished downloading.
	DownloadedAt time.Time `json:"downloaded_at,omitzero"`
}

// NewDatasetFile builds a DatasetFile from a download URL and component.
// The cycle and name are derived from the URL.
func NewDatasetFile(fileURL, component string) DatasetFile {
	return DatasetFile{
		URL:       fileURL,
		Component: component,
		Cycle:     CycleFromURL(fileURL),
		Name:      path.Base(fileURL),
	}
}

// CycleFromURL extracts the survey cycle from a file URL.
// NHANES file URLs embed the cycle as a path segment ("/2017-2018/DEMO_J.XPT").
// Returns OtherCycle when no cycle segment is present.
func CycleFromURL(fileURL string) string {
	m := cycleRe.FindStringSubmatch(fileURL)
	if m == nil {
		return OtherCycle
	}
	return m[1]
}
