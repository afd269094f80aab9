package model

import "strings"

// MergeGroup is a set of CSV files that share a filename prefix and are
// candidates for concatenation into a single file.
//
// Design decision: the group carries its schema-check outcome rather than
// keeping separate "same columns" and "different columns" collections.
// Callers partition groups by the Compatible flag, which keeps the merge
// logic in one place and makes the JSON dictionaries easy to produce.
type MergeGroup struct {
	// Prefix is the shared filename prefix (portion of the base name
	// before the first '.' or '_').
	Prefix string `json:"prefix"`

	// Members are the paths of the group's CSV files, sorted by file name.
	Members []string `json:"members"`

	// Columns is the ordered header shared by all members when the group
	// is compatible.
	Columns []string `json:"columns,omitempty"`

	// Compatible reports whether every member has the identical ordered
	// column set. Only compatible groups are merged.
	Compatible bool `json:"compatible"`

	// ColumnSets holds the distinct header signatures found when the
	// group is incompatible. Each signature is the comma-joined header.
	ColumnSets []string `json:"column_sets,omitempty"`

	// MergedPath is the output path of the concatenated CSV, set only
	// after a successful merge of a compatible multi-member group.
	MergedPath string `json:"merged_path,omitempty"`

	// Rows is the total number of data rows written to the merged file.
	Rows int `json:"rows,omitempty"`
}

// Singleton reports whether the group has exactly one member.
// Singleton groups pass the schema check trivially but are never merged.
func (g *MergeGroup) Singleton() bool {
	return len(g.Members) == 1
}

// Signature returns the comma-joined header used for schema comparison.
// Column order matters: two files with the same columns in a different
// order are not mergeable by plain concatenation.
func Signature(columns []string) string {
	return strings.Join(columns, ",")
}

// GroupPrefix derives the merge-group prefix from a file base name.
// "DEMO_J.csv" and "DEMO.csv" both map to "DEMO".
func GroupPrefix(baseName string) string {
	if i := strings.IndexAny(baseName, "._"); i >= 0 {
		return baseName[:i]
	}
	return baseName
}
