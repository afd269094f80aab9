// Package organize implements the classification and merge stages of the
// pipeline.
//
// CSV files produced by the convert stage are grouped by filename prefix
// ("DEMO.csv" and "DEMO_J.csv" belong to group "DEMO"). Each group's
// members are checked for an identical ordered column set; compatible
// groups with more than one member are concatenated into a single CSV,
// incompatible groups are recorded and skipped. The classify stage copies
// group members (and their .htm documentation sidecars) into a per-group
// tree under a component_cycle_name naming scheme.
//
// The grouping and outcome dictionaries are persisted as both JSON and
// YAML with sorted keys, so diffs between runs stay readable.
package organize
