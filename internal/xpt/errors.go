package xpt

import "errors"

// Decoding errors returned by the Reader.
var (
	// ErrNotTransport is returned when the input does not start with a
	// SAS transport library header record.
	ErrNotTransport = errors.New("not a SAS transport file: missing library header record")

	// ErrTruncated is returned when the input ends in the middle of a
	// header structure. A file cut off inside the observation rows is
	// reported per row instead.
	ErrTruncated = errors.New("truncated SAS transport file")

	// ErrBadHeader is returned when a header record is present but does
	// not match the expected layout.
	ErrBadHeader = errors.New("malformed SAS transport header record")

	// ErrNoVariables is returned when the member declares zero variables.
	ErrNoVariables = errors.New("transport member declares no variables")
)
