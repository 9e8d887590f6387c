// Package etlerr holds the error taxonomy shared by the transform, quality and
// orchestration stages. Callers wrap these sentinels with context and match
// them with errors.Is.
package etlerr

import "errors"

var (
	// ErrNotFound is returned when the source file does not exist.
	ErrNotFound = errors.New("source file not found")

	// ErrNotReady is returned when an operation runs before the data it
	// depends on has been loaded.
	ErrNotReady = errors.New("pipeline not ready: load the source first")

	// ErrNoData is returned when an export is attempted with nothing to export.
	ErrNoData = errors.New("no data to export")

	// ErrUnsupportedFormat is returned for unknown import/export formats.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
