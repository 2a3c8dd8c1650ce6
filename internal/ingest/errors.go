package ingest

import (
	"errors"
	"fmt"
)

// ErrDuplicateFile reports that a file's content hash is already recorded.
// It is a skip, not a failure.
var ErrDuplicateFile = errors.New("file already ingested")

// ErrNoInputFiles is returned when a directory holds no matching files.
var ErrNoInputFiles = errors.New("no input files")

// FormatError reports a file without a recognizable data section.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error in %s: %s", e.Path, e.Reason)
}

// ValidationError reports metadata missing a required identity field.
type ValidationError struct {
	Path  string
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s not found in metadata", e.Path, e.Field)
}

// ParseError reports one data row that could not be converted. Only the row
// is dropped.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError reports an unreadable input path or directory.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
