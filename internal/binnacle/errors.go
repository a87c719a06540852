package binnacle

import (
	"errors"
	"fmt"
)

// Sentinel errors for input parsing. Loaders are atomic: they either
// return a complete model or one of these (wrapped with file context),
// never a partial model.
var (
	// ErrMalformedGraph indicates a structural violation in the assembly graph file.
	ErrMalformedGraph = errors.New("binnacle: malformed assembly graph")

	// ErrMalformedBinTable indicates an unparseable or conflicting bin table row.
	ErrMalformedBinTable = errors.New("binnacle: malformed bin table")

	// ErrMalformedDepthTable indicates an unparseable or non-tiling depth table row.
	ErrMalformedDepthTable = errors.New("binnacle: malformed depth table")
)

// MalformedGraphError identifies the offending record of an assembly graph file.
type MalformedGraphError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedGraphError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

func (e *MalformedGraphError) Unwrap() error { return ErrMalformedGraph }

// MalformedBinTableError identifies the offending row of a bin table.
type MalformedBinTableError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedBinTableError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

func (e *MalformedBinTableError) Unwrap() error { return ErrMalformedBinTable }

// MalformedDepthTableError identifies the offending row of a depth table.
type MalformedDepthTableError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedDepthTableError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

func (e *MalformedDepthTableError) Unwrap() error { return ErrMalformedDepthTable }
