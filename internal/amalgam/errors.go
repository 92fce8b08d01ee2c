package amalgam

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a fatal amalgamation failure.
type ErrorCode string

const (
	// CodeMissingInputFile indicates a root, declaration or implementation
	// file could not be read at its resolved path.
	CodeMissingInputFile ErrorCode = "missing-input-file"
	// CodeMalformedReference indicates a marker whose file pair cannot be
	// derived from its quoted path.
	CodeMalformedReference ErrorCode = "malformed-reference"
	// CodeOutputWriteFailure indicates the final document could not be
	// written to its destination.
	CodeOutputWriteFailure ErrorCode = "output-write-failure"
)

// Sentinels for errors.Is checks against *Error.
var (
	ErrMissingInputFile   = errors.New("missing input file")
	ErrMalformedReference = errors.New("malformed reference")
	ErrOutputWriteFailure = errors.New("output write failure")
)

// Error is returned for every fatal condition. None of them are recovered:
// a run that returns an *Error has written nothing.
type Error struct {
	Code   ErrorCode
	Path   string // file the failure is about
	Marker string // marker being processed, if any
	Line   int    // line of the marker in the root document, if any
	Err    error  // underlying cause
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Path)
	if e.Marker != "" {
		msg = fmt.Sprintf("%s (from %s at line %d)", msg, e.Marker, e.Line)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel that corresponds to the error code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrMissingInputFile:
		return e.Code == CodeMissingInputFile
	case ErrMalformedReference:
		return e.Code == CodeMalformedReference
	case ErrOutputWriteFailure:
		return e.Code == CodeOutputWriteFailure
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func missingInput(path string, cause error) *Error {
	return &Error{Code: CodeMissingInputFile, Path: path, Err: cause}
}

func malformed(path, marker string, line int, reason string) *Error {
	return &Error{Code: CodeMalformedReference, Path: path, Marker: marker, Line: line, Err: errors.New(reason)}
}
