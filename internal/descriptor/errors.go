package descriptor

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingHeader is returned when the first line of a file is not
	// the "Unique Images:" header. Such a file is not a descriptor at all.
	ErrMissingHeader = errors.New("not a descriptor file: missing \"Unique Images:\" header")

	// ErrMalformed is returned when a descriptor file has the header but an
	// invalid body (unknown group label, stray image line, undersized group).
	ErrMalformed = errors.New("malformed descriptor file")

	// ErrExists is returned by Save when the target exists and overwriting
	// was not requested.
	ErrExists = errors.New("descriptor file already exists")
)

// ParseError describes where decoding a descriptor failed.
type ParseError struct {
	// Path is the file being decoded. Empty when decoding a bare reader.
	Path string

	// Line is the 1-based line number, or 0 when the error is not tied to a line.
	Line int

	// Err is the underlying error (ErrMissingHeader, ErrMalformed, or an I/O error).
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	src := e.Path
	if src == "" {
		src = "descriptor"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", src, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", src, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
