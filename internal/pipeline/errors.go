package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWorkDir is returned when the working directory does not
	// exist or is not a directory.
	ErrInvalidWorkDir = errors.New("invalid working directory")

	// ErrMissingThumbnailDir is returned when the working directory has no
	// thumbnail subdirectory.
	ErrMissingThumbnailDir = errors.New("missing thumbnail directory")
)

// ConfigurationError is returned before any file is written when the run
// cannot start: no detectors, or a bad working directory.
type ConfigurationError struct {
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// SerializationError is returned when a descriptor file cannot be written.
// The run stops at the first such failure.
type SerializationError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to write descriptor %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SerializationError) Unwrap() error {
	return e.Err
}
