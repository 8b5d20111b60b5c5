package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoDetectors is returned when the detector chain is empty.
	ErrNoDetectors = errors.New("no detectors configured: at least one detector is required")

	// ErrUnknownDetector is returned for a detector kind other than "hash" or "orb".
	ErrUnknownDetector = errors.New("unknown detector kind: must be \"hash\" or \"orb\"")

	// ErrInvalidPrecision is returned when a hash precision is below 8.
	ErrInvalidPrecision = errors.New("invalid hash precision: must be at least 8")

	// ErrInvalidFeatures is returned when the ORB feature count is not positive.
	ErrInvalidFeatures = errors.New("invalid feature count: must be positive")

	// ErrInvalidThreshold is returned when the ORB threshold is outside (0, 1].
	ErrInvalidThreshold = errors.New("invalid match threshold: must be in (0, 1]")

	// ErrInvalidMaxDistance is returned when the Hamming cutoff is outside [0, 256].
	ErrInvalidMaxDistance = errors.New("invalid max distance: must be between 0 and 256")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidThumbnailSize is returned when the thumbnail size is not positive.
	ErrInvalidThumbnailSize = errors.New("invalid thumbnail size: must be positive")

	// ErrInvalidThumbnailQuality is returned when the JPEG quality is outside [1, 100].
	ErrInvalidThumbnailQuality = errors.New("invalid thumbnail quality: must be between 1 and 100")
)

// DetectorError reports which entry of the detector chain is invalid.
type DetectorError struct {
	Index int
	Kind  string
	Err   error
}

// Error implements the error interface.
func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector %d (%q): %v", e.Index, e.Kind, e.Err)
}

// Unwrap returns the underlying validation error.
func (e *DetectorError) Unwrap() error {
	return e.Err
}
