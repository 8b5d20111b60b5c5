package model

import "errors"

// Errors returned when a descriptor or partition breaks its shape invariants.
var (
	// ErrFlagCountMismatch is returned when the number of survival flags
	// differs from the number of similarity groups.
	ErrFlagCountMismatch = errors.New("survival flag count does not match group count")

	// ErrGroupTooSmall is returned when a similarity group has fewer than two members.
	ErrGroupTooSmall = errors.New("similarity group must have at least two members")

	// ErrDuplicateImage is returned when an image appears more than once
	// across the unique set and the similarity groups.
	ErrDuplicateImage = errors.New("image appears more than once")

	// ErrUnknownImage is returned when a partition contains an image that
	// was not part of the detector input.
	ErrUnknownImage = errors.New("image not part of the input")

	// ErrMissingImage is returned when a partition drops an input image.
	ErrMissingImage = errors.New("input image missing from partition")

	// ErrIndexOutOfRange is returned by Descriptor.Lookup for an index past the end.
	ErrIndexOutOfRange = errors.New("image index out of range")
)
