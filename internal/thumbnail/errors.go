package thumbnail

import "errors"

var (
	// ErrNotDirectory is returned when the source path is not a directory.
	ErrNotDirectory = errors.New("source is not a directory")

	// ErrNoImages is returned when the source tree holds no supported images.
	// Nothing is written in that case.
	ErrNoImages = errors.New("no images found")

	// ErrMalformedMapping is returned for a mapping.txt line without a separator.
	ErrMalformedMapping = errors.New("malformed mapping line")
)
