package model

import "fmt"

// Partition is the result of one detector run over a list of images.
//
// Every input image ends up in exactly one place: the unique list, a single
// group, or the failed list (images the detector could not read).
type Partition struct {
	// Unique holds images with no similar counterpart in the input.
	Unique []Image `json:"unique"`

	// Groups holds similarity groups in detection order.
	Groups []Group `json:"groups"`

	// Failed holds images that could not be read. They are excluded
	// from both Unique and Groups.
	Failed []Image `json:"failed,omitempty"`
}

// Len returns the number of images accounted for by the partition.
func (p Partition) Len() int {
	n := len(p.Unique) + len(p.Failed)
	for _, g := range p.Groups {
		n += len(g)
	}
	return n
}

// Validate checks that the partition covers exactly the given input, with no
// image repeated and no group smaller than two.
func (p Partition) Validate(input []Image) error {
	want := NewImageSet(input...)
	seen := NewImageSet()

	check := func(img Image) error {
		if !want.Contains(img) {
			return fmt.Errorf("%w: %s", ErrUnknownImage, img.Name)
		}
		if !seen.Add(img) {
			return fmt.Errorf("%w: %s", ErrDuplicateImage, img.Name)
		}
		return nil
	}

	for _, img := range p.Unique {
		if err := check(img); err != nil {
			return err
		}
	}
	for i, g := range p.Groups {
		if len(g) < 2 {
			return fmt.Errorf("group %d: %w", i, ErrGroupTooSmall)
		}
		for _, img := range g {
			if err := check(img); err != nil {
				return err
			}
		}
	}
	for _, img := range p.Failed {
		if err := check(img); err != nil {
			return err
		}
	}

	if seen.Len() != want.Len() {
		for _, img := range want.Sorted() {
			if !seen.Contains(img) {
				return fmt.Errorf("%w: %s", ErrMissingImage, img.Name)
			}
		}
	}
	return nil
}
