package model

import (
	"fmt"
	"slices"
)

// Descriptor is the record of one pipeline stage: the images proven unique so
// far, the groups that are still similar, whether each group was dissolved by
// the next stage, and which images the next stage proved unique.
//
// A Descriptor is immutable. It is built once the next stage has finished
// (or at the end of the pipeline for the last stage) and never changes
// afterwards, so it can be shared and serialized without copying.
type Descriptor struct {
	unique    []Image
	uniqueSet ImageSet
	groups    []Group
	removed   []bool
	newUnique []Image
}

// NewDescriptor builds a Descriptor and validates its shape.
//
// removed must hold one flag per group. Groups must have at least two
// members and no image may appear twice across unique and groups.
// The inputs are copied; later changes to them do not affect the result.
func NewDescriptor(unique ImageSet, groups []Group, removed []bool, newUnique ImageSet) (*Descriptor, error) {
	if len(removed) != len(groups) {
		return nil, fmt.Errorf("%w: %d groups, %d flags", ErrFlagCountMismatch, len(groups), len(removed))
	}

	seen := unique.Clone()
	copied := make([]Group, len(groups))
	for i, g := range groups {
		if len(g) < 2 {
			return nil, fmt.Errorf("group %d: %w", i, ErrGroupTooSmall)
		}
		for _, img := range g {
			if !seen.Add(img) {
				return nil, fmt.Errorf("group %d: %w: %s", i, ErrDuplicateImage, img.Name)
			}
		}
		copied[i] = g.Clone()
	}

	return &Descriptor{
		unique:    unique.Sorted(),
		uniqueSet: unique.Clone(),
		groups:    copied,
		removed:   slices.Clone(removed),
		newUnique: newUnique.Sorted(),
	}, nil
}

// Unique returns the unique images ordered by name.
func (d *Descriptor) Unique() []Image {
	return slices.Clone(d.unique)
}

// IsUnique reports whether the image is in the unique set.
func (d *Descriptor) IsUnique(img Image) bool {
	return d.uniqueSet.Contains(img)
}

// Groups returns the similarity groups in detection order.
func (d *Descriptor) Groups() []Group {
	out := make([]Group, len(d.groups))
	for i, g := range d.groups {
		out[i] = g.Clone()
	}
	return out
}

// GroupCount returns the number of similarity groups.
func (d *Descriptor) GroupCount() int {
	return len(d.groups)
}

// Removed returns the survival flags, one per group.
// true means the next stage dissolved the group.
func (d *Descriptor) Removed() []bool {
	return slices.Clone(d.removed)
}

// RemovedCount returns the number of groups dissolved by the next stage.
func (d *Descriptor) RemovedCount() int {
	n := 0
	for _, r := range d.removed {
		if r {
			n++
		}
	}
	return n
}

// NewUnique returns the images proven unique by the next stage, ordered by name.
func (d *Descriptor) NewUnique() []Image {
	return slices.Clone(d.newUnique)
}

// GroupedCount returns the number of images held in similarity groups.
func (d *Descriptor) GroupedCount() int {
	n := 0
	for _, g := range d.groups {
		n += len(g)
	}
	return n
}

// Len returns the number of images the descriptor accounts for.
func (d *Descriptor) Len() int {
	return len(d.unique) + d.GroupedCount()
}

// Images returns every image in flat order: unique images first, then the
// members of each group in order. This is the order used by Lookup and by
// the serialized form.
func (d *Descriptor) Images() []Image {
	out := make([]Image, 0, d.Len())
	out = append(out, d.unique...)
	for _, g := range d.groups {
		out = append(out, g...)
	}
	return out
}

// Lookup returns the image at a flat 0-based index (see Images).
func (d *Descriptor) Lookup(index int) (Image, error) {
	if index < 0 {
		return Image{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if index < len(d.unique) {
		return d.unique[index], nil
	}

	offset := len(d.unique)
	for _, g := range d.groups {
		if index < offset+len(g) {
			return g[index-offset], nil
		}
		offset += len(g)
	}
	return Image{}, fmt.Errorf("%w: %d (descriptor holds %d images)", ErrIndexOutOfRange, index, offset)
}

// Equal reports whether two descriptors hold the same unique set, the same
// groups in the same order, the same flags and the same new-unique set.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	if !slices.Equal(d.unique, other.unique) ||
		!slices.Equal(d.removed, other.removed) ||
		!slices.Equal(d.newUnique, other.newUnique) ||
		len(d.groups) != len(other.groups) {
		return false
	}
	for i := range d.groups {
		if !slices.Equal(d.groups[i], other.groups[i]) {
			return false
		}
	}
	return true
}
