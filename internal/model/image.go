package model

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Image is a handle to one thumbnail image.
// Two images are the same image when their canonical paths are equal.
type Image struct {
	// Name is the base file name, as written to descriptor files.
	Name string `json:"name"`

	// Path is the canonical (absolute, cleaned) file path.
	Path string `json:"path"`
}

// NewImage creates an Image from a file path.
// Relative paths are made absolute against the current directory; if that
// fails the cleaned relative path is used as the identity.
func NewImage(path string) Image {
	canonical := filepath.Clean(path)
	if abs, err := filepath.Abs(canonical); err == nil {
		canonical = abs
	}
	return Image{
		Name: filepath.Base(canonical),
		Path: canonical,
	}
}

// String returns the image's file name.
func (i Image) String() string {
	return i.Name
}

// compareImages orders images by name, then by path.
func compareImages(a, b Image) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}

// SortImages sorts images in place by name (path as tie-breaker).
func SortImages(images []Image) {
	slices.SortFunc(images, compareImages)
}

// Group is an ordered list of mutually similar images.
// Member order is the order in which the detector reported them.
type Group []Image

// Fingerprint is the content identity of a group, used to recognise the same
// grouping across pipeline stages regardless of its position.
type Fingerprint [32]byte

// Fingerprint hashes the ordered member paths and the member count.
func (g Group) Fingerprint() Fingerprint {
	h := sha3.New256()
	for _, img := range g {
		_, _ = h.Write([]byte(img.Path)) //nolint:errcheck // hash.Hash never returns an error
		_, _ = h.Write([]byte{0})        //nolint:errcheck // hash.Hash never returns an error
	}
	_, _ = h.Write([]byte(strconv.Itoa(len(g)))) //nolint:errcheck // hash.Hash never returns an error

	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// Clone returns a copy of the group that shares no backing array.
func (g Group) Clone() Group {
	return slices.Clone(g)
}

// ImageSet is a set of images keyed by canonical path.
// The zero value is not usable; create sets with NewImageSet.
type ImageSet struct {
	items map[string]Image
}

// NewImageSet creates a set holding the given images.
func NewImageSet(images ...Image) ImageSet {
	s := ImageSet{items: make(map[string]Image, len(images))}
	for _, img := range images {
		s.items[img.Path] = img
	}
	return s
}

// Add inserts an image and reports whether it was not already present.
func (s ImageSet) Add(img Image) bool {
	if _, ok := s.items[img.Path]; ok {
		return false
	}
	s.items[img.Path] = img
	return true
}

// Contains reports whether the image is in the set.
func (s ImageSet) Contains(img Image) bool {
	_, ok := s.items[img.Path]
	return ok
}

// Len returns the number of images in the set.
func (s ImageSet) Len() int {
	return len(s.items)
}

// Sorted returns the members ordered by name.
func (s ImageSet) Sorted() []Image {
	out := make([]Image, 0, len(s.items))
	for _, img := range s.items {
		out = append(out, img)
	}
	SortImages(out)
	return out
}

// Clone returns an independent copy of the set.
func (s ImageSet) Clone() ImageSet {
	c := ImageSet{items: make(map[string]Image, len(s.items))}
	for k, v := range s.items {
		c.items[k] = v
	}
	return c
}

// Equal reports whether both sets hold the same images.
func (s ImageSet) Equal(other ImageSet) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for k := range s.items {
		if _, ok := other.items[k]; !ok {
			return false
		}
	}
	return true
}
