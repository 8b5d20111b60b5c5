package model

import (
	"errors"
	"path/filepath"
	"testing"
)

// img builds an image under a fixed thumbnail directory.
func img(name string) Image {
	return NewImage(filepath.Join("/data/photos/thumbnail", name))
}

// TestNewImage tests path canonicalization.
func TestNewImage(t *testing.T) {
	t.Parallel()

	t.Run("cleans the path and extracts the name", func(t *testing.T) {
		t.Parallel()

		got := NewImage("/data/photos/./thumbnail/../thumbnail/a.jpg")
		if got.Path != "/data/photos/thumbnail/a.jpg" {
			t.Errorf("expected cleaned path, got %q", got.Path)
		}
		if got.Name != "a.jpg" {
			t.Errorf("expected name a.jpg, got %q", got.Name)
		}
	})

	t.Run("relative paths become absolute", func(t *testing.T) {
		t.Parallel()

		got := NewImage("thumbnail/a.jpg")
		if !filepath.IsAbs(got.Path) {
			t.Errorf("expected absolute path, got %q", got.Path)
		}
	})

	t.Run("equal paths give equal images", func(t *testing.T) {
		t.Parallel()

		if NewImage("/x/y/a.jpg") != NewImage("/x/y//a.jpg") {
			t.Error("expected images with the same canonical path to be equal")
		}
	})
}

// TestGroupFingerprint tests group fingerprints.
func TestGroupFingerprint(t *testing.T) {
	t.Parallel()

	a, b, c := img("a.jpg"), img("b.jpg"), img("c.jpg")

	t.Run("same members give the same fingerprint", func(t *testing.T) {
		t.Parallel()
		if (Group{a, b}).Fingerprint() != (Group{a, b}).Fingerprint() {
			t.Error("expected equal fingerprints")
		}
	})

	t.Run("order matters", func(t *testing.T) {
		t.Parallel()
		if (Group{a, b}).Fingerprint() == (Group{b, a}).Fingerprint() {
			t.Error("expected different fingerprints for different order")
		}
	})

	t.Run("every member counts", func(t *testing.T) {
		t.Parallel()
		if (Group{a, b}).Fingerprint() == (Group{a, b, c}).Fingerprint() {
			t.Error("expected different fingerprints when a member is added")
		}
	})
}

// TestImageSet tests the set helper.
func TestImageSet(t *testing.T) {
	t.Parallel()

	t.Run("Add reports new members", func(t *testing.T) {
		t.Parallel()

		s := NewImageSet()
		if !s.Add(img("a.jpg")) {
			t.Error("expected first Add to report true")
		}
		if s.Add(img("a.jpg")) {
			t.Error("expected second Add to report false")
		}
		if s.Len() != 1 {
			t.Errorf("expected 1 member, got %d", s.Len())
		}
	})

	t.Run("Sorted orders by name", func(t *testing.T) {
		t.Parallel()

		s := NewImageSet(img("c.jpg"), img("a.jpg"), img("b.jpg"))
		got := s.Sorted()
		want := []string{"a.jpg", "b.jpg", "c.jpg"}
		for i, name := range want {
			if got[i].Name != name {
				t.Errorf("index %d: expected %s, got %s", i, name, got[i].Name)
			}
		}
	})

	t.Run("Clone is independent", func(t *testing.T) {
		t.Parallel()

		s := NewImageSet(img("a.jpg"))
		c := s.Clone()
		c.Add(img("b.jpg"))
		if s.Len() != 1 {
			t.Errorf("expected original to keep 1 member, got %d", s.Len())
		}
		if s.Equal(c) {
			t.Error("expected sets to differ")
		}
	})
}

// TestPartitionValidate tests the partition invariant.
func TestPartitionValidate(t *testing.T) {
	t.Parallel()

	a, b, c, d := img("a.jpg"), img("b.jpg"), img("c.jpg"), img("d.jpg")
	input := []Image{a, b, c, d}

	tests := []struct {
		name    string
		p       Partition
		wantErr error
	}{
		{
			name: "complete partition is valid",
			p:    Partition{Unique: []Image{c}, Groups: []Group{{a, b}}, Failed: []Image{d}},
		},
		{
			name:    "missing image",
			p:       Partition{Unique: []Image{c}, Groups: []Group{{a, b}}},
			wantErr: ErrMissingImage,
		},
		{
			name:    "image in two places",
			p:       Partition{Unique: []Image{a, c, d}, Groups: []Group{{a, b}}},
			wantErr: ErrDuplicateImage,
		},
		{
			name:    "singleton group",
			p:       Partition{Unique: []Image{c, d, b}, Groups: []Group{{a}}},
			wantErr: ErrGroupTooSmall,
		},
		{
			name:    "foreign image",
			p:       Partition{Unique: []Image{c, d, img("z.jpg")}, Groups: []Group{{a, b}}},
			wantErr: ErrUnknownImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.p.Validate(input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("empty partition of empty input is valid", func(t *testing.T) {
		t.Parallel()
		if err := (Partition{}).Validate(nil); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// TestNewDescriptor tests descriptor construction and validation.
func TestNewDescriptor(t *testing.T) {
	t.Parallel()

	a, b, c, d := img("a.jpg"), img("b.jpg"), img("c.jpg"), img("d.jpg")

	t.Run("valid descriptor", func(t *testing.T) {
		t.Parallel()

		desc, err := NewDescriptor(NewImageSet(c), []Group{{a, b}}, []bool{true}, NewImageSet(a))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if desc.Len() != 3 {
			t.Errorf("expected 3 images, got %d", desc.Len())
		}
		if desc.RemovedCount() != 1 {
			t.Errorf("expected 1 removed group, got %d", desc.RemovedCount())
		}
		if !desc.IsUnique(c) {
			t.Error("expected c to be unique")
		}
	})

	t.Run("flag count mismatch is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewDescriptor(NewImageSet(c), []Group{{a, b}}, nil, NewImageSet())
		if !errors.Is(err, ErrFlagCountMismatch) {
			t.Errorf("expected ErrFlagCountMismatch, got %v", err)
		}
	})

	t.Run("small group is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewDescriptor(NewImageSet(), []Group{{a}}, []bool{false}, NewImageSet())
		if !errors.Is(err, ErrGroupTooSmall) {
			t.Errorf("expected ErrGroupTooSmall, got %v", err)
		}
	})

	t.Run("image in unique set and group is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewDescriptor(NewImageSet(a), []Group{{a, b}}, []bool{false}, NewImageSet())
		if !errors.Is(err, ErrDuplicateImage) {
			t.Errorf("expected ErrDuplicateImage, got %v", err)
		}
	})

	t.Run("inputs are copied", func(t *testing.T) {
		t.Parallel()

		groups := []Group{{a, b}}
		flags := []bool{false}
		desc, err := NewDescriptor(NewImageSet(), groups, flags, NewImageSet())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		groups[0][0] = d
		flags[0] = true
		if desc.Groups()[0][0] != a {
			t.Error("expected descriptor group to be unaffected")
		}
		if desc.Removed()[0] {
			t.Error("expected descriptor flag to be unaffected")
		}
	})
}

// TestDescriptorLookup tests flat index lookup.
func TestDescriptorLookup(t *testing.T) {
	t.Parallel()

	a, b, c, e := img("a.jpg"), img("b.jpg"), img("c.jpg"), img("e.jpg")

	desc, err := NewDescriptor(NewImageSet(e, c), []Group{{b, a}}, []bool{false}, NewImageSet())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Image{c, e, b, a}
	for i, w := range want {
		got, err := desc.Lookup(i)
		if err != nil {
			t.Fatalf("index %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("index %d: expected %s, got %s", i, w.Name, got.Name)
		}
	}

	t.Run("matches Images order", func(t *testing.T) {
		t.Parallel()

		images := desc.Images()
		for i, w := range want {
			if images[i] != w {
				t.Errorf("index %d: expected %s, got %s", i, w.Name, images[i].Name)
			}
		}
	})

	t.Run("out of range", func(t *testing.T) {
		t.Parallel()

		for _, idx := range []int{-1, 4, 100} {
			if _, err := desc.Lookup(idx); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("index %d: expected ErrIndexOutOfRange, got %v", idx, err)
			}
		}
	})
}

// TestDescriptorEqual tests descriptor equality.
func TestDescriptorEqual(t *testing.T) {
	t.Parallel()

	a, b, c := img("a.jpg"), img("b.jpg"), img("c.jpg")
	build := func(removed bool) *Descriptor {
		d, err := NewDescriptor(NewImageSet(c), []Group{{a, b}}, []bool{removed}, NewImageSet(a))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return d
	}

	if !build(true).Equal(build(true)) {
		t.Error("expected equal descriptors")
	}
	if build(true).Equal(build(false)) {
		t.Error("expected descriptors with different flags to differ")
	}
	var nilDesc *Descriptor
	if nilDesc.Equal(build(true)) {
		t.Error("expected nil descriptor to differ from non-nil")
	}
}
