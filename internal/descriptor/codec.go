package descriptor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nao1215/picdedup/internal/model"
)

// Section headers of the descriptor text layout.
const (
	headerUnique    = "Unique Images:"
	headerGroups    = "Similar Groups:"
	headerNewUnique = "New unique Images by next detector:"
	groupPrefix     = "Group:"
	removedLabel    = "removed"
)

// section is the part of the file the decoder is currently reading.
type section int

const (
	sectionUnique section = iota
	sectionGroups
	sectionNewUnique
)

// Encode writes a descriptor in its text layout.
//
// Unique and new-unique images are written sorted by name, groups in
// detection order, so unchanged input always produces byte-identical output.
func Encode(w io.Writer, d *model.Descriptor) error {
	groups := d.Groups()
	removed := d.Removed()
	if len(groups) != len(removed) {
		return fmt.Errorf("%w: %d groups, %d flags", model.ErrFlagCountMismatch, len(groups), len(removed))
	}

	bw := bufio.NewWriter(w)

	bw.WriteString(headerUnique + "\n")
	for _, img := range d.Unique() {
		bw.WriteString(img.Name + "\n")
	}

	bw.WriteString("\n" + headerGroups + "\n")
	for i, g := range groups {
		if removed[i] {
			bw.WriteString(groupPrefix + removedLabel + "\n")
		} else {
			bw.WriteString(groupPrefix + "\n")
		}
		for _, img := range g {
			bw.WriteString(img.Name + "\n")
		}
		bw.WriteString("\n")
	}

	bw.WriteString(headerNewUnique + "\n")
	for _, img := range d.NewUnique() {
		bw.WriteString(img.Name + "\n")
	}

	return bw.Flush()
}

// Decode parses a descriptor from r. Image names are resolved against
// imageDir to rebuild each image's canonical path.
//
// A missing header yields ErrMissingHeader; any other structural problem
// yields ErrMalformed. Both are wrapped in a *ParseError.
func Decode(r io.Reader, imageDir string) (*model.Descriptor, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, &ParseError{Err: err}
		}
		return nil, &ParseError{Line: 1, Err: ErrMissingHeader}
	}
	if strings.TrimRight(scanner.Text(), "\r") != headerUnique {
		return nil, &ParseError{Line: 1, Err: ErrMissingHeader}
	}

	var (
		unique    = model.NewImageSet()
		newUnique = model.NewImageSet()
		groups    []model.Group
		removed   []bool
		current   model.Group
		inGroup   bool
		mode      = sectionUnique
		lineNo    = 1
	)

	flush := func() {
		if inGroup {
			groups = append(groups, current)
		}
		current = nil
		inGroup = false
	}
	malformed := func(format string, args ...any) error {
		return &ParseError{Line: lineNo, Err: fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))}
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case line == headerGroups:
			if mode != sectionUnique {
				return nil, malformed("unexpected %q", headerGroups)
			}
			mode = sectionGroups

		case strings.HasPrefix(line, groupPrefix):
			if mode != sectionGroups {
				return nil, malformed("group outside of %q", headerGroups)
			}
			label := strings.TrimSpace(strings.TrimPrefix(line, groupPrefix))
			if label != "" && label != removedLabel {
				return nil, malformed("unknown group label %q", label)
			}
			flush()
			inGroup = true
			removed = append(removed, label == removedLabel)

		case line == headerNewUnique:
			if mode == sectionNewUnique {
				return nil, malformed("duplicate %q", headerNewUnique)
			}
			flush()
			mode = sectionNewUnique

		case strings.TrimSpace(line) == "":
			continue

		default:
			img := model.NewImage(filepath.Join(imageDir, strings.TrimSpace(line)))
			switch mode {
			case sectionUnique:
				if !unique.Add(img) {
					return nil, malformed("duplicate image %q", img.Name)
				}
			case sectionGroups:
				if !inGroup {
					return nil, malformed("image %q before any group", img.Name)
				}
				current = append(current, img)
			case sectionNewUnique:
				if !newUnique.Add(img) {
					return nil, malformed("duplicate image %q", img.Name)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: lineNo, Err: err}
	}
	flush()

	d, err := model.NewDescriptor(unique, groups, removed, newUnique)
	if err != nil {
		return nil, &ParseError{Err: errors.Join(ErrMalformed, err)}
	}
	return d, nil
}
