package report

import (
	"github.com/nao1215/picdedup/internal/model"
)

// Entry is one image in a summary.
type Entry struct {
	// Index is the image's flat index in the descriptor.
	Index int `json:"index"`

	// Name is the thumbnail file name.
	Name string `json:"name"`

	// Source is the original image path, when a mapping is known.
	Source string `json:"source,omitempty"`
}

// GroupSummary describes one similarity group.
type GroupSummary struct {
	// Members are the group's images in descriptor order.
	Members []Entry `json:"members"`

	// Removed is true when the next stage dissolved the group.
	Removed bool `json:"removed"`
}

// Summary is a report-ready view of one descriptor.
type Summary struct {
	// Descriptor is the path of the summarized descriptor file.
	Descriptor string `json:"descriptor"`

	// Images is the total number of images the descriptor covers.
	Images int `json:"images"`

	// Unique is the number of images proven unique.
	Unique int `json:"unique"`

	// Groups is the number of similarity groups.
	Groups int `json:"groups"`

	// Grouped is the number of images that belong to a group.
	Grouped int `json:"grouped"`

	// Removed is the number of groups dissolved by the next stage.
	Removed int `json:"removed"`

	// NewUnique is the number of images the next stage proved unique.
	NewUnique int `json:"new_unique"`

	// LargestGroup is the member count of the biggest group.
	LargestGroup int `json:"largest_group"`

	// UniqueImages lists the unique images sorted by name.
	UniqueImages []Entry `json:"unique_images"`

	// GroupDetails lists the groups in descriptor order.
	GroupDetails []GroupSummary `json:"group_details"`
}

// NewSummary builds a Summary of d. sources maps thumbnail names to source
// paths and may be nil.
func NewSummary(path string, d *model.Descriptor, sources map[string]string) *Summary {
	s := &Summary{
		Descriptor: path,
		Images:     d.Len(),
		Unique:     len(d.Unique()),
		Groups:     d.GroupCount(),
		Grouped:    d.GroupedCount(),
		Removed:    d.RemovedCount(),
		NewUnique:  len(d.NewUnique()),
	}

	index := 0
	entry := func(img model.Image) Entry {
		e := Entry{Index: index, Name: img.Name, Source: sources[img.Name]}
		index++
		return e
	}

	s.UniqueImages = make([]Entry, 0, s.Unique)
	for _, img := range d.Unique() {
		s.UniqueImages = append(s.UniqueImages, entry(img))
	}

	removed := d.Removed()
	s.GroupDetails = make([]GroupSummary, 0, s.Groups)
	for i, g := range d.Groups() {
		gs := GroupSummary{Members: make([]Entry, 0, len(g)), Removed: removed[i]}
		for _, img := range g {
			gs.Members = append(gs.Members, entry(img))
		}
		s.LargestGroup = max(s.LargestGroup, len(g))
		s.GroupDetails = append(s.GroupDetails, gs)
	}
	return s
}

// Duplicates returns the number of images that could be dropped while
// keeping one image per group.
func (s *Summary) Duplicates() int {
	return s.Grouped - s.Groups
}
