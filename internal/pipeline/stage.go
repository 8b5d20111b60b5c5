package pipeline

import (
	"context"
	"time"

	"github.com/nao1215/picdedup/internal/detector"
	"github.com/nao1215/picdedup/internal/model"
)

// stage is the accumulator threaded through the detector chain. It holds
// everything needed to build a stage's descriptor once its successor is
// known.
type stage struct {
	index     int
	kind      string
	completed time.Time
	duration  time.Duration

	// unique holds every image proven unique up to and including this stage.
	unique model.ImageSet

	// newUnique holds the images this stage proved unique.
	newUnique model.ImageSet

	groups       []model.Group
	fingerprints []model.Fingerprint
	present      map[model.Fingerprint]struct{}

	failed int
}

// seedStage returns the accumulator before the first detector: no unique
// images and one group holding every thumbnail.
func seedStage(images []model.Image) *stage {
	s := &stage{
		index:     -1,
		unique:    model.NewImageSet(),
		newUnique: model.NewImageSet(),
	}
	if len(images) > 0 {
		s.groups = []model.Group{model.Group(images).Clone()}
	}
	return s
}

// isSeed reports whether s precedes the first detector.
func (s *stage) isSeed() bool {
	return s.index < 0
}

// has reports whether a group with fingerprint fp exists in this stage.
func (s *stage) has(fp model.Fingerprint) bool {
	_, ok := s.present[fp]
	return ok
}

// descriptor freezes s. A group is flagged removed when its fingerprint
// does not reappear in next. With next nil every flag is false and the
// new-unique set is empty.
func (s *stage) descriptor(next *stage) (*model.Descriptor, error) {
	removed := make([]bool, len(s.groups))
	newUnique := model.NewImageSet()
	if next != nil {
		for i, fp := range s.fingerprints {
			removed[i] = !next.has(fp)
		}
		newUnique = next.newUnique
	}
	return model.NewDescriptor(s.unique, s.groups, removed, newUnique)
}

// runStage runs det over every group of prev and merges the partitions in
// submission order into the next accumulator.
func (d *Deduplicator) runStage(ctx context.Context, index int, det detector.Detector, prev *stage) (*stage, error) {
	start := time.Now()
	d.logger.Info("running stage",
		"stage", index,
		"detector", det.Kind(),
		"groups", len(prev.groups),
	)

	partitions, err := d.detectGroups(ctx, index, det, prev.groups)
	if err != nil {
		return nil, err
	}

	next := &stage{
		index:     index,
		kind:      det.Kind(),
		unique:    prev.unique.Clone(),
		newUnique: model.NewImageSet(),
	}
	for _, p := range partitions {
		for _, img := range p.Unique {
			if next.unique.Add(img) {
				next.newUnique.Add(img)
			}
		}
		next.groups = append(next.groups, p.Groups...)
		next.failed += len(p.Failed)
	}

	next.fingerprints = make([]model.Fingerprint, len(next.groups))
	next.present = make(map[model.Fingerprint]struct{}, len(next.groups))
	for i, g := range next.groups {
		fp := g.Fingerprint()
		next.fingerprints[i] = fp
		next.present[fp] = struct{}{}
	}

	next.completed = d.clock()
	next.duration = time.Since(start)

	d.metrics.ObserveStage(index, next.kind, next.unique.Len(), len(next.groups), next.duration)
	d.metrics.AddFailed(next.failed)

	d.logger.Info("stage complete",
		"stage", index,
		"detector", next.kind,
		"unique", next.unique.Len(),
		"new_unique", next.newUnique.Len(),
		"groups", len(next.groups),
		"failed", next.failed,
		"elapsed", next.duration,
	)
	return next, nil
}
