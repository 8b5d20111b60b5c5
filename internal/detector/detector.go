package detector

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/nao1215/picdedup/internal/model"
)

// Detector kinds as written into stage file names.
const (
	KindHash = "HashDetector"
	KindORB  = "ORBDetector"
)

// Detector splits a group of images into unique images and similar groups.
type Detector interface {
	// Kind returns the detector's type name.
	Kind() string

	// Detect partitions images. Every input image ends up in exactly one of
	// Partition.Unique, one Partition.Groups entry, or Partition.Failed.
	// The only error returned is the context's error on cancellation.
	Detect(ctx context.Context, images []model.Image) (model.Partition, error)
}

// options holds settings shared by all detectors.
type options struct {
	logger      *slog.Logger
	workers     int
	maxDistance int
}

// Option configures a detector.
type Option func(*options)

// WithLogger sets the logger used to report unreadable images.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithWorkers bounds how many images one Detect call decodes and analyses at
// once. Concurrent Detect calls each get this many; use WithDecodeLimit on
// the context to cap them together.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		workers:     runtime.NumCPU(),
		maxDistance: defaultMaxDistance,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// partitionOf assembles a partition from clusters of input indices.
// Clusters of one image become unique images, larger clusters become groups,
// and indices marked failed are reported separately. Cluster order and
// member order are preserved.
func partitionOf(images []model.Image, failed []bool, clusters [][]int) model.Partition {
	var p model.Partition
	for i, bad := range failed {
		if bad {
			p.Failed = append(p.Failed, images[i])
		}
	}
	for _, c := range clusters {
		if len(c) == 1 {
			p.Unique = append(p.Unique, images[c[0]])
			continue
		}
		g := make(model.Group, len(c))
		for j, idx := range c {
			g[j] = images[idx]
		}
		p.Groups = append(p.Groups, g)
	}
	return p
}
