package detector

import (
	"context"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/picdedup/internal/model"
)

// defaultMaxDistance is the Hamming distance, out of 256 bits, above which
// two keypoint descriptors never match.
const defaultMaxDistance = 64

// WithMaxDistance sets the largest Hamming distance at which two keypoint
// descriptors count as a match. Only ORBDetector reads it.
func WithMaxDistance(d int) Option {
	return func(o *options) {
		if d > 0 {
			o.maxDistance = d
		}
	}
}

// ORBDetector groups images that share many oriented keypoint descriptors.
//
// Up to features keypoints are extracted per image. Two images are similar
// when the number of cross-checked descriptor matches exceeds
// features * threshold. Similarity is merged transitively: if A~B and B~C
// then A, B and C form one group.
type ORBDetector struct {
	features  int
	threshold float64
	opts      options
}

// NewORBDetector creates an ORBDetector.
func NewORBDetector(features int, threshold float64, opts ...Option) *ORBDetector {
	return &ORBDetector{
		features:  features,
		threshold: threshold,
		opts:      newOptions(opts),
	}
}

// Kind returns "ORBDetector".
func (d *ORBDetector) Kind() string {
	return KindORB
}

// Features returns the number of keypoints extracted per image.
func (d *ORBDetector) Features() int {
	return d.features
}

// Threshold returns the fraction of Features that must match.
func (d *ORBDetector) Threshold() float64 {
	return d.threshold
}

// Detect matches every pair of images. Groups are ordered by their first
// member in input order and members keep input order.
func (d *ORBDetector) Detect(ctx context.Context, images []model.Image) (model.Partition, error) {
	if len(images) == 0 {
		return model.Partition{}, nil
	}

	descs, failed, err := analyze(ctx, d.opts, images, func(img image.Image) ([]descriptor, error) {
		return extractDescriptors(img, d.features), nil
	})
	if err != nil {
		return model.Partition{}, err
	}

	similar, err := d.similarPairs(ctx, descs, failed)
	if err != nil {
		return model.Partition{}, err
	}

	uf := newUnionFind(len(images))
	for i, js := range similar {
		for _, j := range js {
			uf.union(i, j)
		}
	}
	return partitionOf(images, failed, uf.components(failed)), nil
}

// similarPairs returns, for every image i, the images j > i it is similar to.
func (d *ORBDetector) similarPairs(ctx context.Context, descs [][]descriptor, failed []bool) ([][]int, error) {
	need := float64(d.features) * d.threshold
	similar := make([][]int, len(descs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.workers)
	for i := range descs {
		if failed[i] || len(descs[i]) == 0 {
			continue
		}
		g.Go(func() error {
			for j := i + 1; j < len(descs); j++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if failed[j] || len(descs[j]) == 0 {
					continue
				}
				if float64(crossCheckMatches(descs[i], descs[j], d.opts.maxDistance)) > need {
					similar[i] = append(similar[i], j)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return similar, nil
}

// crossCheckMatches counts descriptor pairs that are each other's nearest
// neighbour by Hamming distance and no further apart than maxDistance.
// Ties go to the lower index.
func crossCheckMatches(a, b []descriptor, maxDistance int) int {
	bestB := make([]int, len(a))
	bestBDist := make([]int, len(a))
	bestA := make([]int, len(b))
	bestADist := make([]int, len(b))
	for i := range bestBDist {
		bestBDist[i] = briefBits + 1
	}
	for j := range bestADist {
		bestADist[j] = briefBits + 1
	}

	for i := range a {
		for j := range b {
			dist := hamming(&a[i], &b[j])
			if dist < bestBDist[i] {
				bestBDist[i] = dist
				bestB[i] = j
			}
			if dist < bestADist[j] {
				bestADist[j] = dist
				bestA[j] = i
			}
		}
	}

	matches := 0
	for i, j := range bestB {
		if bestA[j] == i && bestBDist[i] <= maxDistance {
			matches++
		}
	}
	return matches
}
