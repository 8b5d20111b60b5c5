package detector

import (
	"context"
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"github.com/nao1215/picdedup/internal/model"
)

// HashDetector groups images whose perceptual hashes are identical.
//
// Each image is converted to grayscale and reduced to precision x precision
// pixels before hashing, so a lower precision merges more aggressively.
type HashDetector struct {
	precision int
	opts      options
}

// NewHashDetector creates a HashDetector. precision must be at least 8.
func NewHashDetector(precision int, opts ...Option) *HashDetector {
	return &HashDetector{
		precision: precision,
		opts:      newOptions(opts),
	}
}

// Kind returns "HashDetector".
func (d *HashDetector) Kind() string {
	return KindHash
}

// Precision returns the resize side length.
func (d *HashDetector) Precision() int {
	return d.precision
}

// Detect buckets images by hash. Groups are ordered by the first appearance
// of their hash in images and members keep input order.
func (d *HashDetector) Detect(ctx context.Context, images []model.Image) (model.Partition, error) {
	if len(images) == 0 {
		return model.Partition{}, nil
	}

	hashes, failed, err := analyze(ctx, d.opts, images, d.hash)
	if err != nil {
		return model.Partition{}, err
	}

	bucket := make(map[uint64]int)
	var clusters [][]int
	for i, h := range hashes {
		if failed[i] {
			continue
		}
		pos, ok := bucket[h]
		if !ok {
			pos = len(clusters)
			bucket[h] = pos
			clusters = append(clusters, nil)
		}
		clusters[pos] = append(clusters[pos], i)
	}

	return partitionOf(images, failed, clusters), nil
}

func (d *HashDetector) hash(img image.Image) (uint64, error) {
	small := imaging.Resize(imaging.Grayscale(img), d.precision, d.precision, imaging.Lanczos)
	h, err := goimagehash.PerceptionHash(small)
	if err != nil {
		return 0, fmt.Errorf("failed to compute perceptual hash: %w", err)
	}
	return h.GetHash(), nil
}
