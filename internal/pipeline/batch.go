package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/picdedup/internal/detector"
	"github.com/nao1215/picdedup/internal/model"
)

// detectGroups runs det over each group concurrently, bounded by the
// worker count. Results are stored by submission index so the merge order
// does not depend on completion order. Zero groups means no detection.
func (d *Deduplicator) detectGroups(ctx context.Context, index int, det detector.Detector, groups []model.Group) ([]model.Partition, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	if index == 0 {
		ctx = detector.WithProgress(ctx, d.progress)
	}
	ctx = detector.WithDecodeLimit(ctx, semaphore.NewWeighted(int64(d.workers)))

	results := make([]model.Partition, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			p, err := det.Detect(gctx, group)
			if err != nil {
				return err
			}
			if err := p.Validate(group); err != nil {
				return fmt.Errorf("%s returned an invalid partition for group %d: %w", det.Kind(), i, err)
			}

			results[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
