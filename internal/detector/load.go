package detector

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/picdedup/internal/model"
)

// analyze decodes every image and applies fn to it, using up to
// o.workers goroutines and no more than the context's decode limit. Results are stored by input index. Images that
// cannot be decoded or analysed are logged and flagged in failed.
func analyze[T any](ctx context.Context, o options, images []model.Image, fn func(image.Image) (T, error)) (results []T, failed []bool, err error) {
	results = make([]T, len(images))
	failed = make([]bool, len(images))

	var done atomic.Int64
	total := len(images)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, img := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			release, err := acquireDecode(gctx)
			if err != nil {
				return err
			}
			defer release()

			decoded, err := imaging.Open(img.Path)
			if err == nil {
				results[i], err = fn(decoded)
			}
			if err != nil {
				o.logger.Warn("skipping unreadable image",
					"image", img.Name,
					"error", err,
				)
				failed[i] = true
			}

			reportProgress(ctx, int(done.Add(1)), total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return results, failed, nil
}
