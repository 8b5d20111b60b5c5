package detector

import (
	"context"

	"golang.org/x/sync/semaphore"
)

type decodeLimitKey struct{}

// WithDecodeLimit returns a context that makes every detector running under
// it share sem: each image decode holds one unit while it is decoded and
// analysed. The pipeline uses this to cap decodes across concurrently
// detected groups, which would otherwise multiply the per-detector worker
// limit by the number of groups in flight.
func WithDecodeLimit(ctx context.Context, sem *semaphore.Weighted) context.Context {
	if sem == nil {
		return ctx
	}
	return context.WithValue(ctx, decodeLimitKey{}, sem)
}

// acquireDecode takes one unit of the context's decode limit, if any, and
// returns the function that gives it back.
func acquireDecode(ctx context.Context) (func(), error) {
	sem, ok := ctx.Value(decodeLimitKey{}).(*semaphore.Weighted)
	if !ok {
		return func() {}, nil
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
