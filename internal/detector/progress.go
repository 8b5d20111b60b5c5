package detector

import "context"

// ProgressFunc receives the number of images processed so far and the
// total for the current Detect call. It may be called from several
// goroutines at once.
type ProgressFunc func(done, total int)

type progressKey struct{}

// WithProgress returns a context that makes detectors report per-image
// progress to fn.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, progressKey{}, fn)
}

func reportProgress(ctx context.Context, done, total int) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok {
		fn(done, total)
	}
}
