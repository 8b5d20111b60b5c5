// Package log builds the slog loggers used by picdedup.
//
// NewLogger writes colored, human-oriented lines through
// github.com/lmittmann/tint; NewJSONLogger writes one JSON object per
// record for log aggregation. Both wrap their handler in a PathHandler,
// which rewrites absolute paths under the user's home directory to "~/..."
// so logs shared in bug reports do not leak account names.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//	logger.Info("thumbnails generated", "dir", "/home/alice/photos") // dir=~/photos
package log
