package log

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// TimeFormat is the timestamp layout of terminal log lines.
const TimeFormat = "15:04:05"

// level returns Debug when verbose and Warn otherwise.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewLogger creates a colored terminal logger writing to w.
// Colors are disabled unless w is a terminal.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level(verbose),
		TimeFormat: TimeFormat,
		NoColor:    !isTerminal(w),
	})
	return slog.New(NewPathHandler(handler, homeDir()))
}

// NewJSONLogger creates a logger that writes one JSON object per record.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level(verbose),
	})
	return slog.New(NewPathHandler(handler, homeDir()))
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
