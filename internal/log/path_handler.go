package log

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// PathHandler wraps an slog.Handler and shortens string attributes that
// are paths under a home directory to "~/...".
type PathHandler struct {
	// handler receives the rewritten records.
	handler slog.Handler

	// home is the cleaned home directory; empty disables rewriting.
	home string
}

// NewPathHandler creates a PathHandler. If handler is nil,
// slog.Default().Handler() is used. An empty home disables rewriting.
func NewPathHandler(handler slog.Handler, home string) *PathHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if home != "" {
		home = filepath.Clean(home)
	}
	if home == string(filepath.Separator) {
		home = ""
	}
	return &PathHandler{handler: handler, home: home}
}

// Enabled delegates to the underlying handler.
func (h *PathHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rewrites the record's attributes and passes it on.
func (h *PathHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.home == "" {
		return h.handler.Handle(ctx, r)
	}

	rewritten := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		rewritten.AddAttrs(h.rewriteAttr(a))
		return true
	})
	return h.handler.Handle(ctx, rewritten)
}

// WithAttrs returns a new handler with the rewritten attributes added.
func (h *PathHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	rewritten := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		rewritten[i] = h.rewriteAttr(a)
	}
	return &PathHandler{handler: h.handler.WithAttrs(rewritten), home: h.home}
}

// WithGroup returns a new handler with the given group name.
func (h *PathHandler) WithGroup(name string) slog.Handler {
	return &PathHandler{handler: h.handler.WithGroup(name), home: h.home}
}

// rewriteAttr rewrites a single attribute, recursing into groups.
func (h *PathHandler) rewriteAttr(a slog.Attr) slog.Attr {
	if h.home == "" {
		return a
	}

	a.Value = a.Value.Resolve()
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		rewritten := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			rewritten[i] = h.rewriteAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(rewritten...)}
	case slog.KindString:
		return slog.String(a.Key, h.shorten(a.Value.String()))
	default:
		return a
	}
}

// shorten replaces a leading home directory with "~".
func (h *PathHandler) shorten(s string) string {
	if s == h.home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(s, h.home+string(filepath.Separator)); ok {
		return "~" + string(filepath.Separator) + rest
	}
	return s
}

// homeDir returns the current user's home directory, or "" when unknown.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
