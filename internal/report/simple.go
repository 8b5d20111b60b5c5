package report

import (
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SimpleWriter outputs human-readable text summaries for the terminal.
// Counts are printed with thousands separators.
type SimpleWriter struct {
	baseWriter

	// showUnique lists every unique image.
	showUnique bool

	// verbose lists the members of every group.
	verbose bool

	printer *message.Printer
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowUnique lists every unique image.
func WithShowUnique(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showUnique = show
	}
}

// WithVerbose lists the members of every group.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	if w.showUnique {
		w.writeUnique(&sb, summary)
	}
	if w.verbose {
		w.writeGroups(&sb, summary)
	}

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      PICDEDUP SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
	if summary.Descriptor != "" {
		sb.WriteString(w.printer.Sprintf("Descriptor: %s\n\n", summary.Descriptor))
	}
}

// writeCounts writes the count section.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *Summary) {
	rows := []struct {
		label string
		value int
	}{
		{"Images", summary.Images},
		{"Unique", summary.Unique},
		{"Groups", summary.Groups},
		{"Grouped images", summary.Grouped},
		{"Duplicates", summary.Duplicates()},
		{"Largest group", summary.LargestGroup},
		{"Removed groups", summary.Removed},
		{"Newly unique", summary.NewUnique},
	}
	for _, r := range rows {
		sb.WriteString(w.printer.Sprintf("  %-16s %d\n", r.label+":", r.value))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeUnique(sb *strings.Builder, summary *Summary) {
	w.writeSection(sb, "UNIQUE IMAGES")
	if len(summary.UniqueImages) == 0 {
		sb.WriteString("  No unique images\n\n")
		return
	}
	for _, e := range summary.UniqueImages {
		w.writeEntry(sb, "  ", e)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeGroups(sb *strings.Builder, summary *Summary) {
	w.writeSection(sb, "GROUPS")
	if len(summary.GroupDetails) == 0 {
		sb.WriteString("  No groups\n\n")
		return
	}
	for i, g := range summary.GroupDetails {
		status := ""
		if g.Removed {
			status = " (removed by next stage)"
		}
		sb.WriteString(w.printer.Sprintf("[%d] %d images%s\n", i+1, len(g.Members), status))
		for _, e := range g.Members {
			w.writeEntry(sb, "    ", e)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeEntry(sb *strings.Builder, indent string, e Entry) {
	sb.WriteString(indent)
	sb.WriteString(w.printer.Sprintf("#%d %s", e.Index, e.Name))
	if e.Source != "" {
		sb.WriteString(" <- ")
		sb.WriteString(e.Source)
	}
	sb.WriteString("\n")
}
