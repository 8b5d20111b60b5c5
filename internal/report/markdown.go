package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown format.
// It uses nao1215/markdown for tables, GitHub alerts and a mermaid pie chart.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounts(md, summary)
	w.writeGroups(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *Summary) {
	md.H1("picdedup Summary")
	md.PlainText("")
	if summary.Descriptor != "" {
		md.PlainTextf("Descriptor: `%s`", summary.Descriptor)
		md.PlainText("")
	}
}

// writeCounts writes the count table, the distribution chart and an alert.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, summary *Summary) {
	md.H2("Counts")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Images", strconv.Itoa(summary.Images)},
			{"Unique", strconv.Itoa(summary.Unique)},
			{"Groups", strconv.Itoa(summary.Groups)},
			{"Grouped images", strconv.Itoa(summary.Grouped)},
			{"Duplicates", strconv.Itoa(summary.Duplicates())},
			{"Largest group", strconv.Itoa(summary.LargestGroup)},
			{"Removed groups", strconv.Itoa(summary.Removed)},
			{"Newly unique", strconv.Itoa(summary.NewUnique)},
		},
	})
	md.PlainText("")

	if summary.Images > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Image Distribution"),
		piechart.WithShowData(true),
	)
	if summary.Unique > 0 {
		chart.LabelAndIntValue("Unique", uint64(summary.Unique))
	}
	if summary.Grouped > 0 {
		chart.LabelAndIntValue("Grouped", uint64(summary.Grouped))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *Summary) {
	switch {
	case summary.Images == 0:
		md.Note("The descriptor holds no images.")
	case summary.Groups == 0:
		md.Tip("No similar images found. Every image is unique.")
	default:
		md.Importantf(
			"%d group(s) hold %d image(s); %d could be removed while keeping one per group.",
			summary.Groups, summary.Grouped, summary.Duplicates(),
		)
	}
	md.PlainText("")
}

// writeGroups writes one table per group.
func (w *MarkdownWriter) writeGroups(md *markdown.Markdown, summary *Summary) {
	md.H2("Groups")
	md.PlainText("")

	if len(summary.GroupDetails) == 0 {
		md.PlainText("No similarity groups.")
		md.PlainText("")
		return
	}

	for i, g := range summary.GroupDetails {
		title := "Group " + strconv.Itoa(i+1)
		if g.Removed {
			title += " (removed by next stage)"
		}
		md.H3(title)
		md.PlainText("")

		rows := make([][]string, len(g.Members))
		for j, e := range g.Members {
			source := e.Source
			if source == "" {
				source = "-"
			}
			rows[j] = []string{strconv.Itoa(e.Index), "`" + e.Name + "`", escapeCell(source)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Index", "Thumbnail", "Source"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [picdedup](https://github.com/nao1215/picdedup)*")
}

// escapeCell keeps pipes in file names from breaking the table.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
