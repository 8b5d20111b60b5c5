// Package report renders descriptor summaries.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - MarkdownWriter: Markdown with tables, an alert and a pie chart
//   - JSONWriter: structured JSON for tool integration
//
// Writers implement the Writer interface, so the CLI can pick one by flag.
package report
