package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/picdedup/internal/config"
	"github.com/nao1215/picdedup/internal/database"
	"github.com/nao1215/picdedup/internal/descriptor"
	"github.com/nao1215/picdedup/internal/model"
	"github.com/nao1215/picdedup/internal/report"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <descriptor-file>",
		Short: "Summarize a descriptor file",
		Long: `Show reads a descriptor file written by 'picdedup dedup' and prints its
counts and groups. A directory argument means its descriptor_final.txt.

Images are numbered by a flat index: unique images sorted by name come
first, then the members of each group in order. --index resolves one index
to its thumbnail path.

With --sources, thumbnail names are mapped back to the source images using
mapping.txt next to the descriptor, or the history database when that file
is missing.

Examples:
  # Summarize the final result
  picdedup show ~/photos/descriptor_final.txt

  # Resolve flat index 12
  picdedup show --index 12 --sources ~/photos

  # JSON for scripting
  picdedup show --json ~/photos`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().IntP("index", "i", -1,
		"Print the image at this flat 0-based index and exit")
	cmd.Flags().BoolP("sources", "s", false,
		"Map thumbnail names back to source images")
	cmd.Flags().BoolP("unique", "u", false,
		"List unique images as well as groups (text output only)")
	addReportFlags(cmd)

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	cfg := config.NewConfig()
	if err := getReportFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	index, err := cmd.Flags().GetInt("index")
	if err != nil {
		return err
	}
	withSources, err := cmd.Flags().GetBool("sources")
	if err != nil {
		return err
	}
	showUnique, err := cmd.Flags().GetBool("unique")
	if err != nil {
		return err
	}

	path, err := resolveDescriptorPath(args[0])
	if err != nil {
		return err
	}
	d, err := descriptor.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load descriptor: %w", err)
	}

	var sources map[string]string
	if withSources {
		sources = showSources(cmd.Context(), cfg, filepath.Dir(path), logger)
	}

	out, closeOut, err := openOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // best effort close after a successful write

	if cmd.Flags().Changed("index") {
		return showIndex(out, cfg, d, index, sources)
	}

	summary := report.NewSummary(path, d, sources)
	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(true), report.WithShowUnique(showUnique))
	}
	if _, err := w.Write(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// resolveDescriptorPath accepts a descriptor file or a working directory.
func resolveDescriptorPath(arg string) (string, error) {
	path, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	if descriptor.IsDescriptorFile(path) {
		return path, nil
	}
	final := filepath.Join(path, descriptor.FinalFileName)
	if descriptor.IsDescriptorFile(final) {
		return final, nil
	}
	// Let Load report the precise problem with the original path.
	return path, nil
}

// showSources loads the thumbnail mapping for workdir. The history
// database is only opened when mapping.txt is missing.
func showSources(ctx context.Context, cfg *config.Config, workdir string, logger *slog.Logger) map[string]string {
	if ctx == nil {
		ctx = context.Background()
	}
	var db *database.HistoryDB
	if _, err := os.Stat(filepath.Join(workdir, config.MappingFileName)); err != nil {
		if db = openHistory(cfg, logger); db != nil {
			defer db.Close()
		}
	}
	return loadSources(ctx, workdir, db, logger)
}

// showIndex prints the image at a flat index.
func showIndex(w io.Writer, cfg *config.Config, d *model.Descriptor, index int, sources map[string]string) error {
	img, err := d.Lookup(index)
	if err != nil {
		return err
	}

	entry := report.Entry{Index: index, Name: img.Name, Source: sources[img.Name]}
	if cfg.JSONReport {
		_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).WriteValue(struct {
			report.Entry
			Path string `json:"path"`
		}{entry, img.Path})
		return err
	}

	fmt.Fprintln(w, img.Path)
	if entry.Source != "" {
		fmt.Fprintf(w, "source: %s\n", entry.Source)
	}
	return nil
}
