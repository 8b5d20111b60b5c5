package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nao1215/picdedup/internal/config"
	"github.com/nao1215/picdedup/internal/database"
	"github.com/nao1215/picdedup/internal/log"
	"github.com/nao1215/picdedup/internal/report"
	"github.com/nao1215/picdedup/internal/thumbnail"
)

// getVerboseFlag returns the verbose flag value.
// It checks both local flags and persistent flags from the root command.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getGlobalBool(cmd, "verbose")
}

func getGlobalBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the logger selected by the global flags and makes it
// the default.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	logger := log.NewLogger(cmd.ErrOrStderr(), verbose)
	if getGlobalBool(cmd, "log-json") {
		logger = log.NewJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// loadConfigFile applies the configuration file found for workdir to cfg.
// An explicit path that does not exist is an error; a missing default file
// is not.
func loadConfigFile(cfg *config.Config, workdir string, logger *slog.Logger) error {
	path := config.FindConfigFile(cfg.ConfigFilePath, workdir)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	cf, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration file %s: %w", path, err)
	}
	cf.Apply(cfg)
	logger.Debug("configuration file loaded", "path", path)
	return nil
}

// getReportFlags reads --json, --markdown and --output into cfg.
func getReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	return nil
}

// addReportFlags registers the output format flags shared by commands that
// print summaries.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to the specified file path (creates directories if needed)")
}

// openOutput returns the report destination: the report file when set,
// otherwise stdout. The returned close function is always safe to call.
func openOutput(cmd *cobra.Command, cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newSummaryWriter picks the writer for the requested format.
func newSummaryWriter(w io.Writer, cfg *config.Config, verbose bool) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(verbose))
	}
}

// loadSources maps thumbnail names in workdir to their source images.
// mapping.txt is read first; the history database is the fallback when the
// file is missing. A nil map means no mapping is known.
func loadSources(ctx context.Context, workdir string, db *database.HistoryDB, logger *slog.Logger) map[string]string {
	mappings, err := thumbnail.ReadMapping(filepath.Join(workdir, config.MappingFileName))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to read mapping file", "workdir", workdir, "error", err)
		}
		if db == nil {
			return nil
		}
		mappings, err = db.Mappings(ctx, workdir)
		if err != nil {
			logger.Warn("failed to read mappings from history", "workdir", workdir, "error", err)
			return nil
		}
	}
	if len(mappings) == 0 {
		return nil
	}

	sources := make(map[string]string, len(mappings))
	for _, m := range mappings {
		sources[m.Name] = m.Source
	}
	return sources
}

// openHistory opens the history database when enabled. It returns nil and
// logs a warning when the database cannot be opened, so history problems
// never fail a run.
func openHistory(cfg *config.Config, logger *slog.Logger) *database.HistoryDB {
	if !cfg.SaveToDB {
		return nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("history disabled", "dir", cfg.DBDir, "error", err)
		return nil
	}
	logger.Debug("history database opened", "path", db.Path())
	return db
}

// progressPrinter returns a progress callback that redraws one status line
// on w, or nil when w is not a terminal.
func progressPrinter(w io.Writer, label string) func(done, total int) {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}

	var mu sync.Mutex
	last := -1
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if done <= last {
			return
		}
		last = done
		fmt.Fprintf(w, "\r%s: %d/%d", label, done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
