package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/picdedup/internal/config"
	"github.com/nao1215/picdedup/internal/database"
	"github.com/nao1215/picdedup/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [workdir]",
		Short: "List recorded dedup runs",
		Long: `History lists the dedup runs recorded in the history database, newest
first. With a workdir argument only the runs for that directory are listed.

Use --stages with a run id (or a unique prefix of it) to see the stages of
one run and the descriptor files they wrote.

Examples:
  # List every run
  picdedup history

  # List runs for one directory
  picdedup history ~/photos

  # Show the stages of a run
  picdedup history --stages 3f2a`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("stages", "",
		"Show the stages of the run with this id or id prefix")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	setupLogger(cmd)

	var workdir string
	if len(args) == 1 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid working directory: %w", err)
		}
		workdir = abs
	}
	runID, err := cmd.Flags().GetString("stages")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), cmd.OutOrStdout(), db, workdir, runID, jsonOutput)
}

// runHistory prints either the run list or one run's stages.
func runHistory(ctx context.Context, w io.Writer, db *database.HistoryDB, workdir, runID string, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if runID != "" {
		run, err := db.GetRun(ctx, runID)
		if err != nil {
			if errors.Is(err, database.ErrAmbiguousRunID) {
				return fmt.Errorf("%w (use a longer prefix)", err)
			}
			return err
		}
		if jsonOutput {
			_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).WriteValue(run)
			return err
		}
		printStages(w, run)
		return nil
	}

	runs, err := db.ListRuns(ctx, workdir)
	if err != nil {
		return err
	}
	if jsonOutput {
		if runs == nil {
			runs = []database.Run{}
		}
		_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).WriteValue(runs)
		return err
	}
	printRuns(w, runs, workdir)
	return nil
}

// printRuns writes the run list as a fixed-width table.
func printRuns(w io.Writer, runs []database.Run, workdir string) {
	if len(runs) == 0 {
		if workdir != "" {
			fmt.Fprintf(w, "No runs recorded for %s\n", workdir)
		} else {
			fmt.Fprintln(w, "No runs recorded.")
		}
		fmt.Fprintln(w, "\nUse 'picdedup dedup <workdir>' to run the detector chain.")
		return
	}

	fmt.Fprintf(w, "Recorded runs (%d):\n\n", len(runs))
	fmt.Fprintf(w, "  %-8s  %-16s  %7s  %7s  %7s  %-28s  %s\n",
		"ID", "Started", "Images", "Unique", "Groups", "Detectors", "Workdir")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(w, "  %-8s  %-16s  %7d  %7d  %7d  %-28s  %s\n",
			shortID(r.ID),
			humanize.Time(r.StartedAt),
			r.Images,
			r.Unique,
			r.Groups,
			strings.Join(r.Detectors, ","),
			r.WorkDir,
		)
	}
	fmt.Fprintln(w, "\nUse 'picdedup history --stages <id>' to see the stages of a run.")
}

// printStages writes one run's stage table.
func printStages(w io.Writer, run *database.Run) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  Workdir:  %s\n", run.WorkDir)
	fmt.Fprintf(w, "  Started:  %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
	fmt.Fprintf(w, "  Elapsed:  %s\n", run.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  Images:   %d (%d unreadable)\n\n", run.Images, run.Failed)

	fmt.Fprintf(w, "  %-5s  %-14s  %7s  %7s  %7s  %10s  %10s  %s\n",
		"Stage", "Detector", "Unique", "Groups", "Removed", "New unique", "Duration", "File")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))
	for _, s := range run.Stages {
		fmt.Fprintf(w, "  %-5d  %-14s  %7d  %7d  %7d  %10d  %10s  %s\n",
			s.Index, s.Kind, s.Unique, s.Groups, s.Removed, s.NewUnique,
			s.Duration.Round(time.Millisecond), s.FileName)
	}
}

// shortID returns the first 8 characters of a run id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
