package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/picdedup/internal/config"
	"github.com/nao1215/picdedup/internal/database"
	"github.com/nao1215/picdedup/internal/descriptor"
	"github.com/nao1215/picdedup/internal/detector"
	"github.com/nao1215/picdedup/internal/metrics"
	"github.com/nao1215/picdedup/internal/model"
	"github.com/nao1215/picdedup/internal/pipeline"
	"github.com/nao1215/picdedup/internal/report"
)

// NewDedupCmd creates the dedup command.
func NewDedupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedup <workdir>",
		Short: "Run the detector chain over a directory of thumbnails",
		Long: `Dedup groups similar images among the thumbnails in <workdir>/thumbnail.

The detector chain comes from the configuration file (default: a single
perceptual hash stage). Stage i only examines the groups left by stage i-1.
Each stage writes a descriptor file to <workdir>:

  descriptor_<i>_<Detector>_<yyyyMMddHHmmss>.txt   intermediate stages
  descriptor_final.txt                             the last stage

Examples:
  # Deduplicate with the default chain
  picdedup dedup ~/photos

  # Use a custom configuration file and 4 workers
  picdedup dedup -c chain.yaml -w 4 ~/photos

  # Print the summary as Markdown into a file
  picdedup dedup --markdown -o report.md ~/photos

Configuration file (.picdedup) example:
  detectors:
    - kind: hash
      precision: 16
    - kind: orb
      features: 500
      threshold: 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: runDedupCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .picdedup in workdir, current or home directory)")
	cmd.Flags().IntP("workers", "w", 0,
		"Maximum number of groups detected concurrently (default: number of CPUs)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this textfile after the run")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	addReportFlags(cmd)

	return cmd
}

// runDedupCmd executes the dedup command.
func runDedupCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	cfg, workdir, err := buildDedupConfig(cmd, args, logger)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDedup(ctx, cmd, cfg, workdir, logger)
}

// buildDedupConfig creates a Config from the configuration file and flags.
// Flags override the file.
func buildDedupConfig(cmd *cobra.Command, args []string, logger *slog.Logger) (*config.Config, string, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	workdir, err := filepath.Abs(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("invalid working directory: %w", err)
	}

	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, "", err
	}
	if err := loadConfigFile(cfg, workdir, logger); err != nil {
		return nil, "", err
	}

	if cmd.Flags().Changed("workers") {
		if cfg.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
			return nil, "", err
		}
	}
	if cmd.Flags().Changed("metrics-file") {
		if cfg.MetricsFile, err = cmd.Flags().GetString("metrics-file"); err != nil {
			return nil, "", err
		}
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, "", err
	}
	cfg.SaveToDB = !noHistory

	if err := getReportFlags(cmd, cfg); err != nil {
		return nil, "", err
	}
	return cfg, workdir, nil
}

// runDedup runs the pipeline, records the run and prints the summary.
func runDedup(ctx context.Context, cmd *cobra.Command, cfg *config.Config, workdir string, logger *slog.Logger) error {
	detectors, err := detector.NewChain(cfg.Detectors,
		detector.WithLogger(logger),
		detector.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var recorder *metrics.Recorder
	if cfg.MetricsFile != "" {
		recorder = metrics.NewRecorder()
	}

	var stages []pipeline.StageRecord
	dedup := pipeline.New(detectors,
		pipeline.WithLogger(logger),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithMetrics(recorder),
		pipeline.WithProgress(progressPrinter(cmd.ErrOrStderr(), "First stage")),
		pipeline.WithStageObserver(func(r pipeline.StageRecord) {
			stages = append(stages, r)
		}),
	)

	startedAt := time.Now()
	final, err := dedup.Run(ctx, workdir)
	if err != nil {
		return err
	}
	elapsed := time.Since(startedAt)

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	db := openHistory(cfg, logger)
	if db != nil {
		defer db.Close()
		run := newRun(workdir, dedup.Kinds(), final, stages, startedAt, elapsed)
		if err := db.SaveRun(ctx, run); err != nil {
			logger.Error("failed to record run", "error", err)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Run %s recorded (%s)\n", run.ID, elapsed.Round(time.Millisecond))
		}
	}

	out, closeOut, err := openOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // best effort close after a successful write

	sources := loadSources(ctx, workdir, db, logger)
	summary := report.NewSummary(filepath.Join(workdir, descriptor.FinalFileName), final, sources)
	if _, err := newSummaryWriter(out, cfg, cfg.Verbose).Write(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// newRun converts a finished pipeline run into a history record.
func newRun(workdir string, kinds []string, final *model.Descriptor, stages []pipeline.StageRecord, startedAt time.Time, elapsed time.Duration) *database.Run {
	run := &database.Run{
		WorkDir:   workdir,
		Detectors: kinds,
		Unique:    len(final.Unique()),
		Groups:    final.GroupCount(),
		StartedAt: startedAt,
		Elapsed:   elapsed,
		Stages:    make([]database.Stage, 0, len(stages)),
	}
	for _, s := range stages {
		run.Failed += s.Failed
		run.Stages = append(run.Stages, database.Stage{
			Index:     s.Index,
			Kind:      s.Kind,
			FileName:  s.FileName,
			Unique:    s.Unique,
			Groups:    s.Groups,
			Removed:   s.Removed,
			NewUnique: s.NewUnique,
			Failed:    s.Failed,
			Duration:  s.Duration,
		})
	}
	run.Images = final.Len() + run.Failed
	return run
}
