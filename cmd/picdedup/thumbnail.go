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

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/picdedup/internal/config"
	"github.com/nao1215/picdedup/internal/thumbnail"
)

// NewThumbnailCmd creates the thumbnail command.
func NewThumbnailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thumbnail <dir>",
		Short: "Render uniform thumbnails for a photo directory",
		Long: `Thumbnail walks <dir> recursively and renders every JPEG, PNG, GIF and BMP
image into <dir>/thumbnail as a square JPEG with white padding.

Thumbnails are named with short generated names (c.jpg, d.jpg, ...). The
mapping from thumbnail to source image is written to <dir>/mapping.txt and
recorded in the history database. Hidden files and directories are
skipped. EXIF orientation is applied before resizing.

Any existing <dir>/thumbnail directory is replaced.

Examples:
  # Render 256 pixel grayscale thumbnails
  picdedup thumbnail ~/photos

  # Keep color and use 128 pixel thumbnails
  picdedup thumbnail --color --size 128 ~/photos`,
		Args: cobra.ExactArgs(1),
		RunE: runThumbnailCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .picdedup in dir, current or home directory)")
	cmd.Flags().Int("size", config.DefaultThumbnailSize,
		"Side length of the square thumbnails in pixels")
	cmd.Flags().Bool("color", false,
		"Keep color instead of converting to grayscale")
	cmd.Flags().Int("quality", config.DefaultThumbnailQuality,
		"JPEG quality (1-100)")
	cmd.Flags().IntP("workers", "w", 0,
		"Maximum number of images rendered concurrently (default: number of CPUs)")
	cmd.Flags().Bool("no-history", false,
		"Do not record the mapping in the history database")

	return cmd
}

// runThumbnailCmd executes the thumbnail command.
func runThumbnailCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	cfg, dir, err := buildThumbnailConfig(cmd, args, logger)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runThumbnail(ctx, cmd, cfg, dir, logger)
}

// buildThumbnailConfig creates a Config from the configuration file and
// flags. Flags override the file.
func buildThumbnailConfig(cmd *cobra.Command, args []string, logger *slog.Logger) (*config.Config, string, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	dir, err := filepath.Abs(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("invalid directory: %w", err)
	}

	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, "", err
	}
	if err := loadConfigFile(cfg, dir, logger); err != nil {
		return nil, "", err
	}

	if cmd.Flags().Changed("size") {
		if cfg.ThumbnailSize, err = cmd.Flags().GetInt("size"); err != nil {
			return nil, "", err
		}
	}
	if cmd.Flags().Changed("quality") {
		if cfg.ThumbnailQuality, err = cmd.Flags().GetInt("quality"); err != nil {
			return nil, "", err
		}
	}
	if cmd.Flags().Changed("color") {
		color, err := cmd.Flags().GetBool("color")
		if err != nil {
			return nil, "", err
		}
		cfg.ThumbnailGrayscale = !color
	}
	if cmd.Flags().Changed("workers") {
		if cfg.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
			return nil, "", err
		}
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, "", err
	}
	cfg.SaveToDB = !noHistory

	return cfg, dir, nil
}

// runThumbnail renders the thumbnails and records the mapping.
func runThumbnail(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dir string, logger *slog.Logger) error {
	gen := thumbnail.NewGenerator(
		thumbnail.WithSize(cfg.ThumbnailSize),
		thumbnail.WithGrayscale(cfg.ThumbnailGrayscale),
		thumbnail.WithQuality(cfg.ThumbnailQuality),
		thumbnail.WithWorkers(cfg.Workers),
		thumbnail.WithLogger(logger),
		thumbnail.WithProgress(progressPrinter(cmd.ErrOrStderr(), "Rendering")),
	)

	result, err := gen.Generate(ctx, dir)
	if err != nil {
		return err
	}

	if db := openHistory(cfg, logger); db != nil {
		defer db.Close()
		if err := db.SaveMappings(ctx, dir, result.Mappings); err != nil {
			logger.Error("failed to record thumbnail mapping", "error", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated %d thumbnails in %s\n",
		len(result.Mappings), result.Elapsed.Round(time.Millisecond))
	if result.Failed > 0 {
		fmt.Fprintf(out, "Skipped %d unreadable images (run with -v for details)\n", result.Failed)
	}
	fmt.Fprintf(out, "Source images: %s, thumbnails: %s\n",
		humanize.Bytes(uint64(max(result.SourceBytes, 0))),
		humanize.Bytes(uint64(max(result.ThumbnailBytes, 0))),
	)
	fmt.Fprintf(out, "Next: picdedup dedup %s\n", dir)
	return nil
}
