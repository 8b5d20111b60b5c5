package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for picdedup.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "picdedup",
		Short: "Find duplicate and near-duplicate images",
		Long: `picdedup finds duplicate and near-duplicate images in a photo directory.

The usual workflow is:
  1. picdedup thumbnail <dir>   render small, uniform thumbnails
  2. picdedup dedup <dir>       run the detector chain over them
  3. picdedup show <file>       inspect a descriptor file

Every stage of the detector chain writes a descriptor file listing the
images proven unique and the groups that are still similar. Runs are
recorded in a history database; use 'picdedup history' to list them.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	// Add subcommands
	cmd.AddCommand(NewThumbnailCmd())
	cmd.AddCommand(NewDedupCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
