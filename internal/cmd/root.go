package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// NewRootCmd creates and returns the root cobra command for the pausepool CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pausepool",
		Short: "pausepool - a pausable fixed-size worker pool",
		Long: `pausepool runs a fixed-size worker pool that can be paused and resumed
without losing queued work.

Use subcommands to perform different operations:
  - run: Run a pool over a batch of demo tasks, driven by signals and pause windows
  - pause: Pause every pool attached to a Redis fleet key
  - resume: Resume every pool attached to a Redis fleet key
  - status: Show the persisted pause state of a fleet`,
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")

	groupPool := "pool"
	groupFleet := "fleet"

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupPool,
		Title: "Pool Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupFleet,
		Title: "Fleet Commands",
	})

	runCmd := NewRunCmd()
	pauseCmd := NewPauseCmd()
	resumeCmd := NewResumeCmd()
	statusCmd := NewStatusCmd()

	runCmd.GroupID = groupPool
	pauseCmd.GroupID = groupFleet
	resumeCmd.GroupID = groupFleet
	statusCmd.GroupID = groupFleet

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)

	return rootCmd
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		level = "info"
	}
	return newLogger(cmd.ErrOrStderr(), level)
}
