package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/decay"
)

var watchFlags struct {
	project string
	dirs    []string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run background maintenance until interrupted",
	Long: `Watch project directories for file changes and run the scheduled
maintenance passes. A staleness sweep runs shortly after file churn
settles; consolidation runs on the configured cron schedule. Blocks
until SIGINT or SIGTERM.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.project, "project", "", "restrict maintenance to one project")
	watchCmd.Flags().StringSliceVar(&watchFlags.dirs, "dir", nil, "directory to watch for file changes (repeatable)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	zl := app.Logger.GetZerolog()

	opts := decay.ConsolidateOptions{
		Project:      watchFlags.project,
		MinGroupSize: app.Config.Decay.MinGroupSize,
	}

	scheduler, err := decay.NewScheduler(app.Sweeper, app.Config.Decay.Schedule, opts)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if len(watchFlags.dirs) > 0 {
		watcher, err := decay.NewWatcher(zl, func() {
			if _, err := app.Sweeper.MarkStale(watchFlags.project); err != nil {
				zl.Error().Err(err).Msg("Staleness sweep failed")
			}
		})
		if err != nil {
			return err
		}
		defer watcher.Stop()

		for _, dir := range watchFlags.dirs {
			if err := watcher.Watch(dir); err != nil {
				zl.Warn().Err(err).Str("dir", dir).Msg("Failed to watch directory")
			}
		}
	}

	zl.Info().
		Str("schedule", app.Config.Decay.Schedule).
		Strs("dirs", watchFlags.dirs).
		Msg("Maintenance running, press Ctrl-C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zl.Info().Msg("Shutting down")
	return nil
}
