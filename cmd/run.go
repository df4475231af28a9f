package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun bool
		every  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search for offers and message new matches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dry-run") {
				app.cfg.Settings.DryRun = dryRun
			}

			if err := app.lock.Acquire(); err != nil {
				return err
			}
			defer func() {
				if err := app.lock.Release(); err != nil {
					app.log.Warn().Err(err).Msg("release run lock")
				}
			}()

			if every > 0 {
				return runScheduled(cmd.Context(), app, every)
			}
			_, err = app.runOnce(cmd.Context())
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate sends without contacting anyone")
	cmd.Flags().DurationVar(&every, "every", 0, "repeat the run at this interval (0 runs once)")
	return cmd
}

// runScheduled runs immediately and then on the interval until the context
// is cancelled. Individual run failures are logged, not fatal.
func runScheduled(ctx context.Context, app *app, every time.Duration) error {
	app.log.Info().Dur("interval", every).Msg("starting scheduled runs, press Ctrl+C to stop")

	for {
		if _, err := app.runOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			app.log.Error().Err(err).Msg("run failed, will retry on next interval")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(every):
		}
	}
}
