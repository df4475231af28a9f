package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

// newLoginCmd is the smoke test for a fresh setup: it establishes a session
// with the configured credentials and echoes the resolved search city.
func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify credentials and the configured search city",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if err := app.ensureSession(cmd.Context()); err != nil {
				return err
			}
			session := app.client.Export()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in (%s mode), user id %s\n", session.Mode, session.UserID)

			cities, err := app.client.FindCity(cmd.Context(), app.cfg.Search.City)
			if err != nil {
				return err
			}
			if len(cities) == 0 {
				return fmt.Errorf("city %q: %w", app.cfg.Search.City, domain.ErrCityNotFound)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Search city %q resolved to %s (id %s)\n",
				app.cfg.Search.City, cities[0].Name, cities[0].ID)
			return nil
		},
	}
}
