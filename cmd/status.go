package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusrender "github.com/mhameln/wg-inquiry/internal/adapters/render/status"
	tomlrepo "github.com/mhameln/wg-inquiry/internal/adapters/repo/toml"
	"github.com/mhameln/wg-inquiry/internal/config"
)

// newStatusCmd reads the run history; unlike run and login it works without
// credentials in the config.
func newStatusCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON bool
		recent int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show run history and summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.stateDir)
			if err != nil {
				return err
			}
			runRepo, err := tomlrepo.NewRunLogRepository(cfg.StateDir)
			if err != nil {
				return err
			}

			records, err := runRepo.List(cmd.Context(), 0)
			if err != nil {
				return err
			}

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(records)
			}

			view, err := statusrender.Render(records, statusrender.RenderOptions{
				Now:        time.Now(),
				RecentRuns: recent,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), view)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw run records as JSON")
	cmd.Flags().IntVar(&recent, "recent", 5, "number of recent runs to list")
	return cmd
}
