package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

type rootOptions struct {
	stateDir string
	debug    bool
}

func (o *rootOptions) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "wgi",
		Short:         "wgi: automated WG-Gesucht room search and outreach",
		Long:          "wgi searches wg-gesucht.de for room offers matching your criteria and sends an outreach message to each new match, keeping track of everything it already contacted.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&opts.stateDir, "state-dir", "", "state directory (default ~/.wg-inquiry)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(opts),
		newLoginCmd(opts),
		newStatusCmd(opts),
		newExportCmd(opts),
	)

	return rootCmd
}
