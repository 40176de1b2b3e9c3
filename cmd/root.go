package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "livesync",
		Short:         "Live sync session tooling: sessions, device logs and notifications",
		Long:          "livesync keeps per-project live sync sessions, routes device log streams through named parse rules, and waits for notifications or debugger ports reported by devices.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newSessionCmd(app),
		newLogsCmd(app),
		newDebugCmd(app),
	)

	return rootCmd
}
