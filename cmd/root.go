package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jules",
		Short:         "Jules CLI: drive remote coding sessions from the terminal",
		Long:          "jules mirrors your remote agent sessions locally: list sources, start and steer sessions, watch activity as it happens, and keep a bounded cache of recent listings.",
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

	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.Close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newLogoutCmd(app),
		newSourcesCmd(app),
		newSessionsCmd(app),
		newSendCmd(app),
		newApproveCmd(app),
		newWatchCmd(app),
		newCacheCmd(app),
	)

	return rootCmd
}
