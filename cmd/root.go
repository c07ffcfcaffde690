package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chatscan",
		Short:         "chatscan: find which team chats your users posted in",
		Long:          "chatscan logs into a RingCentral-style messaging platform with OAuth2 PKCE, then scans the account's chats to find the ones where given users posted inside a date window.",
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
		newLoginCmd(app),
		newLogoutCmd(app),
		newScanCmd(app),
		newProfileCmd(app),
	)

	return rootCmd
}
