package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	authadapter "github.com/avezina/chatscan/internal/adapters/auth"
)

func newLoginCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in through the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowserLogin(cmd, app)
		},
	}
}

func runBrowserLogin(cmd *cobra.Command, app *app) error {
	state, err := authadapter.NewState()
	if err != nil {
		return fmt.Errorf("generate oauth state: %w", err)
	}

	server, err := authadapter.StartCallbackServer(app.login.ListenAddr, state)
	if err != nil {
		return fmt.Errorf("start callback server: %w", err)
	}
	defer func() { _ = server.Close() }()

	authURL, err := app.manager.StartLogin(cmd.Context(), server.RedirectURI(), state)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to log in:\n%s\n", authURL)

	code, err := server.WaitForCode(app.login.Timeout)
	if err != nil {
		return fmt.Errorf("wait for oauth callback: %w", err)
	}

	if err := app.manager.CompleteLogin(cmd.Context(), code, server.RedirectURI()); err != nil {
		// The manager stays in the abandoned awaiting-callback state on
		// a failed exchange; reset it so the next login starts clean.
		if logoutErr := app.manager.Logout(cmd.Context()); logoutErr != nil {
			return errors.Join(err, logoutErr)
		}
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Login complete.")
	return nil
}
