package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avezina/chatscan/internal/domain"
)

func newProfileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved scan profiles",
	}

	cmd.AddCommand(newProfileSaveCmd(app), newProfileListCmd(app), newProfileRmCmd(app))

	return cmd
}

func newProfileSaveCmd(app *app) *cobra.Command {
	var users []string
	var from string
	var to string
	var kinds []string

	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Save a scan request under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedKinds, err := parseChatKinds(kinds)
			if err != nil {
				return err
			}

			profile := domain.Profile{
				Name:    args[0],
				UserIDs: users,
				From:    from,
				To:      to,
				Kinds:   parsedKinds,
			}
			if err := app.profiles.Save(cmd.Context(), profile); err != nil {
				return fmt.Errorf("save profile %q: %w", profile.Name, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q\n", profile.Name)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&users, "user", nil, "User ID to look for (repeatable)")
	cmd.Flags().StringVar(&from, "from", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Restrict to chat kinds (team|direct|other)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newProfileListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved scan profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := app.profiles.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list profiles: %w", err)
			}

			if len(profiles) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No saved profiles.")
				return nil
			}

			for _, profile := range profiles {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: users=%s window=%s..%s\n",
					profile.Name, strings.Join(profile.UserIDs, ","), profile.From, profile.To)
			}
			return nil
		},
	}
}

func newProfileRmCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a saved scan profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.profiles.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete profile %q: %w", args[0], err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q\n", args[0])
			return nil
		},
	}
}
