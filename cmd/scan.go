package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/avezina/chatscan/internal/adapters/render/scanview"
	"github.com/avezina/chatscan/internal/domain"
	"github.com/avezina/chatscan/internal/scan"
)

func newScanCmd(app *app) *cobra.Command {
	var users []string
	var from string
	var to string
	var kinds []string
	var profileName string
	var asJSON bool
	var showLogs bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan chats for user activity in a date window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := resolveScanRequest(cmd, app, profileName, users, from, to, kinds)
			if err != nil {
				return err
			}

			if err := app.manager.Resume(cmd.Context()); err != nil {
				return err
			}

			return runScan(cmd, app, req, asJSON, showLogs)
		},
	}

	cmd.Flags().StringArrayVar(&users, "user", nil, "User ID to look for (repeatable)")
	cmd.Flags().StringVar(&from, "from", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Restrict to chat kinds (team|direct|other)")
	cmd.Flags().StringVar(&profileName, "profile", "", "Use a saved scan profile")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&showLogs, "show-logs", false, "Print the scan log under the results")

	return cmd
}

func resolveScanRequest(cmd *cobra.Command, app *app, profileName string, users []string, from, to string, kinds []string) (domain.ScanRequest, error) {
	if profileName != "" {
		profile, err := app.profiles.Get(cmd.Context(), profileName)
		if err != nil {
			return domain.ScanRequest{}, fmt.Errorf("load profile %q: %w", profileName, err)
		}
		return profile.Request(), nil
	}

	parsedKinds, err := parseChatKinds(kinds)
	if err != nil {
		return domain.ScanRequest{}, err
	}

	return domain.ScanRequest{
		UserIDs: users,
		From:    from,
		To:      to,
		Kinds:   parsedKinds,
	}, nil
}

func runScan(cmd *cobra.Command, app *app, req domain.ScanRequest, asJSON, showLogs bool) error {
	var chats []domain.Chat
	var err error

	if asJSON {
		chats, err = app.engine.FindChats(cmd.Context(), req, nil)
	} else {
		chats, err = runScanView(cmd.Context(), cmd.ErrOrStderr(), func(sink scan.Sink) ([]domain.Chat, error) {
			return app.engine.FindChats(cmd.Context(), req, sink)
		})
	}
	if err != nil {
		return err
	}

	progress := app.engine.Progress()

	if asJSON {
		return writeScanJSON(cmd, chats, progress.Logs)
	}

	rendered, err := scanview.Render(chats, progress.Logs, scanview.RenderOptions{ShowLogs: showLogs})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}

type scanJSONChat struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Kind string `json:"kind"`
}

type scanJSONLog struct {
	Time     time.Time `json:"time"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

type scanJSONOutput struct {
	Chats []scanJSONChat `json:"chats"`
	Logs  []scanJSONLog  `json:"logs"`
}

func writeScanJSON(cmd *cobra.Command, chats []domain.Chat, logs []domain.LogEntry) error {
	output := scanJSONOutput{
		Chats: make([]scanJSONChat, 0, len(chats)),
		Logs:  make([]scanJSONLog, 0, len(logs)),
	}
	for _, chat := range chats {
		output.Chats = append(output.Chats, scanJSONChat{ID: chat.ID, Name: chat.DisplayName, Kind: string(chat.Kind)})
	}
	for _, entry := range logs {
		output.Logs = append(output.Logs, scanJSONLog{Time: entry.Time, Severity: string(entry.Severity), Message: entry.Message})
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func parseChatKinds(raw []string) ([]domain.ChatKind, error) {
	kinds := make([]domain.ChatKind, 0, len(raw))
	for _, value := range raw {
		kind := domain.ChatKind(value)
		switch kind {
		case domain.ChatKindTeam, domain.ChatKindDirect, domain.ChatKindOther:
			kinds = append(kinds, kind)
		default:
			return nil, fmt.Errorf("unsupported chat kind %q", value)
		}
	}
	if len(kinds) == 0 {
		return nil, nil
	}
	return kinds, nil
}
