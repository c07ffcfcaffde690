// Package scanview renders a finished scan for the terminal: the matched
// chats followed by an optional log tail.
package scanview

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/avezina/chatscan/internal/domain"
)

type RenderOptions struct {
	// ShowLogs appends the emitted log entries under the result list.
	ShowLogs bool
}

func renderView(chats []domain.Chat, logs []domain.LogEntry, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Chats with activity"),
		s.header.Render(fmt.Sprintf("matched: %d", len(chats))),
	}

	if len(chats) == 0 {
		lines = append(lines, s.empty.Render("No chats matched the requested users and window."))
	}

	for _, chat := range chats {
		lines = append(lines, renderChat(chat, s))
	}

	if opts.ShowLogs && len(logs) > 0 {
		lines = append(lines, s.section.Render(s.title.Render("Scan log")))
		for _, entry := range logs {
			lines = append(lines, renderLogEntry(entry, s))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderChat(chat domain.Chat, s styles) string {
	return fmt.Sprintf("%s %s",
		s.chat.Render(chat.Label()),
		s.kind.Render(fmt.Sprintf("(%s, id %s)", chat.Kind, chat.ID)),
	)
}

func renderLogEntry(entry domain.LogEntry, s styles) string {
	style := s.logInfo
	switch entry.Severity {
	case domain.SeveritySuccess:
		style = s.logSuccess
	case domain.SeverityWarn:
		style = s.logWarn
	case domain.SeverityError:
		style = s.logError
	}

	return fmt.Sprintf("%s %s",
		s.logTime.Render(entry.Time.Format("15:04:05")),
		style.Render(entry.Message),
	)
}
