package scanview

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	chat    lipgloss.Style
	kind    lipgloss.Style
	empty   lipgloss.Style
	section lipgloss.Style

	logInfo    lipgloss.Style
	logSuccess lipgloss.Style
	logWarn    lipgloss.Style
	logError   lipgloss.Style
	logTime    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		chat:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		kind:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		empty:   lipgloss.NewStyle().Faint(true),
		section: lipgloss.NewStyle().MarginTop(1),

		logInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		logSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		logWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		logError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		logTime:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}
