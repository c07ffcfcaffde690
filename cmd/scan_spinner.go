package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/avezina/chatscan/internal/domain"
	"github.com/avezina/chatscan/internal/scan"
)

type scanLogMsg domain.LogEntry

type scanDoneMsg struct {
	chats []domain.Chat
	err   error
}

type scanViewModel struct {
	spinner spinner.Model
	start   tea.Cmd
	lines   []string
	chats   []domain.Chat
	err     error
	done    bool
}

func newScanViewModel(start tea.Cmd) scanViewModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return scanViewModel{
		spinner: s,
		start:   start,
	}
}

func (m scanViewModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start)
}

func (m scanViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case scanLogMsg:
		m.lines = append(m.lines, formatScanLogLine(domain.LogEntry(msg)))
		return m, nil
	case scanDoneMsg:
		m.done = true
		m.chats = msg.chats
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m scanViewModel) View() string {
	if m.done {
		return ""
	}

	view := strings.Join(m.lines, "\n")
	if view != "" {
		view += "\n"
	}
	return view + fmt.Sprintf("%s Scanning...", m.spinner.View())
}

func formatScanLogLine(entry domain.LogEntry) string {
	glyph := "•"
	switch entry.Severity {
	case domain.SeveritySuccess:
		glyph = "✓"
	case domain.SeverityWarn:
		glyph = "!"
	case domain.SeverityError:
		glyph = "✗"
	}
	return fmt.Sprintf("%s %s %s", entry.Time.Format("15:04:05"), glyph, entry.Message)
}

// runScanView drives the scan inside a bubbletea program so log entries
// stream to the terminal while the scan is in flight.
func runScanView(ctx context.Context, output io.Writer, run func(scan.Sink) ([]domain.Chat, error)) ([]domain.Chat, error) {
	var p *tea.Program

	sink := func(entry domain.LogEntry) {
		p.Send(scanLogMsg(entry))
	}
	start := func() tea.Msg {
		chats, err := run(sink)
		return scanDoneMsg{chats: chats, err: err}
	}

	p = tea.NewProgram(
		newScanViewModel(start),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	result, ok := finalModel.(scanViewModel)
	if !ok {
		return nil, fmt.Errorf("unexpected final scan view model type %T", finalModel)
	}

	return result.chats, result.err
}
