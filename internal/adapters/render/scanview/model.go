package scanview

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/avezina/chatscan/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	chats  []domain.Chat
	logs   []domain.LogEntry
	opts   RenderOptions
	styles styles
	output string
}

func newModel(chats []domain.Chat, logs []domain.LogEntry, opts RenderOptions) model {
	return model{
		chats:  chats,
		logs:   logs,
		opts:   opts,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.chats, m.logs, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func Render(chats []domain.Chat, logs []domain.LogEntry, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(chats, logs, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
