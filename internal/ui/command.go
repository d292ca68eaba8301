package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/pufferwatch/internal/supervisor"
)

// commandState is the line editor for console commands sent to the child.
type commandState struct {
	typing bool
	input  textinput.Model
}

func newCommandState() commandState {
	ti := textinput.New()
	ti.Placeholder = "help"
	ti.Prompt = ": "
	ti.CharLimit = 500
	return commandState{input: ti}
}

type commandResultMsg struct {
	line string
	err  error
}

// openCommand starts editing a command. It does nothing without a child.
func (m *Model) openCommand() tea.Cmd {
	if m.sender == nil {
		return nil
	}
	m.command.typing = true
	m.command.input.SetValue("")
	return m.command.input.Focus()
}

func (m Model) handleCommandInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		line := m.command.input.Value()
		m.command.typing = false
		m.command.input.Blur()
		m.command.input.SetValue("")
		if strings.TrimSpace(line) == "" {
			return m, nil
		}
		return m, sendCmd(m.sender, line)
	case key.Matches(msg, m.keys.Escape):
		m.command.typing = false
		m.command.input.Blur()
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.command.input, cmd = m.command.input.Update(msg)
	return m, cmd
}

// sendCmd writes the line off the UI goroutine since a child that isn't
// reading its input can block the write.
func sendCmd(s Sender, line string) tea.Cmd {
	return func() tea.Msg {
		return commandResultMsg{line: line, err: s.Send(line)}
	}
}

// commandFailure names a failed send for the status bar.
func commandFailure(err error) string {
	if errors.Is(err, supervisor.ErrInputClosed) {
		return "game input is closed"
	}
	return "command not sent"
}
