// Package ui renders the orchestrator's state stream while a command runs:
// a spinner view on a terminal, plain status lines otherwise.
package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"shopkeep-go/internal/sk"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// stateMsg carries a published sk.State into the program.
type stateMsg sk.State

// doneMsg tells the model the operation returned.
type doneMsg struct{}

// Model is the bubbletea model of the status view.
type Model struct {
	spinner     spinner.Model
	state       sk.State
	done        bool
	interrupted bool
}

// NewModel returns a Model showing the idle state.
func NewModel() Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = spinnerStyle
	return Model{spinner: s, state: sk.IdleState()}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = sk.State(msg)
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	st := m.state
	switch {
	case st.Busy:
		return m.spinner.View() + " " + st.StatusText + "\n"
	case st.Phase == sk.PhaseFailure:
		return failureStyle.Render("✗ "+st.Error) + "\n"
	case st.Phase == sk.PhaseAwaitingUserResolution:
		return noticeStyle.Render("! "+st.StatusText) + "\n"
	case st.Success:
		return successStyle.Render("✓ "+st.StatusText) + "\n"
	case m.done:
		return st.StatusText + "\n"
	default:
		return m.spinner.View() + " " + st.StatusText + "\n"
	}
}

// Interrupted reports whether the user pressed ctrl+c.
func (m Model) Interrupted() bool {
	return m.interrupted
}

// Line renders st as a single uncolored status line.
func Line(st sk.State) string {
	switch {
	case st.Phase == sk.PhaseFailure:
		return "error: " + st.Error
	default:
		return st.StatusText
	}
}
