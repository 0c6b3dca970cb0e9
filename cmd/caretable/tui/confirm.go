package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// confirmKeyMap defines the key bindings for the confirmation dialog.
type confirmKeyMap struct {
	Yes     key.Binding
	No      key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

var confirmKeys = confirmKeyMap{
	Yes:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "yes")),
	No:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "no")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Cancel:  key.NewBinding(key.WithKeys("esc", "q", "ctrl+c"), key.WithHelp("esc/q", "cancel")),
}

// ConfirmModel is a yes/no confirmation dialog. No starts selected so a
// stray enter never confirms a destructive action.
type ConfirmModel struct {
	Title    string
	Message  string
	yes      bool
	accepted bool
}

// NewConfirmModel creates a confirmation dialog.
func NewConfirmModel(title, message string) ConfirmModel {
	return ConfirmModel{Title: title, Message: message}
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, confirmKeys.Yes):
			m.yes = true
		case key.Matches(msg, confirmKeys.No):
			m.yes = false
		case key.Matches(msg, confirmKeys.Confirm):
			m.accepted = m.yes
			return m, tea.Quit
		case key.Matches(msg, confirmKeys.Cancel):
			m.accepted = false
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.Title))
	b.WriteString("\n\n")
	b.WriteString(m.Message)
	b.WriteString("\n\n")

	yesButton := inactiveButtonStyle.Render("Yes")
	noButton := inactiveButtonStyle.Render("No")
	if m.yes {
		yesButton = activeButtonStyle.Render("Yes")
	} else {
		noButton = activeButtonStyle.Render("No")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, yesButton, "  ", noButton))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(
		FormatKey("←/→", "navigate") + " • " +
			FormatKey("enter", "confirm") + " • " +
			FormatKey("esc/q", "cancel")))

	return boxStyle.Render(b.String())
}

// Confirm runs the dialog and reports whether the user chose yes.
func Confirm(title, message string) (bool, error) {
	final, err := tea.NewProgram(NewConfirmModel(title, message)).Run()
	if err != nil {
		return false, err
	}
	return final.(ConfirmModel).accepted, nil
}
