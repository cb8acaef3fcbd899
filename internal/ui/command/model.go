// Package command implements the ":" command palette.
package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/project-tracker/internal/itemcode"
	"github.com/nhle/project-tracker/internal/theme"
)

// Command names understood by the palette.
const (
	Project   = "project"
	Item      = "item"
	Reconcile = "reconcile"
	Projects  = "projects"
	Quit      = "quit"
)

var names = []string{Project, Item, Reconcile, Projects, Quit}

// CommandMsg is emitted when the user runs a valid command.
type CommandMsg struct {
	Name string
	Arg  string
}

// ErrorMsg is emitted when the entered command is invalid.
type ErrorMsg struct{ Err error }

// CancelMsg is emitted when the palette is dismissed.
type CancelMsg struct{}

// Parse validates a palette line such as "item ACME-4" or "project acme".
// A bare item code is shorthand for the item command.
func Parse(line string) (CommandMsg, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return CommandMsg{}, fmt.Errorf("empty command")
	}

	name := strings.ToLower(fields[0])
	args := fields[1:]

	if len(args) == 0 && isItemCode(fields[0]) {
		return CommandMsg{Name: Item, Arg: strings.ToUpper(fields[0])}, nil
	}

	switch name {
	case Project:
		if len(args) != 1 {
			return CommandMsg{}, fmt.Errorf("usage: project CODE")
		}
		return CommandMsg{Name: Project, Arg: strings.ToUpper(args[0])}, nil
	case Item:
		if len(args) != 1 {
			return CommandMsg{}, fmt.Errorf("usage: item CODE-N")
		}
		if _, _, err := itemcode.Parse(args[0]); err != nil {
			return CommandMsg{}, err
		}
		return CommandMsg{Name: Item, Arg: strings.ToUpper(args[0])}, nil
	case Reconcile, Projects, Quit, "q":
		if len(args) != 0 {
			return CommandMsg{}, fmt.Errorf("%s takes no arguments", name)
		}
		if name == "q" {
			name = Quit
		}
		return CommandMsg{Name: name}, nil
	default:
		return CommandMsg{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

// isItemCode reports whether s is exactly one item code.
func isItemCode(s string) bool {
	s = strings.ToUpper(s)
	codes := itemcode.Extract(s)
	return len(codes) == 1 && codes[0] == s
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "project CODE | item CODE-N | reconcile | projects | quit"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(names)
	ti.Focus()
	ti.Width = width - 6

	return Model{input: ti, width: width, height: height}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.input.Reset()
			return m, func() tea.Msg { return CancelMsg{} }
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, func() tea.Msg { return CancelMsg{} }
			}
			cmd, err := Parse(line)
			if err != nil {
				return m, func() tea.Msg { return ErrorMsg{Err: err} }
			}
			return m, func() tea.Msg { return cmd }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Command Palette")

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.input.View())

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
