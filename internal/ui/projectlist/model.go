// Package projectlist is the start screen: every project with its status
// and open item count.
package projectlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/project-tracker/internal/keys"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/store"
	"github.com/nhle/project-tracker/internal/theme"
	"github.com/nhle/project-tracker/internal/tracker"
	"github.com/nhle/project-tracker/internal/ui/forms"
)

// OpenProjectMsg asks the parent to show a project's overview.
type OpenProjectMsg struct{ ID string }

// ChangedMsg signals that projects were created, updated or deleted.
type ChangedMsg struct{}

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirmDelete
)

type projectsLoadedMsg struct {
	projects []model.Project
	err      error
}

type projectSavedMsg struct{ err error }
type projectDeletedMsg struct{ err error }

// Model is the Bubble Tea model for the project list.
type Model struct {
	mode        mode
	svc         *tracker.Service
	user        model.User
	keys        *keys.KeyMap
	projects    []model.Project
	selectedIdx int
	form        forms.Model
	statusMsg   string
	width       int
	height      int
}

// New creates a new project list model.
func New(svc *tracker.Service, user model.User, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:   modeList,
		svc:    svc,
		user:   user,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init loads projects from the store.
func (m Model) Init() tea.Cmd {
	return m.loadProjects()
}

// Reload refreshes the list.
func (m Model) Reload() tea.Cmd {
	return m.loadProjects()
}

// Capturing reports whether the view is showing a form that needs every
// key press.
func (m Model) Capturing() bool {
	return m.mode != modeList
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case projectsLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.projects = msg.projects
		if m.selectedIdx >= len(m.projects) {
			m.selectedIdx = max(len(m.projects)-1, 0)
		}
		return m, nil

	case projectSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Project saved"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadProjects(), func() tea.Msg { return ChangedMsg{} })

	case projectDeletedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Project deleted"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadProjects(), func() tea.Msg { return ChangedMsg{} })

	case forms.SubmitMsg:
		if msg.Project == nil {
			return m, nil
		}
		return m, m.saveProject(*msg.Project, msg.IsNew)

	case forms.ConfirmMsg:
		if msg.Confirmed && len(m.projects) > 0 {
			return m, m.deleteProject(m.projects[m.selectedIdx].ID)
		}
		m.mode = modeList
		return m, nil

	case forms.ErrorMsg:
		m.statusMsg = fmt.Sprintf("Error: %v", msg.Err)
		m.mode = modeList
		return m, nil

	case forms.CancelMsg:
		m.mode = modeList
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeList {
			return m.handleListKey(msg)
		}
	}

	if m.mode != modeList {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.projects) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.projects)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.projects) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.projects) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if len(m.projects) == 0 {
			return m, nil
		}
		id := m.projects[m.selectedIdx].ID
		return m, func() tea.Msg { return OpenProjectMsg{ID: id} }

	case key.Matches(msg, m.keys.New):
		m.statusMsg = ""
		m.form = forms.NewProject(nil, m.width, m.height)
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		if len(m.projects) == 0 {
			return m, nil
		}
		p := m.projects[m.selectedIdx]
		m.form = forms.NewProject(&p, m.width, m.height)
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if len(m.projects) == 0 {
			return m, nil
		}
		if !m.user.IsSuperuser() {
			m.statusMsg = "Only a superuser may delete projects"
			return m, nil
		}
		p := m.projects[m.selectedIdx]
		m.form = forms.NewConfirm(
			fmt.Sprintf("Delete project %s?", p.Label()),
			"Its items, comments and work logs are deleted too.",
			m.width, m.height,
		)
		m.mode = modeConfirmDelete
		return m, m.form.Init()
	}
	return m, nil
}

// View renders the project list.
func (m Model) View() string {
	if m.mode != modeList {
		return m.form.View()
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Projects"))
	b.WriteString("\n\n")

	if len(m.projects) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No projects yet. Press 'n' to create one."))
	} else {
		for i, p := range m.projects {
			status := theme.StatusStyle(p.Status).Render(p.Status.String())
			label := fmt.Sprintf("%-10s %s  %s  %d open",
				p.Code, p.Name, status, p.OpenItems)
			if p.Deadline != nil {
				label += "  due " + p.Deadline.Format(forms.DateLayout)
			}

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render(
		"enter open | n new | e edit | d delete | : command | q quit",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form.SetSize(width, height)
}

func (m Model) loadProjects() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		projects, err := svc.ListProjects(context.Background(), store.ProjectFilter{SortBy: "code"})
		return projectsLoadedMsg{projects: projects, err: err}
	}
}

func (m Model) saveProject(p model.Project, isNew bool) tea.Cmd {
	svc := m.svc
	user := m.user
	return func() tea.Msg {
		if isNew {
			return projectSavedMsg{err: svc.CreateProject(context.Background(), user, &p)}
		}
		return projectSavedMsg{err: svc.UpdateProject(context.Background(), &p)}
	}
}

func (m Model) deleteProject(id string) tea.Cmd {
	svc := m.svc
	user := m.user
	return func() tea.Msg {
		return projectDeletedMsg{err: svc.DeleteProject(context.Background(), user, id)}
	}
}
