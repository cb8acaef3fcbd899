package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/project-tracker/internal/keys"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/store"
	appsync "github.com/nhle/project-tracker/internal/sync"
	"github.com/nhle/project-tracker/internal/tracker"
	"github.com/nhle/project-tracker/internal/ui"
	"github.com/nhle/project-tracker/internal/ui/command"
	helpview "github.com/nhle/project-tracker/internal/ui/help"
	"github.com/nhle/project-tracker/internal/ui/itemdetail"
	"github.com/nhle/project-tracker/internal/ui/projectlist"
	"github.com/nhle/project-tracker/internal/ui/projectview"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewProjects ViewState = iota
	ViewProject
	ViewItem
	ViewHelp
	ViewCommand
)

// openedMsg carries the result of resolving a code from the command
// palette.
type openedMsg struct {
	view ViewState
	id   string
	err  error
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the tracker service.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	svc          *tracker.Service
	user         model.User
	keys         *keys.KeyMap
	logger       *zap.Logger
	projectList  projectlist.Model
	projectView  projectview.Model
	itemView     itemdetail.Model
	helpView     helpview.Model
	commandView  command.Model
	reconciler   *appsync.Reconciler
	ready        bool
	statusMsg    string
}

// New creates the root application model.
func New(svc *tracker.Service, user model.User, reconcileEvery time.Duration, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	k := keys.DefaultKeyMap()

	return Model{
		currentView: ViewProjects,
		svc:         svc,
		user:        user,
		keys:        k,
		logger:      logger,
		projectList: projectlist.New(svc, user, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		reconciler:  appsync.New(svc, reconcileEvery, logger),
	}
}

// Init loads the project list and starts background reconciliation.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.projectList.Init(),
		m.reconciler.Start(),
	)
}

// CurrentView returns the view being shown.
func (m Model) CurrentView() ViewState {
	return m.currentView
}

// Shutdown stops background work. Call it after the program exits.
func (m Model) Shutdown() {
	m.reconciler.Stop()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.Width, m.layout.ContentHeight()
		m.projectList.SetSize(w, h)
		m.projectView.SetSize(w, h)
		m.itemView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.ResultMsg:
		if msg.Error != nil {
			m.statusMsg = fmt.Sprintf("reconcile failed: %v", msg.Error)
		} else {
			m.statusMsg = ""
		}
		return m, tea.Batch(m.reloadActive(), m.reconciler.WaitForNextResult())

	case projectlist.OpenProjectMsg:
		return m, m.openProject(msg.ID)

	case projectlist.ChangedMsg:
		return m, nil

	case projectview.OpenItemMsg:
		return m, m.openItem(msg.ID)

	case projectview.BackMsg:
		m.currentView = ViewProjects
		return m, m.projectList.Reload()

	case itemdetail.BackMsg:
		if msg.ProjectID == "" {
			m.currentView = ViewProjects
			return m, m.projectList.Reload()
		}
		return m, m.openProject(msg.ProjectID)

	case openedMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
			return m, nil
		}
		m.statusMsg = ""
		if msg.view == ViewItem {
			return m, m.openItem(msg.id)
		}
		return m, m.openProject(msg.id)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case command.ErrorMsg:
		m.currentView = m.previousView
		m.statusMsg = msg.Err.Error()
		return m, nil

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if m.capturing() {
			break
		}
		switch {
		case msg.String() == "ctrl+c":
			return m, tea.Quit

		case key.Matches(msg, m.keys.Quit):
			if m.currentView == ViewProjects {
				return m, tea.Quit
			}

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Command):
			if m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case key.Matches(msg, m.keys.Reconcile):
			if m.currentView != ViewCommand {
				m.reconciler.Refresh()
				return m, nil
			}

		case key.Matches(msg, m.keys.Back):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturing reports whether the active view is editing text and must
// receive every key.
func (m Model) capturing() bool {
	switch m.currentView {
	case ViewProjects:
		return m.projectList.Capturing()
	case ViewProject:
		return m.projectView.Capturing()
	case ViewItem:
		return m.itemView.Capturing()
	case ViewCommand:
		return true
	}
	return false
}

// updateActiveView dispatches the message to the currently active view.
// Messages that arrive while an overlay is open go to the view below it so
// that pending loads and saves are not lost.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	target := m.currentView
	if _, isKey := msg.(tea.KeyMsg); !isKey && (target == ViewHelp || target == ViewCommand) {
		if target == ViewCommand {
			var cmd tea.Cmd
			m.commandView, cmd = m.commandView.Update(msg)
			cmds = append(cmds, cmd)
		}
		target = m.previousView
	}

	var cmd tea.Cmd
	switch target {
	case ViewProjects:
		m.projectList, cmd = m.projectList.Update(msg)
	case ViewProject:
		m.projectView, cmd = m.projectView.Update(msg)
	case ViewItem:
		m.itemView, cmd = m.itemView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, tea.Batch(append(cmds, cmd)...)
}

func (m *Model) openProject(id string) tea.Cmd {
	w, h := m.layout.Width, m.layout.ContentHeight()
	m.projectView = projectview.New(m.svc, m.user, m.keys, id, w, h)
	m.currentView = ViewProject
	return m.projectView.Init()
}

func (m *Model) openItem(id string) tea.Cmd {
	w, h := m.layout.Width, m.layout.ContentHeight()
	m.itemView = itemdetail.New(m.svc, m.user, m.keys, id, w, h)
	m.currentView = ViewItem
	return m.itemView.Init()
}

// reloadActive refreshes the view the user is looking at.
func (m Model) reloadActive() tea.Cmd {
	view := m.currentView
	if view == ViewHelp || view == ViewCommand {
		view = m.previousView
	}
	switch view {
	case ViewProject:
		return m.projectView.Reload()
	case ViewItem:
		return m.itemView.Reload()
	default:
		return m.projectList.Reload()
	}
}

// executeCommand runs a command from the palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Name {
	case command.Quit:
		return tea.Quit
	case command.Reconcile:
		m.reconciler.Refresh()
		return nil
	case command.Projects:
		m.currentView = ViewProjects
		return m.projectList.Reload()
	case command.Project:
		svc := m.svc
		return func() tea.Msg {
			p, err := svc.GetProjectByCode(context.Background(), c.Arg)
			if err != nil {
				return openedMsg{err: lookupError("project", c.Arg, err)}
			}
			return openedMsg{view: ViewProject, id: p.ID}
		}
	case command.Item:
		svc := m.svc
		return func() tea.Msg {
			it, err := svc.GetItemByCode(context.Background(), c.Arg)
			if err != nil {
				return openedMsg{err: lookupError("item", c.Arg, err)}
			}
			return openedMsg{view: ViewItem, id: it.ID}
		}
	default:
		return nil
	}
}

func lookupError(kind, code string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no %s %s", kind, code)
	}
	return err
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.reconcileStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints())
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

func (m Model) headerTitle() string {
	title := "Projects"
	switch m.currentView {
	case ViewProject:
		title = m.projectView.Title()
	case ViewItem:
		title = m.itemView.Title()
	}
	return fmt.Sprintf("%s · %s", title, m.user.Name)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewProjects:
		return m.projectList.View()
	case ViewProject:
		return m.projectView.View()
	case ViewItem:
		return m.itemView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// reconcileStatus returns a short string describing the reconciler.
func (m Model) reconcileStatus() string {
	st := m.reconciler.Status()
	switch st.State {
	case appsync.Running:
		return "reconciling"
	case appsync.Failed:
		return "⚠ reconcile failed"
	}
	if st.LastRun.IsZero() {
		return "idle"
	}
	return fmt.Sprintf("reconciled %d at %s", st.Projects, st.LastRun.Format("15:04"))
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMsg != "" {
		return m.statusMsg
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewProject:
		return "enter open | n new item | e edit project | x complete | tab completed | esc back"
	case ViewItem:
		return "e edit | c comment | l log work | x complete | tab panel | enter/d row | esc back"
	default:
		return "q quit | ? help | : command | r reconcile"
	}
}
