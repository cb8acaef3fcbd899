// Package projectview shows one project: its backlog on the left and its
// financial summary on the right.
package projectview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/project-tracker/internal/keys"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/overview"
	"github.com/nhle/project-tracker/internal/theme"
	"github.com/nhle/project-tracker/internal/tracker"
	"github.com/nhle/project-tracker/internal/ui"
	"github.com/nhle/project-tracker/internal/ui/forms"
)

// OpenItemMsg asks the parent to show an item's detail.
type OpenItemMsg struct{ ID string }

// BackMsg asks the parent to return to the project list.
type BackMsg struct{}

type mode int

const (
	modeBacklog mode = iota
	modeItemForm
	modeProjectForm
)

type overviewLoadedMsg struct {
	overview *overview.ProjectOverview
	err      error
}

type savedMsg struct {
	status string
	err    error
}

// Model is the Bubble Tea model for the project overview.
type Model struct {
	mode             mode
	svc              *tracker.Service
	user             model.User
	keys             *keys.KeyMap
	projectID        string
	overview         *overview.ProjectOverview
	includeCompleted bool
	selectedIdx      int
	form             forms.Model
	statusMsg        string
	now              func() time.Time
	width            int
	height           int
}

// New creates the overview of projectID.
func New(svc *tracker.Service, user model.User, k *keys.KeyMap, projectID string, width, height int) Model {
	return Model{
		mode:      modeBacklog,
		svc:       svc,
		user:      user,
		keys:      k,
		projectID: projectID,
		now:       time.Now,
		width:     width,
		height:    height,
	}
}

// Init loads the overview.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Reload refreshes the overview, e.g. after a reconciliation.
func (m Model) Reload() tea.Cmd {
	return m.load()
}

// ProjectID returns the project being shown.
func (m Model) ProjectID() string {
	return m.projectID
}

// Title returns a header title for the project.
func (m Model) Title() string {
	if m.overview == nil {
		return "Project"
	}
	return m.overview.Project.Label()
}

// Capturing reports whether a form is open.
func (m Model) Capturing() bool {
	return m.mode != modeBacklog
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case overviewLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.overview = msg.overview
		if m.selectedIdx >= len(m.overview.Backlog) {
			m.selectedIdx = max(len(m.overview.Backlog)-1, 0)
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.statusMsg = errorText(msg.err)
		} else {
			m.statusMsg = msg.status
		}
		m.mode = modeBacklog
		return m, m.load()

	case forms.SubmitMsg:
		switch {
		case msg.Item != nil:
			return m, m.saveItem(*msg.Item, msg.IsNew)
		case msg.Project != nil:
			return m, m.saveProject(*msg.Project)
		}
		return m, nil

	case forms.ErrorMsg:
		m.statusMsg = fmt.Sprintf("Error: %v", msg.Err)
		m.mode = modeBacklog
		return m, nil

	case forms.CancelMsg:
		m.mode = modeBacklog
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeBacklog {
			return m.handleKey(msg)
		}
	}

	if m.mode != modeBacklog {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) selected() *model.Item {
	if m.overview == nil || len(m.overview.Backlog) == 0 {
		return nil
	}
	it := m.overview.Backlog[m.selectedIdx].Item
	return &it
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	n := 0
	if m.overview != nil {
		n = len(m.overview.Backlog)
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keys.Down):
		if n > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % n
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if n > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = n - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if it := m.selected(); it != nil {
			id := it.ID
			return m, func() tea.Msg { return OpenItemMsg{ID: id} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.includeCompleted = !m.includeCompleted
		return m, m.load()

	case key.Matches(msg, m.keys.New):
		if m.overview == nil || !m.overview.CanAddItem {
			m.statusMsg = "You may not add items"
			return m, nil
		}
		m.statusMsg = ""
		m.form = forms.NewItem(nil, m.projectID, false, m.width, m.height)
		m.mode = modeItemForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		if m.overview == nil {
			return m, nil
		}
		p := m.overview.Project
		m.form = forms.NewProject(&p, m.width, m.height)
		m.mode = modeProjectForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Complete):
		it := m.selected()
		if it == nil {
			return m, nil
		}
		return m, m.toggleCompleted(*it)
	}
	return m, nil
}

// View renders the backlog and the financials panel side by side.
func (m Model) View() string {
	if m.mode != modeBacklog {
		return m.form.View()
	}
	if m.overview == nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(theme.DimmedStyle.Render("Loading..."))
	}

	mainW, sideW := ui.Columns(m.width, 30)
	left := lipgloss.NewStyle().Width(mainW).Padding(0, 1).Render(m.renderBacklog())
	right := m.renderSide(sideW)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	if m.statusMsg != "" {
		body += "\n" + lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Padding(0, 1).Render(m.statusMsg)
	}
	return body
}

func (m Model) renderBacklog() string {
	ov := m.overview
	var b strings.Builder

	heading := "Backlog"
	if m.includeCompleted {
		heading += " (all)"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(heading))
	b.WriteString("\n\n")

	if len(ov.Backlog) == 0 {
		b.WriteString(theme.DimmedStyle.Italic(true).Render("No items. Press 'n' to add one."))
		return b.String()
	}

	for i, row := range ov.Backlog {
		it := row.Item
		line := fmt.Sprintf("%s %s %-10s %s",
			theme.TypeStyle(it.Type).Render(row.Type.Glyph),
			theme.PriorityStyle(it.Priority).Render(row.Priority.Glyph),
			it.Code,
			it.Name,
		)
		badges := theme.BadgeStyle.Render(row.Estimate)
		if ov.ShowLoggedHours {
			badges += " " + theme.BadgeStyle.Render(row.Worked)
		}
		line += "  " + badges

		switch {
		case i == m.selectedIdx:
			b.WriteString(theme.SelectedItemStyle.Render(line))
		case it.IsCompleted():
			b.WriteString(theme.DimmedStyle.Render(line))
		default:
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderSide(width int) string {
	ov := m.overview
	p := ov.Project
	fin := ov.Financials

	var info strings.Builder
	info.WriteString(theme.StatusStyle(p.Status).Render(ov.StatusLabel))
	info.WriteString("  " + p.Type.String() + "\n")
	if p.Deadline != nil {
		fmt.Fprintf(&info, "Deadline: %s\n", p.Deadline.Format(forms.DateLayout))
	}
	fmt.Fprintf(&info, "Open items: %d\nCompleted: %d", p.OpenItems, p.CompletedItems)
	if p.Owner != nil {
		fmt.Fprintf(&info, "\nOwner: %s", p.Owner)
	}

	var money strings.Builder
	fmt.Fprintf(&money, "Hour rate: %.2f\n", fin.HourRate)
	fmt.Fprintf(&money, "%s: %s\n", fin.HoursLabel, overview.HoursBadge(round2(fin.Hours)))
	fmt.Fprintf(&money, "%s: %.2f", fin.PriceLabel, fin.Price)
	if ov.ShowLoggedHours {
		fmt.Fprintf(&money, "\nLogged: %s  Billed: %s",
			overview.HoursBadge(p.TotalWorked), overview.HoursBadge(p.TotalBilled))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		ui.Panel("Project", info.String(), width),
		ui.Panel("Financials", money.String(), width),
	)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form.SetSize(width, height)
}

func errorText(err error) string {
	var ve *tracker.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return fmt.Sprintf("Error: %v", err)
}

func (m Model) load() tea.Cmd {
	svc, user, id, all := m.svc, m.user, m.projectID, m.includeCompleted
	return func() tea.Msg {
		ov, err := overview.BuildProjectOverview(context.Background(),
			svc.Store(), user, id, svc.DefaultHourlyRate(), all)
		return overviewLoadedMsg{overview: ov, err: err}
	}
}

func (m Model) saveItem(it model.Item, isNew bool) tea.Cmd {
	svc, user := m.svc, m.user
	return func() tea.Msg {
		ctx := context.Background()
		if isNew {
			if err := svc.CreateItem(ctx, user, &it); err != nil {
				return savedMsg{err: err}
			}
			return savedMsg{status: "Created " + it.Code}
		}
		return savedMsg{status: "Saved " + it.Code, err: svc.UpdateItem(ctx, user, &it)}
	}
}

func (m Model) saveProject(p model.Project) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return savedMsg{status: "Project saved", err: svc.UpdateProject(context.Background(), &p)}
	}
}

func (m Model) toggleCompleted(it model.Item) tea.Cmd {
	svc, user, today := m.svc, m.user, m.now()
	return func() tea.Msg {
		ctx := context.Background()
		if it.IsCompleted() {
			_, err := svc.ReopenItem(ctx, user, it.ID)
			return savedMsg{status: "Reopened " + it.Code, err: err}
		}
		_, err := svc.CompleteItem(ctx, user, it.ID, today)
		return savedMsg{status: "Completed " + it.Code, err: err}
	}
}
