// Package itemdetail shows a backlog item with its comments and work logs
// and hosts the forms that change them.
package itemdetail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/project-tracker/internal/keys"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/overview"
	"github.com/nhle/project-tracker/internal/theme"
	"github.com/nhle/project-tracker/internal/tracker"
	"github.com/nhle/project-tracker/internal/ui/forms"
)

// BackMsg signals the parent to navigate back to the project overview.
type BackMsg struct{ ProjectID string }

type panel int

const (
	panelComments panel = iota
	panelWorkLogs
)

type mode int

const (
	modeView mode = iota
	modeForm
	modeConfirmDelete
)

type detailLoadedMsg struct {
	detail *overview.ItemDetail
	err    error
}

type savedMsg struct {
	status string
	err    error
}

// Model is the item detail view component.
type Model struct {
	mode     mode
	svc      *tracker.Service
	user     model.User
	keys     *keys.KeyMap
	itemID   string
	detail   *overview.ItemDetail
	panel    panel
	selected int
	form     forms.Model
	viewport viewport.Model
	status   string
	now      func() time.Time
	width    int
	height   int
}

// New creates the detail view of itemID.
func New(svc *tracker.Service, user model.User, k *keys.KeyMap, itemID string, width, height int) Model {
	vp := viewport.New(width, max(height-2, 1))
	vp.Style = lipgloss.NewStyle()

	m := Model{
		svc:      svc,
		user:     user,
		keys:     k,
		itemID:   itemID,
		viewport: vp,
		now:      time.Now,
		width:    width,
		height:   height,
	}
	if !user.Has(model.PermViewComment) {
		m.panel = panelWorkLogs
	}
	return m
}

// Init loads the item.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Reload refreshes the item, e.g. after a reconciliation.
func (m Model) Reload() tea.Cmd {
	return m.load()
}

// Title returns a header title for the item.
func (m Model) Title() string {
	if m.detail == nil {
		return "Item"
	}
	return m.detail.Title
}

// Capturing reports whether a form is open.
func (m Model) Capturing() bool {
	return m.mode != modeView
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case detailLoadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.detail = msg.detail
		m.clampSelection()
		m.refresh()
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.status = errorText(msg.err)
		} else {
			m.status = msg.status
		}
		m.mode = modeView
		return m, m.load()

	case forms.SubmitMsg:
		switch {
		case msg.Item != nil:
			return m, m.saveItem(*msg.Item)
		case msg.Comment != nil:
			return m, m.saveComment(*msg.Comment, msg.IsNew)
		case msg.WorkLog != nil:
			return m, m.saveWorkLog(*msg.WorkLog, msg.IsNew)
		}
		return m, nil

	case forms.ConfirmMsg:
		if !msg.Confirmed {
			m.mode = modeView
			return m, nil
		}
		return m, m.deleteSelected()

	case forms.ErrorMsg:
		m.status = fmt.Sprintf("Error: %v", msg.Err)
		m.mode = modeView
		return m, nil

	case forms.CancelMsg:
		m.mode = modeView
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeView {
			return m.handleKey(msg)
		}
	}

	if m.mode != modeView {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.detail == nil {
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return BackMsg{} }
		}
		return m, nil
	}
	d := m.detail

	switch {
	case key.Matches(msg, m.keys.Back):
		projectID := d.Item.ProjectID
		return m, func() tea.Msg { return BackMsg{ProjectID: projectID} }

	case key.Matches(msg, m.keys.Down):
		if n := m.rowCount(); n > 0 {
			m.selected = (m.selected + 1) % n
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if n := m.rowCount(); n > 0 {
			m.selected = (m.selected - 1 + n) % n
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if d.ShowComments && d.ShowWorkLogs {
			if m.panel == panelComments {
				m.panel = panelWorkLogs
			} else {
				m.panel = panelComments
			}
			m.selected = 0
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		if !d.CanEdit {
			m.status = "You may not change this item"
			return m, nil
		}
		it := d.Item
		return m.openForm(forms.NewItem(&it, it.ProjectID, d.LimitedEdit, m.width, m.height))

	case key.Matches(msg, m.keys.Comment):
		if !d.CanAddComment {
			m.status = "You may not add comments"
			return m, nil
		}
		return m.openForm(forms.NewComment(nil, d.Item.ID, m.width, m.height))

	case key.Matches(msg, m.keys.LogWork):
		if !d.CanAddWorkLog {
			m.status = "You may not log work"
			return m, nil
		}
		return m.openForm(forms.NewWorkLog(nil, d.Item.ID, m.now(), m.width, m.height))

	case key.Matches(msg, m.keys.Complete):
		if !d.CanEdit {
			m.status = "You may not change this item"
			return m, nil
		}
		return m, m.toggleCompleted(d.Item)

	case key.Matches(msg, m.keys.Select):
		return m.editSelected()

	case key.Matches(msg, m.keys.Delete):
		return m.confirmDeleteSelected()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) openForm(f forms.Model) (Model, tea.Cmd) {
	m.status = ""
	m.form = f
	m.mode = modeForm
	return m, m.form.Init()
}

func (m Model) rowCount() int {
	if m.detail == nil {
		return 0
	}
	if m.panel == panelComments {
		return len(m.detail.Comments)
	}
	return len(m.detail.WorkLogs)
}

func (m *Model) clampSelection() {
	if n := m.rowCount(); m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

func (m Model) selectedComment() *model.Comment {
	if m.panel != panelComments || m.selected >= len(m.detail.Comments) {
		return nil
	}
	c := m.detail.Comments[m.selected]
	return &c
}

func (m Model) selectedWorkLog() *overview.WorkLogRow {
	if m.panel != panelWorkLogs || m.selected >= len(m.detail.WorkLogs) {
		return nil
	}
	row := m.detail.WorkLogs[m.selected]
	return &row
}

func (m Model) editSelected() (Model, tea.Cmd) {
	if c := m.selectedComment(); c != nil {
		if !m.user.CanModify(model.PermAddComment, c.CreatedBy) {
			m.status = "Only the author may edit this comment"
			return m, nil
		}
		return m.openForm(forms.NewComment(c, c.ItemID, m.width, m.height))
	}
	if row := m.selectedWorkLog(); row != nil {
		if !row.CanEdit {
			m.status = "Only the author may edit this work log"
			return m, nil
		}
		wl := row.Log
		return m.openForm(forms.NewWorkLog(&wl, wl.ItemID, m.now(), m.width, m.height))
	}
	return m, nil
}

func (m Model) confirmDeleteSelected() (Model, tea.Cmd) {
	var title string
	if c := m.selectedComment(); c != nil {
		if !m.user.CanModify(model.PermAddComment, c.CreatedBy) {
			m.status = "Only the author may delete this comment"
			return m, nil
		}
		title = "Delete comment?"
	} else if row := m.selectedWorkLog(); row != nil {
		if !row.CanDelete {
			m.status = "Only the author may delete this work log"
			return m, nil
		}
		title = fmt.Sprintf("Delete %s logged on %s?", row.Worked, row.Log.Date.Format(forms.DateLayout))
	} else {
		return m, nil
	}

	m.form = forms.NewConfirm(title, "This cannot be undone.", m.width, m.height)
	m.mode = modeConfirmDelete
	return m, m.form.Init()
}

// View renders the detail view.
func (m Model) View() string {
	if m.mode != modeView {
		return m.form.View()
	}
	if m.detail == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Loading item...")
	}

	out := m.viewport.View()
	if m.status != "" {
		out += "\n" + lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.status)
	}
	return out
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	d := m.detail
	it := d.Item
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(d.Title))

	typeBadge := theme.TypeStyle(it.Type).Render(d.Type.Glyph + " " + it.Type.String())
	prioBadge := theme.PriorityStyle(it.Priority).Render(d.Priority.Glyph + " " + it.Priority.String())
	badges := []string{typeBadge, "  ", prioBadge, "  ", theme.BadgeStyle.Render("est " + d.EstimateBadge)}
	if d.ShowWorkLogs {
		badges = append(badges, " ",
			theme.BadgeStyle.Render("logged "+d.LoggedBadge), " ",
			theme.BadgeStyle.Render("billed "+d.BilledBadge))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, badges...), "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%s %s", metaStyle.Render(fmt.Sprintf("%-10s", label+":")), valStyle.Render(value)))
	}
	if it.CreatedBy != "" {
		meta("Author", it.CreatedBy)
	}
	if !it.CreatedAt.IsZero() {
		meta("Created", it.CreatedAt.Format("2006-01-02 15:04"))
	}
	if it.CompletedOn != nil {
		meta("Completed", it.CompletedOn.Format(forms.DateLayout))
	}
	if it.NonBillable {
		meta("Billing", "non-billable")
	}

	separator := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	body := model.StripTags(it.Description)
	if strings.TrimSpace(body) == "" {
		body = theme.DimmedStyle.Italic(true).Render("No description")
	}
	sections = append(sections, body)

	if d.ShowComments {
		sections = append(sections, "", separator, "", m.sectionHeader(panelComments, fmt.Sprintf("Comments (%d)", len(d.Comments))))
		authorStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
		for i, c := range d.Comments {
			header := fmt.Sprintf("%s  %s", authorStyle.Render(c.CreatedBy), metaStyle.Render(c.CreatedAt.Format("2006-01-02 15:04")))
			text := model.StripTags(c.Body)
			if m.panel == panelComments && i == m.selected {
				text = theme.SelectedItemStyle.Render(text)
			}
			sections = append(sections, header, text, "")
		}
	}

	if d.ShowWorkLogs {
		sections = append(sections, "", separator, "", m.sectionHeader(panelWorkLogs, fmt.Sprintf("Work logs (%d)", len(d.WorkLogs))))
		for i, row := range d.WorkLogs {
			line := fmt.Sprintf("%s  %-6s %-6s %-10s %s",
				row.Log.Date.Format(forms.DateLayout), row.Worked, row.Billed, row.Log.CreatedBy, row.Log.Label())
			if m.panel == panelWorkLogs && i == m.selected {
				line = theme.SelectedItemStyle.Render(line)
			} else {
				line = theme.ListItemStyle.Render(line)
			}
			sections = append(sections, line)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) sectionHeader(p panel, title string) string {
	style := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	if m.panel == p {
		style = style.Foreground(theme.ColorBlue).Underline(true)
	}
	return style.Render(title)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-2, 1)
	m.form.SetSize(width, height)
	if m.detail != nil {
		m.refresh()
	}
}

func errorText(err error) string {
	var ve *tracker.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return fmt.Sprintf("Error: %v", err)
}

func (m Model) load() tea.Cmd {
	svc, user, id := m.svc, m.user, m.itemID
	return func() tea.Msg {
		d, err := overview.BuildItemDetail(context.Background(), svc.Store(), user, id)
		return detailLoadedMsg{detail: d, err: err}
	}
}

func (m Model) saveItem(it model.Item) tea.Cmd {
	svc, user := m.svc, m.user
	return func() tea.Msg {
		return savedMsg{status: "Item saved", err: svc.UpdateItem(context.Background(), user, &it)}
	}
}

func (m Model) toggleCompleted(it model.Item) tea.Cmd {
	svc, user, today := m.svc, m.user, m.now()
	return func() tea.Msg {
		ctx := context.Background()
		if it.IsCompleted() {
			_, err := svc.ReopenItem(ctx, user, it.ID)
			return savedMsg{status: "Reopened", err: err}
		}
		_, err := svc.CompleteItem(ctx, user, it.ID, today)
		return savedMsg{status: "Completed", err: err}
	}
}

func (m Model) saveComment(c model.Comment, isNew bool) tea.Cmd {
	svc, user := m.svc, m.user
	return func() tea.Msg {
		ctx := context.Background()
		if isNew {
			return savedMsg{status: "Comment added", err: svc.AddComment(ctx, user, &c)}
		}
		return savedMsg{status: "Comment saved", err: svc.UpdateComment(ctx, user, &c)}
	}
}

func (m Model) saveWorkLog(wl model.WorkLog, isNew bool) tea.Cmd {
	svc, user := m.svc, m.user
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		if isNew {
			err = svc.LogWork(ctx, user, &wl)
		} else {
			err = svc.UpdateWorkLog(ctx, user, &wl)
		}
		if err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{status: fmt.Sprintf("Logged %s, billed %s",
			overview.HoursBadge(wl.Worked), overview.HoursBadge(wl.BilledHours()))}
	}
}

func (m Model) deleteSelected() tea.Cmd {
	svc, user := m.svc, m.user
	if c := m.selectedComment(); c != nil {
		id := c.ID
		return func() tea.Msg {
			return savedMsg{status: "Comment deleted", err: svc.DeleteComment(context.Background(), user, id)}
		}
	}
	if row := m.selectedWorkLog(); row != nil {
		id := row.Log.ID
		return func() tea.Msg {
			return savedMsg{status: "Work log deleted", err: svc.DeleteWorkLog(context.Background(), user, id)}
		}
	}
	return func() tea.Msg { return savedMsg{} }
}
