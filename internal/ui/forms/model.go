// Package forms holds the huh forms for projects, items, comments and
// work logs. Submitting a form emits a SubmitMsg carrying the edited
// record; persisting it is left to the caller.
package forms

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/overview"
	"github.com/nhle/project-tracker/internal/theme"
)

// SubmitMsg is dispatched when a form is completed. Exactly one record
// field is set. IsNew reports whether the record has not been stored yet.
type SubmitMsg struct {
	IsNew   bool
	Project *model.Project
	Item    *model.Item
	Comment *model.Comment
	WorkLog *model.WorkLog
}

// CancelMsg is dispatched when the user aborts a form.
type CancelMsg struct{}

// ErrorMsg is dispatched when submitted values cannot be converted.
type ErrorMsg struct{ Err error }

// Model wraps a huh form with a title and a submit function.
type Model struct {
	title  string
	form   *huh.Form
	submit func() (tea.Msg, error)
	width  int
	height int
}

// Update handles messages for the active form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		out, err := m.submit()
		if err != nil {
			return m, func() tea.Msg { return ErrorMsg{Err: err} }
		}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	if m.form == nil {
		return nil
	}
	return m.form.Init()
}

// View renders the form under its title.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render(m.title)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(title + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(formWidth(width)).WithHeight(formHeight(height))
	}
}

func formWidth(width int) int {
	return min(max(width-4, 40), 100)
}

func formHeight(height int) int {
	return max(height-4, 10)
}

func newModel(title string, width, height int, submit func() (tea.Msg, error), groups ...*huh.Group) Model {
	form := huh.NewForm(groups...).
		WithWidth(formWidth(width)).
		WithHeight(formHeight(height)).
		WithShowHelp(true)
	return Model{title: title, form: form, submit: submit, width: width, height: height}
}

// ConfirmMsg is dispatched when a confirmation dialog completes.
type ConfirmMsg struct{ Confirmed bool }

// NewConfirm builds a yes/no dialog.
func NewConfirm(title, description string, width, height int) Model {
	confirmed := false
	submit := func() (tea.Msg, error) {
		return ConfirmMsg{Confirmed: confirmed}, nil
	}
	return newModel(title, width, height, submit,
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
}

// NewProject builds the project form. A nil project starts a new one.
func NewProject(p *model.Project, width, height int) Model {
	isNew := p == nil
	base := model.Project{}
	if !isNew {
		base = *p
	}
	f := projectFieldsFrom(p)

	statusOpts := make([]huh.Option[model.ProjectStatus], len(model.ProjectStatuses))
	for i, s := range model.ProjectStatuses {
		statusOpts[i] = huh.NewOption(s.String(), s)
	}
	typeOpts := make([]huh.Option[model.ProjectType], len(model.ProjectTypes))
	for i, t := range model.ProjectTypes {
		typeOpts[i] = huh.NewOption(t.String(), t)
	}

	title := "New Project"
	if !isNew {
		title = "Edit " + p.Label()
	}

	submit := func() (tea.Msg, error) {
		out := base
		if err := f.apply(&out); err != nil {
			return nil, err
		}
		return SubmitMsg{IsNew: isNew, Project: &out}, nil
	}

	return newModel(title, width, height, submit,
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&f.name).Validate(validateRequired("Name")),
			huh.NewInput().Title("Code").Placeholder("ACME").CharLimit(10).
				Value(&f.code).Validate(validateRequired("Code")),
			huh.NewSelect[model.ProjectStatus]().Title("Status").Options(statusOpts...).Value(&f.status),
			huh.NewSelect[model.ProjectType]().Title("Type").Options(typeOpts...).Value(&f.projectType),
			huh.NewText().Title("Description").Value(&f.description),
		),
		huh.NewGroup(
			huh.NewInput().Title("Fixed price").Value(&f.fixedPrice).Validate(validateOptionalHours),
			huh.NewInput().Title("Hourly rate").Placeholder("default rate").
				Value(&f.hourlyRate).Validate(validateOptionalHours),
			huh.NewInput().Title("Deadline").Placeholder("YYYY-MM-DD (optional)").
				Value(&f.deadline).Validate(validateOptionalDate),
			huh.NewInput().Title("Started on").Placeholder("YYYY-MM-DD (optional)").
				Value(&f.startedOn).Validate(validateOptionalDate),
			huh.NewInput().Title("Completed on").Placeholder("YYYY-MM-DD (optional)").
				Value(&f.completedOn).Validate(validateOptionalDate),
		),
	)
}

// NewItem builds the item form. A nil item starts a new one in projectID.
// The limited variant shows the estimate and billing flag read-only.
func NewItem(it *model.Item, projectID string, limited bool, width, height int) Model {
	isNew := it == nil
	base := model.Item{ProjectID: projectID}
	if !isNew {
		base = *it
	}
	f := itemFieldsFrom(it)

	typeOpts := make([]huh.Option[model.ItemType], len(model.ItemTypes))
	for i, t := range model.ItemTypes {
		typeOpts[i] = huh.NewOption(t.String(), t)
	}
	prioOpts := make([]huh.Option[model.Priority], len(model.Priorities))
	for i, p := range model.Priorities {
		prioOpts[i] = huh.NewOption(p.String(), p)
	}

	fields := []huh.Field{
		huh.NewInput().Title("Name").Value(&f.name).Validate(validateRequired("Name")),
		huh.NewSelect[model.ItemType]().Title("Type").Options(typeOpts...).Value(&f.itemType),
		huh.NewSelect[model.Priority]().Title("Priority").Options(prioOpts...).Value(&f.priority),
		huh.NewText().Title("Description").Value(&f.description),
	}
	if limited {
		billing := "billable"
		if base.NonBillable {
			billing = "non-billable"
		}
		fields = append(fields, huh.NewNote().
			Title("Estimate").
			Description(fmt.Sprintf("%s, %s (read-only)", overview.HoursBadge(base.EstimateHours()), billing)))
	} else {
		fields = append(fields,
			huh.NewInput().Title("Estimate (hours)").Value(&f.estimate).Validate(validateOptionalHours),
			huh.NewConfirm().Title("Non billable").Value(&f.nonBillable),
		)
	}
	if !isNew {
		fields = append(fields, huh.NewInput().Title("Completed on").
			Placeholder("YYYY-MM-DD (blank = open)").
			Value(&f.completedOn).Validate(validateOptionalDate))
	}

	title := "New Item"
	if !isNew {
		title = "Edit " + it.Code
	}

	submit := func() (tea.Msg, error) {
		out := base
		if err := f.apply(&out, limited); err != nil {
			return nil, err
		}
		return SubmitMsg{IsNew: isNew, Item: &out}, nil
	}

	return newModel(title, width, height, submit, huh.NewGroup(fields...))
}

// NewComment builds the comment form. A nil comment starts a new one on
// itemID.
func NewComment(c *model.Comment, itemID string, width, height int) Model {
	isNew := c == nil
	base := model.Comment{ItemID: itemID}
	if !isNew {
		base = *c
	}
	body := base.Body

	title := "New Comment"
	if !isNew {
		title = "Edit Comment"
	}

	submit := func() (tea.Msg, error) {
		out := base
		out.Body = body
		return SubmitMsg{IsNew: isNew, Comment: &out}, nil
	}

	return newModel(title, width, height, submit,
		huh.NewGroup(
			huh.NewText().Title("Comment").Value(&body).Validate(validateCommentText),
		),
	)
}

// NewWorkLog builds the work log form. A nil log starts a new one on
// itemID dated today. Leaving billed blank lets it be allocated.
func NewWorkLog(wl *model.WorkLog, itemID string, today time.Time, width, height int) Model {
	isNew := wl == nil
	base := model.WorkLog{ItemID: itemID}
	if !isNew {
		base = *wl
	}
	f := workLogFieldsFrom(wl, today)

	title := "Log Work"
	if !isNew {
		title = "Edit Work Log"
	}

	submit := func() (tea.Msg, error) {
		out := base
		if err := f.apply(&out); err != nil {
			return nil, err
		}
		return SubmitMsg{IsNew: isNew, WorkLog: &out}, nil
	}

	return newModel(title, width, height, submit,
		huh.NewGroup(
			huh.NewInput().Title("Date").Placeholder("YYYY-MM-DD").
				Value(&f.date).Validate(validateRequiredDate),
			huh.NewInput().Title("Worked (hours)").Value(&f.worked).Validate(validateRequiredHours),
			huh.NewInput().Title("Billed (hours)").Placeholder("blank = allocate from estimate").
				Value(&f.billed).Validate(validateOptionalHours),
			huh.NewText().Title("Description").Placeholder("blank = default description").
				Value(&f.description),
		),
	)
}
