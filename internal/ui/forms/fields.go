package forms

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/project-tracker/internal/model"
)

// DateLayout is the format of every date field.
const DateLayout = "2006-01-02"

// ParseDate parses an optional YYYY-MM-DD date. Blank yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return &t, nil
}

// ParseHours parses an optional non-negative number of hours. Blank
// yields nil.
func ParseHours(s string) (*float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "h"))
	if s == "" {
		return nil, nil
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("enter a number of hours")
	}
	if h < 0 {
		return nil, fmt.Errorf("hours must not be negative")
	}
	return &h, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func formatNumber(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	_, err := ParseDate(s)
	return err
}

func validateRequiredDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("date is required")
	}
	return validateOptionalDate(s)
}

func validateOptionalHours(s string) error {
	_, err := ParseHours(s)
	return err
}

func validateRequiredHours(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("hours are required")
	}
	return validateOptionalHours(s)
}

func validateCommentText(s string) error {
	if !model.HasText(s) {
		return fmt.Errorf("comment must contain text")
	}
	return nil
}

// projectFields holds project form values on the heap so that huh's
// Value() pointers remain valid across Bubble Tea model copies.
type projectFields struct {
	name        string
	code        string
	description string
	status      model.ProjectStatus
	projectType model.ProjectType
	deadline    string
	startedOn   string
	completedOn string
	fixedPrice  string
	hourlyRate  string
}

func projectFieldsFrom(p *model.Project) *projectFields {
	f := &projectFields{status: model.ProjectStatusDraft, projectType: model.ProjectTypeFixed}
	if p == nil {
		return f
	}
	f.name = p.Name
	f.code = p.Code
	f.description = p.Description
	if p.Status != 0 {
		f.status = p.Status
	}
	if p.Type != 0 {
		f.projectType = p.Type
	}
	f.deadline = formatDate(p.Deadline)
	f.startedOn = formatDate(p.StartedOn)
	f.completedOn = formatDate(p.CompletedOn)
	f.fixedPrice = formatNumber(p.FixedPrice)
	f.hourlyRate = formatNumber(p.HourlyRate)
	return f
}

// apply copies the form values onto p.
func (f *projectFields) apply(p *model.Project) error {
	var err error
	p.Name = strings.TrimSpace(f.name)
	p.Code = strings.ToUpper(strings.TrimSpace(f.code))
	p.Description = f.description
	p.Status = f.status
	p.Type = f.projectType
	if p.Deadline, err = ParseDate(f.deadline); err != nil {
		return fmt.Errorf("deadline: %w", err)
	}
	if p.StartedOn, err = ParseDate(f.startedOn); err != nil {
		return fmt.Errorf("started on: %w", err)
	}
	if p.CompletedOn, err = ParseDate(f.completedOn); err != nil {
		return fmt.Errorf("completed on: %w", err)
	}
	if p.FixedPrice, err = ParseHours(f.fixedPrice); err != nil {
		return fmt.Errorf("fixed price: %w", err)
	}
	if p.HourlyRate, err = ParseHours(f.hourlyRate); err != nil {
		return fmt.Errorf("hourly rate: %w", err)
	}
	return nil
}

type itemFields struct {
	name        string
	description string
	itemType    model.ItemType
	priority    model.Priority
	estimate    string
	nonBillable bool
	completedOn string
}

func itemFieldsFrom(it *model.Item) *itemFields {
	f := &itemFields{itemType: model.ItemTypeFeature, priority: model.PriorityMedium}
	if it == nil {
		return f
	}
	f.name = it.Name
	f.description = it.Description
	if it.Type != 0 {
		f.itemType = it.Type
	}
	if it.Priority != 0 {
		f.priority = it.Priority
	}
	f.estimate = formatNumber(it.Estimate)
	f.nonBillable = it.NonBillable
	f.completedOn = formatDate(it.CompletedOn)
	return f
}

// apply copies the form values onto it. The limited variant leaves the
// estimate and non-billable flag untouched.
func (f *itemFields) apply(it *model.Item, limited bool) error {
	var err error
	it.Name = strings.TrimSpace(f.name)
	it.Description = f.description
	it.Type = f.itemType
	it.Priority = f.priority
	if it.CompletedOn, err = ParseDate(f.completedOn); err != nil {
		return fmt.Errorf("completed on: %w", err)
	}
	if limited {
		return nil
	}
	if it.Estimate, err = ParseHours(f.estimate); err != nil {
		return fmt.Errorf("estimate: %w", err)
	}
	it.NonBillable = f.nonBillable
	return nil
}

type workLogFields struct {
	date        string
	worked      string
	billed      string
	description string
}

func workLogFieldsFrom(wl *model.WorkLog, today time.Time) *workLogFields {
	f := &workLogFields{date: today.Format(DateLayout)}
	if wl == nil {
		return f
	}
	f.date = wl.Date.Format(DateLayout)
	f.worked = strconv.FormatFloat(wl.Worked, 'f', -1, 64)
	f.billed = formatNumber(wl.Billed)
	f.description = wl.Description
	return f
}

// apply copies the form values onto wl. A blank billed field leaves the
// allocation to the store.
func (f *workLogFields) apply(wl *model.WorkLog) error {
	date, err := ParseDate(f.date)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if date == nil {
		return fmt.Errorf("date is required")
	}
	wl.Date = *date

	worked, err := ParseHours(f.worked)
	if err != nil {
		return fmt.Errorf("worked: %w", err)
	}
	if worked == nil {
		return fmt.Errorf("worked hours are required")
	}
	wl.Worked = *worked

	if wl.Billed, err = ParseHours(f.billed); err != nil {
		return fmt.Errorf("billed: %w", err)
	}
	wl.Description = strings.TrimSpace(f.description)
	return nil
}
