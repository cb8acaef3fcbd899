package tracker

import (
	"strings"
	"unicode/utf8"

	"github.com/nhle/project-tracker/internal/model"
)

// Field limits.
const (
	MaxNameLength        = 256
	MaxProjectCodeLength = 10
	MaxItemCodeLength    = 32
)

func validateProject(p *model.Project) error {
	var ve ValidationError

	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		ve.add("name", "is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		ve.add("name", "is too long")
	}

	code := strings.TrimSpace(p.Code)
	switch {
	case code == "":
		ve.add("code", "is required")
	case utf8.RuneCountInString(code) > MaxProjectCodeLength:
		ve.add("code", "must be at most 10 characters")
	case strings.ContainsAny(code, " \t-"):
		ve.add("code", "must not contain spaces or dashes")
	}

	if p.Status != 0 && !p.Status.Valid() {
		ve.add("status", "is not a valid choice")
	}
	if p.Type != 0 && !p.Type.Valid() {
		ve.add("project_type", "is not a valid choice")
	}
	if p.FixedPrice != nil && *p.FixedPrice < 0 {
		ve.add("fixed_price", "must not be negative")
	}
	if p.HourlyRate != nil && *p.HourlyRate < 0 {
		ve.add("hourly_rate", "must not be negative")
	}
	if p.Owner != nil && (p.Owner.Type == "" || p.Owner.ID == 0) {
		ve.add("owner", "needs both a type and an id")
	}

	return ve.err()
}

func validateItem(it *model.Item) error {
	var ve ValidationError

	if it.ProjectID == "" {
		ve.add("project", "is required")
	}

	name := strings.TrimSpace(it.Name)
	switch {
	case name == "":
		ve.add("name", "is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		ve.add("name", "is too long")
	}

	if utf8.RuneCountInString(it.Code) > MaxItemCodeLength {
		ve.add("code", "is too long")
	}
	if it.Type != 0 && !it.Type.Valid() {
		ve.add("item_type", "is not a valid choice")
	}
	if it.Priority != 0 && !it.Priority.Valid() {
		ve.add("priority", "is not a valid choice")
	}
	if it.Estimate != nil && *it.Estimate < 0 {
		ve.add("estimate", "must not be negative")
	}

	return ve.err()
}

func validateComment(c *model.Comment) error {
	var ve ValidationError
	if c.ItemID == "" {
		ve.add("item", "is required")
	}
	if !model.HasText(c.Body) {
		ve.add("body", "must contain text")
	}
	return ve.err()
}

func validateWorkLog(wl *model.WorkLog) error {
	var ve ValidationError
	if wl.ItemID == "" {
		ve.add("item", "is required")
	}
	if wl.Date.IsZero() {
		ve.add("date", "is required")
	}
	if wl.Worked < 0 {
		ve.add("worked", "must not be negative")
	}
	if wl.Billed != nil && *wl.Billed < 0 {
		ve.add("billed", "must not be negative")
	}
	return ve.err()
}
