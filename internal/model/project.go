package model

import (
	"fmt"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus int

// Project status constants. The numeric values are persisted.
const (
	ProjectStatusDraft     ProjectStatus = 10
	ProjectStatusActive    ProjectStatus = 20
	ProjectStatusOnHold    ProjectStatus = 30
	ProjectStatusCompleted ProjectStatus = 40
	ProjectStatusCanceled  ProjectStatus = 99
)

// ProjectStatuses lists every valid status in display order.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusDraft,
	ProjectStatusActive,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCanceled,
}

// String returns the display name of the status.
func (s ProjectStatus) String() string {
	switch s {
	case ProjectStatusDraft:
		return "Draft"
	case ProjectStatusActive:
		return "Active"
	case ProjectStatusOnHold:
		return "On hold"
	case ProjectStatusCompleted:
		return "Completed"
	case ProjectStatusCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Valid reports whether s is one of the known statuses.
func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ProjectType selects how a project is billed.
type ProjectType int

const (
	ProjectTypeFixed  ProjectType = 10
	ProjectTypeHourly ProjectType = 20
)

// ProjectTypes lists every valid billing type.
var ProjectTypes = []ProjectType{ProjectTypeFixed, ProjectTypeHourly}

func (t ProjectType) String() string {
	switch t {
	case ProjectTypeFixed:
		return "Fixed"
	case ProjectTypeHourly:
		return "Hourly based"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Valid reports whether t is a known billing type.
func (t ProjectType) Valid() bool {
	return t == ProjectTypeFixed || t == ProjectTypeHourly
}

// ObjectRef is a tagged reference to an entity owned by another system,
// for example an account a project is done for.
type ObjectRef struct {
	Type string `json:"type" yaml:"type"`
	ID   int64  `json:"id" yaml:"id"`
}

func (r ObjectRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Project groups backlog items and carries the billing setup plus the
// rollups derived from its items and their work logs.
type Project struct {
	ID          string        `json:"id" db:"id" yaml:"id"`
	Owner       *ObjectRef    `json:"owner,omitempty" db:"-" yaml:"owner,omitempty"`
	Name        string        `json:"name" db:"name" yaml:"name"`
	Code        string        `json:"code" db:"code" yaml:"code"`
	Status      ProjectStatus `json:"status" db:"status" yaml:"status"`
	Type        ProjectType   `json:"project_type" db:"project_type" yaml:"project_type"`
	Description string        `json:"description" db:"description" yaml:"description"`
	Deadline    *time.Time    `json:"deadline,omitempty" db:"deadline" yaml:"deadline,omitempty"`
	StartedOn   *time.Time    `json:"started_on,omitempty" db:"started_on" yaml:"started_on,omitempty"`
	CompletedOn *time.Time    `json:"completed_on,omitempty" db:"completed_on" yaml:"completed_on,omitempty"`
	FixedPrice  *float64      `json:"fixed_price,omitempty" db:"fixed_price" yaml:"fixed_price,omitempty"`
	HourlyRate  *float64      `json:"hourly_rate,omitempty" db:"hourly_rate" yaml:"hourly_rate,omitempty"`

	// ItemIncrementID is the sequence counter used to mint item codes.
	// Only the item code allocator writes it.
	ItemIncrementID int `json:"item_increment_id" db:"item_increment_id" yaml:"item_increment_id"`

	// Rollups. Derived from items and work logs, never edited directly.
	OpenItems          int     `json:"open_items" db:"open_items" yaml:"open_items"`
	CompletedItems     int     `json:"completed_items" db:"completed_items" yaml:"completed_items"`
	TotalItemsEstimate float64 `json:"total_items_estimate" db:"total_items_estimate" yaml:"total_items_estimate"`
	TotalWorked        float64 `json:"total_worked" db:"total_worked" yaml:"total_worked"`
	TotalBilled        float64 `json:"total_billed" db:"total_billed" yaml:"total_billed"`

	CreatedBy string    `json:"created_by" db:"created_by" yaml:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" yaml:"updated_at"`
}

// EffectiveHourlyRate returns the project's rate override, or defaultRate
// when the project has none.
func (p Project) EffectiveHourlyRate(defaultRate float64) float64 {
	if p.HourlyRate != nil && *p.HourlyRate != 0 {
		return *p.HourlyRate
	}
	return defaultRate
}

// Label is the "{code} - {name}" form used in lists and headers.
func (p Project) Label() string {
	return p.Code + " - " + p.Name
}
