package model

import (
	"fmt"
	"time"
)

// ItemType classifies a backlog item.
type ItemType int

const (
	ItemTypeFeature     ItemType = 10
	ItemTypeEnhancement ItemType = 20
	ItemTypeTask        ItemType = 30
	ItemTypeBug         ItemType = 40
	ItemTypeQuestion    ItemType = 50
)

// ItemTypes lists every valid item type in display order.
var ItemTypes = []ItemType{
	ItemTypeFeature,
	ItemTypeEnhancement,
	ItemTypeTask,
	ItemTypeBug,
	ItemTypeQuestion,
}

func (t ItemType) String() string {
	switch t {
	case ItemTypeFeature:
		return "Feature"
	case ItemTypeEnhancement:
		return "Enhancement"
	case ItemTypeTask:
		return "Task"
	case ItemTypeBug:
		return "Bug"
	case ItemTypeQuestion:
		return "Question"
	default:
		return fmt.Sprintf("ItemType(%d)", int(t))
	}
}

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	for _, v := range ItemTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Priority is an ordinal urgency level. Higher values are more urgent.
type Priority int

const (
	PriorityHighest Priority = 50
	PriorityHigh    Priority = 40
	PriorityMedium  Priority = 30
	PriorityLow     Priority = 20
	PriorityLowest  Priority = 10
)

// Priorities lists every valid priority, most urgent first.
var Priorities = []Priority{
	PriorityHighest,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
	PriorityLowest,
}

func (p Priority) String() string {
	switch p {
	case PriorityHighest:
		return "Highest"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	case PriorityLowest:
		return "Lowest"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// Item is a backlog entry of a project.
type Item struct {
	ID          string     `json:"id" db:"id" yaml:"id"`
	ProjectID   string     `json:"project_id" db:"project_id" yaml:"project_id"`
	Type        ItemType   `json:"item_type" db:"item_type" yaml:"item_type"`
	Priority    Priority   `json:"priority" db:"priority" yaml:"priority"`
	Code        string     `json:"code" db:"code" yaml:"code"`
	Name        string     `json:"name" db:"name" yaml:"name"`
	Description string     `json:"description" db:"description" yaml:"description"`
	CompletedOn *time.Time `json:"completed_on,omitempty" db:"completed_on" yaml:"completed_on,omitempty"`
	Estimate    *float64   `json:"estimate,omitempty" db:"estimate" yaml:"estimate,omitempty"`
	NonBillable bool       `json:"non_billable" db:"non_billable" yaml:"non_billable"`

	// Rollups over the item's work logs.
	TotalWorked float64 `json:"total_worked" db:"total_worked" yaml:"total_worked"`
	TotalBilled float64 `json:"total_billed" db:"total_billed" yaml:"total_billed"`

	CreatedBy string    `json:"created_by" db:"created_by" yaml:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" yaml:"updated_at"`
}

// IsCompleted reports whether the item has a completion date.
func (i Item) IsCompleted() bool { return i.CompletedOn != nil }

// EstimateHours returns the estimate, treating an unset estimate as zero.
func (i Item) EstimateHours() float64 {
	if i.Estimate == nil {
		return 0
	}
	return *i.Estimate
}

// Title is the "{code} - {name}" heading shown on the item detail.
func (i Item) Title() string {
	return i.Code + " - " + i.Name
}
