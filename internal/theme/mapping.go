package theme

import "github.com/nhle/project-tracker/internal/model"

// TypeIconSpec describes how an item type is drawn: the icon and badge
// classes used by web renderers and a glyph for the terminal.
type TypeIconSpec struct {
	Icon  string
	Badge string
	Glyph string
}

var typeIcons = map[model.ItemType]TypeIconSpec{
	model.ItemTypeFeature:     {Icon: "fa fa-star", Badge: "badge-feature", Glyph: "★"},
	model.ItemTypeEnhancement: {Icon: "fa fa-bolt", Badge: "badge-enhancement", Glyph: "ϟ"},
	model.ItemTypeTask:        {Icon: "fa fa-check", Badge: "badge-task", Glyph: "✓"},
	model.ItemTypeBug:         {Icon: "fa fa-bug", Badge: "badge-bug", Glyph: "✗"},
	model.ItemTypeQuestion:    {Icon: "fa fa-question-circle", Badge: "badge-question", Glyph: "?"},
}

// TypeIcon returns the icon of an item type. Unknown types report false.
func TypeIcon(t model.ItemType) (TypeIconSpec, bool) {
	spec, ok := typeIcons[t]
	return spec, ok
}

// PriorityIconSpec describes how a priority is drawn.
type PriorityIconSpec struct {
	Class string
	Icon  string
	Glyph string
}

var priorityClasses = map[model.Priority]string{
	model.PriorityHighest: "priority-icon-highest",
	model.PriorityHigh:    "priority-icon-high",
	model.PriorityMedium:  "priority-icon-medium",
	model.PriorityLow:     "priority-icon-low",
	model.PriorityLowest:  "priority-icon-lowest",
}

// PriorityIcon returns the icon of a priority: an up arrow above Low and
// a down arrow for Low and Lowest. Unknown priorities report false.
func PriorityIcon(p model.Priority) (PriorityIconSpec, bool) {
	class, ok := priorityClasses[p]
	if !ok {
		return PriorityIconSpec{}, false
	}
	if p <= model.PriorityLow {
		return PriorityIconSpec{Class: class, Icon: "fa fa-long-arrow-down", Glyph: "↓"}, true
	}
	return PriorityIconSpec{Class: class, Icon: "fa fa-long-arrow-up", Glyph: "↑"}, true
}

// Status label classes.
const (
	LabelDefault = "default"
	LabelInfo    = "info"
	LabelSuccess = "success"
	LabelDanger  = "danger"
)

var statusLabels = map[model.ProjectStatus]string{
	model.ProjectStatusDraft:     LabelDefault,
	model.ProjectStatusActive:    LabelInfo,
	model.ProjectStatusOnHold:    LabelDefault,
	model.ProjectStatusCompleted: LabelSuccess,
	model.ProjectStatusCanceled:  LabelDanger,
}

// StatusLabelClass returns the label class of a project status, falling
// back to the default class.
func StatusLabelClass(s model.ProjectStatus) string {
	if class, ok := statusLabels[s]; ok {
		return class
	}
	return LabelDefault
}
