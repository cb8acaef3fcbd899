// Package overview assembles the read-only project overview and item
// detail views from stored records and their cached rollups.
package overview

import (
	"context"
	"strconv"

	"github.com/nhle/project-tracker/internal/billing"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/store"
	"github.com/nhle/project-tracker/internal/theme"
)

// Reader is the part of the store the views read from.
type Reader interface {
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	GetItemByID(ctx context.Context, id string) (*model.Item, error)
	GetItems(ctx context.Context, projectID string, filter store.ItemFilter) ([]model.Item, error)
	GetComments(ctx context.Context, itemID string) ([]model.Comment, error)
	GetWorkLogs(ctx context.Context, itemID string) ([]model.WorkLog, error)
}

// HoursBadge formats hours as a badge, e.g. "4h", "2.5h" or "0h".
func HoursBadge(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

// BacklogRow is one item of the project backlog.
type BacklogRow struct {
	Item     model.Item
	Type     theme.TypeIconSpec
	Priority theme.PriorityIconSpec
	Estimate string
	Worked   string
	Billed   string
}

// ProjectOverview is the project page: backlog and financials.
type ProjectOverview struct {
	Project     model.Project
	StatusLabel string
	StatusClass string
	Backlog     []BacklogRow
	Financials  billing.Financials

	// ShowLoggedHours is set when the user may see work log totals.
	ShowLoggedHours bool
	CanAddItem      bool
}

// BuildProjectOverview loads a project with its backlog, most urgent first.
// Only open items are listed unless includeCompleted is set.
func BuildProjectOverview(
	ctx context.Context,
	r Reader,
	user model.User,
	projectID string,
	defaultRate float64,
	includeCompleted bool,
) (*ProjectOverview, error) {
	p, err := r.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	filter := store.ItemFilter{}
	if !includeCompleted {
		open := store.ItemStatusOpen
		filter.Status = &open
	}
	items, err := r.GetItems(ctx, projectID, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]BacklogRow, len(items))
	for i, it := range items {
		typ, _ := theme.TypeIcon(it.Type)
		prio, _ := theme.PriorityIcon(it.Priority)
		rows[i] = BacklogRow{
			Item:     it,
			Type:     typ,
			Priority: prio,
			Estimate: HoursBadge(it.EstimateHours()),
			Worked:   HoursBadge(it.TotalWorked),
			Billed:   HoursBadge(it.TotalBilled),
		}
	}

	return &ProjectOverview{
		Project:         *p,
		StatusLabel:     p.Status.String(),
		StatusClass:     theme.StatusLabelClass(p.Status),
		Backlog:         rows,
		Financials:      billing.ProjectFinancials(*p, defaultRate),
		ShowLoggedHours: user.Has(model.PermViewWorkLog),
		CanAddItem:      user.Has(model.PermAddItem),
	}, nil
}

// WorkLogRow is a work log with the actions the user may take on it.
type WorkLogRow struct {
	Log       model.WorkLog
	Worked    string
	Billed    string
	CanEdit   bool
	CanDelete bool
}

// ItemDetail is the item page: info, comments and work logs.
type ItemDetail struct {
	Item     model.Item
	Title    string
	Type     theme.TypeIconSpec
	Priority theme.PriorityIconSpec

	EstimateBadge string
	LoggedBadge   string
	BilledBadge   string

	ShowComments bool
	Comments     []model.Comment

	ShowWorkLogs bool
	WorkLogs     []WorkLogRow

	CanEdit       bool
	LimitedEdit   bool
	CanAddComment bool
	CanAddWorkLog bool
}

// BuildItemDetail loads an item with the comments and work logs the user
// is allowed to see.
func BuildItemDetail(ctx context.Context, r Reader, user model.User, itemID string) (*ItemDetail, error) {
	it, err := r.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	typ, _ := theme.TypeIcon(it.Type)
	prio, _ := theme.PriorityIcon(it.Priority)
	d := &ItemDetail{
		Item:          *it,
		Title:         it.Title(),
		Type:          typ,
		Priority:      prio,
		EstimateBadge: HoursBadge(it.EstimateHours()),
		LoggedBadge:   HoursBadge(it.TotalWorked),
		BilledBadge:   HoursBadge(it.TotalBilled),
		ShowComments:  user.Has(model.PermViewComment),
		ShowWorkLogs:  user.Has(model.PermViewWorkLog),
		CanEdit:       user.Has(model.PermChangeItem) || user.Has(model.PermLimitedChangeItem),
		LimitedEdit:   user.LimitedItemEditor(),
		CanAddComment: user.Has(model.PermAddComment),
		CanAddWorkLog: user.Has(model.PermAddWorkLog),
	}

	if d.ShowComments {
		if d.Comments, err = r.GetComments(ctx, itemID); err != nil {
			return nil, err
		}
	}

	if d.ShowWorkLogs {
		logs, err := r.GetWorkLogs(ctx, itemID)
		if err != nil {
			return nil, err
		}
		d.WorkLogs = make([]WorkLogRow, len(logs))
		for i, wl := range logs {
			d.WorkLogs[i] = WorkLogRow{
				Log:       wl,
				Worked:    HoursBadge(wl.Worked),
				Billed:    HoursBadge(wl.BilledHours()),
				CanEdit:   user.CanModify(model.PermChangeWorkLog, wl.CreatedBy),
				CanDelete: user.CanModify(model.PermDeleteWorkLog, wl.CreatedBy),
			}
		}
	}

	return d, nil
}
