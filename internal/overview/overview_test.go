package overview_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/overview"
	"github.com/nhle/project-tracker/internal/testutil"
)

func TestHoursBadge(t *testing.T) {
	assert.Equal(t, "0h", overview.HoursBadge(0))
	assert.Equal(t, "4h", overview.HoursBadge(4))
	assert.Equal(t, "2.5h", overview.HoursBadge(2.5))
}

func TestProjectOverview(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "OV", func(p *model.Project) {
		p.Type = model.ProjectTypeHourly
		p.Status = model.ProjectStatusActive
		p.HourlyRate = testutil.Hours(100)
	})
	a := testutil.SaveItem(t, s, p.ID, "urgent", func(it *model.Item) {
		it.Priority = model.PriorityHighest
		it.Estimate = testutil.Hours(3)
	})
	testutil.SaveItem(t, s, p.ID, "later", func(it *model.Item) { it.Priority = model.PriorityLowest })
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	testutil.SaveItem(t, s, p.ID, "done", func(it *model.Item) { it.CompletedOn = &now })
	require.NoError(t, s.SaveWorkLog(ctx, &model.WorkLog{ItemID: a.ID, Date: now, Worked: 2}))

	viewer := model.NewUser("viewer")
	ov, err := overview.BuildProjectOverview(ctx, s, viewer, p.ID, 75, false)
	require.NoError(t, err)

	assert.Equal(t, "info", ov.StatusClass)
	assert.False(t, ov.ShowLoggedHours)
	require.Len(t, ov.Backlog, 2)
	assert.Equal(t, "urgent", ov.Backlog[0].Item.Name)
	assert.Equal(t, "3h", ov.Backlog[0].Estimate)
	assert.Equal(t, "2h", ov.Backlog[0].Billed)
	assert.Equal(t, "↓", ov.Backlog[1].Priority.Glyph)

	assert.InDelta(t, 100.0, ov.Financials.HourRate, 1e-9)
	assert.InDelta(t, 3.0, ov.Financials.Hours, 1e-9)
	assert.InDelta(t, 200.0, ov.Financials.Price, 1e-9)

	all, err := overview.BuildProjectOverview(ctx, s, viewer, p.ID, 75, true)
	require.NoError(t, err)
	assert.Len(t, all.Backlog, 3)
}

func TestItemDetailPermissions(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "DET")
	it := testutil.SaveItem(t, s, p.ID, "detail")
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveWorkLog(ctx, &model.WorkLog{ItemID: it.ID, Date: day, Worked: 1, CreatedBy: "alice"}))
	require.NoError(t, s.SaveWorkLog(ctx, &model.WorkLog{ItemID: it.ID, Date: day, Worked: 2, CreatedBy: "bob"}))
	require.NoError(t, s.CreateComment(ctx, &model.Comment{ItemID: it.ID, Body: "hi", CreatedBy: "bob"}))

	blind := model.NewUser("carol")
	d, err := overview.BuildItemDetail(ctx, s, blind, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "DET-1 - detail", d.Title)
	assert.Equal(t, "3h", d.LoggedBadge)
	assert.Equal(t, "0h", d.EstimateBadge)
	assert.Nil(t, d.Comments)
	assert.Nil(t, d.WorkLogs)

	alice := model.NewUser("alice", model.PermViewWorkLog, model.PermChangeWorkLog, model.PermViewComment, model.PermLimitedChangeItem)
	d, err = overview.BuildItemDetail(ctx, s, alice, it.ID)
	require.NoError(t, err)
	assert.True(t, d.LimitedEdit)
	assert.Len(t, d.Comments, 1)
	require.Len(t, d.WorkLogs, 2)
	for _, row := range d.WorkLogs {
		assert.Equal(t, row.Log.CreatedBy == "alice", row.CanEdit, row.Log.CreatedBy)
		assert.False(t, row.CanDelete)
	}

	root := model.NewUser("root", model.PermSuperuser)
	d, err = overview.BuildItemDetail(ctx, s, root, it.ID)
	require.NoError(t, err)
	for _, row := range d.WorkLogs {
		assert.True(t, row.CanEdit)
		assert.True(t, row.CanDelete)
	}
}
