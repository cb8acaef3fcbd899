package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/project-tracker/internal/itemcode"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/store"
	"github.com/nhle/project-tracker/internal/testutil"
)

var day = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func logWork(t *testing.T, s store.Store, itemID string, worked float64, billed *float64) *model.WorkLog {
	t.Helper()
	wl := &model.WorkLog{ItemID: itemID, Date: day, Worked: worked, Billed: billed, CreatedBy: "tester"}
	require.NoError(t, s.SaveWorkLog(context.Background(), wl))
	return wl
}

func TestCreateProjectUppercasesAndRejectsDuplicates(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, s, "acme")
	assert.Equal(t, "ACME", p.Code)
	assert.Equal(t, model.ProjectStatusDraft, p.Status)
	assert.Equal(t, model.ProjectTypeFixed, p.Type)

	got, err := s.GetProjectByCode(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	err = s.CreateProject(ctx, &model.Project{Name: "Other", Code: "ACME"})
	assert.ErrorIs(t, err, store.ErrDuplicateCode)
}

func TestProjectOwnerRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)

	p := testutil.CreateProject(t, s, "OWN", func(p *model.Project) {
		p.Owner = &model.ObjectRef{Type: "client", ID: 42}
	})
	got, err := s.GetProjectByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Owner)
	assert.Equal(t, model.ObjectRef{Type: "client", ID: 42}, *got.Owner)

	bare := testutil.CreateProject(t, s, "BARE")
	got, err = s.GetProjectByID(context.Background(), bare.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Owner)
}

func TestGetProjectsFilters(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.CreateProject(t, s, "AAA")
	testutil.CreateProject(t, s, "BBB", func(p *model.Project) { p.Status = model.ProjectStatusActive })
	testutil.CreateProject(t, s, "CCC", func(p *model.Project) { p.Status = model.ProjectStatusActive })

	active, err := s.GetProjects(context.Background(), store.ProjectFilter{
		Statuses: []model.ProjectStatus{model.ProjectStatusActive},
		SortDesc: true,
	})
	require.NoError(t, err)
	var codes []string
	for _, p := range active {
		codes = append(codes, p.Code)
	}
	assert.Equal(t, []string{"CCC", "BBB"}, codes)

	q := "aa"
	found, err := s.GetProjects(context.Background(), store.ProjectFilter{Query: &q})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "AAA", found[0].Code)
}

func TestGetMissingRecords(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.GetProjectByID(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetItemByCode(ctx, "NOPE-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteComment(ctx, "nope"), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteWorkLog(ctx, "nope"), store.ErrNotFound)
}

func TestSaveItemAssignsSequentialCodes(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "ACME")

	first := testutil.SaveItem(t, s, p.ID, "first")
	second := testutil.SaveItem(t, s, p.ID, "second")
	assert.Equal(t, "ACME-1", first.Code)
	assert.Equal(t, "ACME-2", second.Code)

	// Saving again never reassigns the code.
	first.Name = "first renamed"
	first.Code = ""
	require.NoError(t, s.SaveItem(ctx, first))
	assert.Equal(t, "ACME-1", first.Code)

	got, err := s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ItemIncrementID)

	// A preset code is kept and does not consume a number.
	preset := testutil.SaveItem(t, s, p.ID, "preset", func(it *model.Item) { it.Code = "ACME-X" })
	assert.Equal(t, "ACME-X", preset.Code)
	third := testutil.SaveItem(t, s, p.ID, "third")
	assert.Equal(t, "ACME-3", third.Code)
}

func TestSaveItemConcurrentCodesAreConsecutive(t *testing.T) {
	s := testutil.NewTestStore(t)
	p := testutil.CreateProject(t, s, "CONC")

	const n = 25
	codes := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			it := &model.Item{ProjectID: p.ID, Name: fmt.Sprintf("item %d", i)}
			if err := s.SaveItem(context.Background(), it); err != nil {
				return err
			}
			codes[i] = it.Code
			return nil
		})
	}
	require.NoError(t, g.Wait())

	nums := make([]int, n)
	for i, c := range codes {
		projectCode, num, err := itemcode.Parse(c)
		require.NoError(t, err)
		assert.Equal(t, "CONC", projectCode)
		nums[i] = num
	}
	sort.Ints(nums)
	for i, num := range nums {
		assert.Equal(t, i+1, num)
	}
}

func TestSaveItemAcrossStoresSharingAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	stores := []*store.SQLiteStore{
		testutil.NewFileStore(t, path),
		testutil.NewFileStore(t, path),
		testutil.NewFileStore(t, path),
	}
	p := testutil.CreateProject(t, stores[0], "FILE")

	const n = 30
	codes := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			it := &model.Item{ProjectID: p.ID, Name: fmt.Sprintf("item %d", i)}
			if err := stores[i%len(stores)].SaveItem(context.Background(), it); err != nil {
				return err
			}
			codes[i] = it.Code
			return nil
		})
	}
	require.NoError(t, g.Wait())

	nums := make([]int, n)
	for i, c := range codes {
		_, num, err := itemcode.Parse(c)
		require.NoError(t, err)
		nums[i] = num
	}
	sort.Ints(nums)
	for i, num := range nums {
		assert.Equal(t, i+1, num)
	}

	got, err := stores[1].GetProjectByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.ItemIncrementID)
	assert.Equal(t, n, got.OpenItems)
}

func TestUpdateProjectKeepsCodeOnceItemsExist(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	empty := testutil.CreateProject(t, s, "EMPTY")
	empty.Code = "RENAMED"
	require.NoError(t, s.UpdateProject(ctx, empty), "a project without items may change code")

	p := testutil.CreateProject(t, s, "OLD")
	it := &model.Item{ProjectID: p.ID, Name: "first"}
	require.NoError(t, s.SaveItem(ctx, it))
	require.Equal(t, "OLD-1", it.Code)

	p, err := s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	p.Code = "NEW"
	assert.ErrorIs(t, s.UpdateProject(ctx, p), store.ErrCodeInUse)

	p.Code = "old"
	p.Name = "Renamed project"
	require.NoError(t, s.UpdateProject(ctx, p), "other fields stay editable")

	// OLD stays taken, so no other project can mint a second OLD-1.
	err = s.CreateProject(ctx, &model.Project{Name: "Squatter", Code: "OLD"})
	assert.ErrorIs(t, err, store.ErrDuplicateCode)

	got, err := s.GetItemByCode(ctx, "old-1")
	require.NoError(t, err)
	assert.Equal(t, it.ID, got.ID)
}

func TestItemSaveRecomputesProjectRollups(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "ROLL")

	a := testutil.SaveItem(t, s, p.ID, "a", func(it *model.Item) { it.Estimate = testutil.Hours(3) })
	testutil.SaveItem(t, s, p.ID, "b", func(it *model.Item) { it.Estimate = testutil.Hours(5) })
	testutil.SaveItem(t, s, p.ID, "c")

	got, err := s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.OpenItems)
	assert.Equal(t, 0, got.CompletedItems)
	assert.InDelta(t, 8.0, got.TotalItemsEstimate, 1e-9)

	a.CompletedOn = &day
	require.NoError(t, s.SaveItem(ctx, a))

	got, err = s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.OpenItems)
	assert.Equal(t, 1, got.CompletedItems)
	assert.InDelta(t, 5.0, got.TotalItemsEstimate, 1e-9)

	assertRollupsMatchLiveAggregate(t, s, p.ID)
}

func assertRollupsMatchLiveAggregate(t *testing.T, s store.Store, projectID string) {
	t.Helper()
	ctx := context.Background()

	items, err := s.GetItems(ctx, projectID, store.ItemFilter{})
	require.NoError(t, err)

	var open, completed int
	var estimate, worked, billed float64
	for _, it := range items {
		if it.IsCompleted() {
			completed++
		} else {
			open++
			estimate += it.EstimateHours()
		}
		worked += it.TotalWorked
		billed += it.TotalBilled
	}

	p, err := s.GetProjectByID(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, open, p.OpenItems)
	assert.Equal(t, completed, p.CompletedItems)
	assert.InDelta(t, estimate, p.TotalItemsEstimate, 1e-9)
	assert.InDelta(t, worked, p.TotalWorked, 1e-9)
	assert.InDelta(t, billed, p.TotalBilled, 1e-9)
}

func TestGetItemsOrdering(t *testing.T) {
	s := testutil.NewTestStore(t)
	p := testutil.CreateProject(t, s, "ORD")

	testutil.SaveItem(t, s, p.ID, "low bug", func(it *model.Item) {
		it.Priority = model.PriorityLow
		it.Type = model.ItemTypeBug
	})
	testutil.SaveItem(t, s, p.ID, "high bug", func(it *model.Item) {
		it.Priority = model.PriorityHigh
		it.Type = model.ItemTypeBug
	})
	testutil.SaveItem(t, s, p.ID, "high feature", func(it *model.Item) {
		it.Priority = model.PriorityHigh
		it.Type = model.ItemTypeFeature
	})
	done := testutil.SaveItem(t, s, p.ID, "done task", func(it *model.Item) {
		it.CompletedOn = &day
	})

	items, err := s.GetItems(context.Background(), p.ID, store.ItemFilter{})
	require.NoError(t, err)
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	want := []string{"high feature", "high bug", "done task", "low bug"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("item order mismatch (-want +got):\n%s", diff)
	}

	status := store.ItemStatusCompleted
	completed, err := s.GetItems(context.Background(), p.ID, store.ItemFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)
}

func TestSaveWorkLogAllocatesAgainstEstimate(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "BILL")
	it := testutil.SaveItem(t, s, p.ID, "capped", func(it *model.Item) { it.Estimate = testutil.Hours(10) })

	first := logWork(t, s, it.ID, 4, nil)
	assert.InDelta(t, 4.0, *first.Billed, 1e-9)

	second := logWork(t, s, it.ID, 8, nil)
	assert.InDelta(t, 6.0, *second.Billed, 1e-9)

	got, err := s.GetItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, got.TotalWorked, 1e-9)
	assert.InDelta(t, 10.0, got.TotalBilled, 1e-9)

	third := logWork(t, s, it.ID, 2, nil)
	assert.InDelta(t, 0.0, *third.Billed, 1e-9)

	proj, err := s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 14.0, proj.TotalWorked, 1e-9)
	assert.InDelta(t, 10.0, proj.TotalBilled, 1e-9)
}

func TestSaveWorkLogNonBillableAndExplicit(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "NB")

	free := testutil.SaveItem(t, s, p.ID, "free", func(it *model.Item) { it.NonBillable = true })
	wl := logWork(t, s, free.ID, 3, testutil.Hours(2))
	assert.InDelta(t, 0.0, *wl.Billed, 1e-9)

	got, err := s.GetItemByID(ctx, free.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got.TotalWorked, 1e-9)
	assert.InDelta(t, 0.0, got.TotalBilled, 1e-9)

	open := testutil.SaveItem(t, s, p.ID, "open")
	wl = logWork(t, s, open.ID, 5, nil)
	assert.InDelta(t, 5.0, *wl.Billed, 1e-9)

	explicit := logWork(t, s, open.ID, 5, testutil.Hours(0))
	assert.InDelta(t, 0.0, *explicit.Billed, 1e-9)

	assertRollupsMatchLiveAggregate(t, s, p.ID)
}

func TestSaveWorkLogDefaultsDescription(t *testing.T) {
	s := testutil.NewTestStore(t, store.WithWorkLogDescription("On %s"))
	p := testutil.CreateProject(t, s, "DESC")
	it := testutil.SaveItem(t, s, p.ID, "x")

	wl := logWork(t, s, it.ID, 1, nil)
	assert.Equal(t, "On DESC-1", wl.Description)

	custom := &model.WorkLog{ItemID: it.ID, Date: day, Worked: 1, Description: "pairing"}
	require.NoError(t, s.SaveWorkLog(context.Background(), custom))
	assert.Equal(t, "pairing", custom.Description)
}

func TestUpdateWorkLogExcludesItselfFromPrior(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "UPD")
	it := testutil.SaveItem(t, s, p.ID, "x", func(it *model.Item) { it.Estimate = testutil.Hours(10) })

	wl := logWork(t, s, it.ID, 4, nil)
	wl.Worked = 6
	wl.Billed = nil
	require.NoError(t, s.SaveWorkLog(ctx, wl))
	assert.InDelta(t, 6.0, *wl.Billed, 1e-9)

	got, err := s.GetItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, got.TotalWorked, 1e-9)
	assert.InDelta(t, 6.0, got.TotalBilled, 1e-9)

	logs, err := s.GetWorkLogs(ctx, it.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestDeleteAndRecreateWorkLogIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "IDEM")
	it := testutil.SaveItem(t, s, p.ID, "x", func(it *model.Item) { it.Estimate = testutil.Hours(6) })

	logWork(t, s, it.ID, 3, nil)
	wl := logWork(t, s, it.ID, 2, nil)

	before, err := s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteWorkLog(ctx, wl.ID))
	mid, err := s.GetItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, mid.TotalWorked, 1e-9)

	logWork(t, s, it.ID, 2, nil)
	after, err := s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, before.TotalWorked, after.TotalWorked, 1e-9)
	assert.InDelta(t, before.TotalBilled, after.TotalBilled, 1e-9)
}

func TestDeleteItemRecomputesProject(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "DEL")
	keep := testutil.SaveItem(t, s, p.ID, "keep", func(it *model.Item) { it.Estimate = testutil.Hours(2) })
	drop := testutil.SaveItem(t, s, p.ID, "drop", func(it *model.Item) { it.Estimate = testutil.Hours(4) })
	logWork(t, s, keep.ID, 1, nil)
	logWork(t, s, drop.ID, 3, nil)

	require.NoError(t, s.DeleteItem(ctx, drop.ID))

	got, err := s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.OpenItems)
	assert.InDelta(t, 2.0, got.TotalItemsEstimate, 1e-9)
	assert.InDelta(t, 1.0, got.TotalWorked, 1e-9)

	_, err = s.GetItemByID(ctx, drop.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRecomputeProjectRepairsDrift(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, s, "FIX")
	it := testutil.SaveItem(t, s, p.ID, "x")
	logWork(t, s, it.ID, 2, nil)

	// Marking the item non-billable after logging leaves a billed total
	// behind until reconciliation.
	it.NonBillable = true
	require.NoError(t, s.SaveItem(ctx, it))

	require.NoError(t, s.RecomputeProject(ctx, p.ID))

	got, err := s.GetItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got.TotalBilled, 1e-9)
	assertRollupsMatchLiveAggregate(t, s, p.ID)
}

func TestCommentsNewestFirst(t *testing.T) {
	ctx := context.Background()
	clock := day
	s := testutil.NewTestStore(t, store.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	p := testutil.CreateProject(t, s, "COM")
	it := testutil.SaveItem(t, s, p.ID, "x")

	for _, body := range []string{"one", "two"} {
		require.NoError(t, s.CreateComment(ctx, &model.Comment{ItemID: it.ID, Body: body}))
	}
	comments, err := s.GetComments(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "two", comments[0].Body)

	comments[1].Body = "uno"
	require.NoError(t, s.UpdateComment(ctx, &comments[1]))
	got, err := s.GetCommentByID(ctx, comments[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "uno", got.Body)
}

func TestLockLease(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	ok, err := s.TryAcquireLock(ctx, "set-item-code:p1", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryAcquireLock(ctx, "set-item-code:p1", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lease must not be stolen")

	ok, err = s.TryAcquireLock(ctx, "set-item-code:p1", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "owner may renew")

	require.NoError(t, s.ReleaseLock(ctx, "set-item-code:p1", "a"))
	ok, err = s.TryAcquireLock(ctx, "set-item-code:p1", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryAcquireLock(ctx, "expired", "a", -time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.TryAcquireLock(ctx, "expired", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is reclaimed")
}
