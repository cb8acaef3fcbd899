package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/project-tracker/internal/itemcode"
	"github.com/nhle/project-tracker/internal/lock"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/store"
	"github.com/nhle/project-tracker/internal/testutil"
	"github.com/nhle/project-tracker/internal/tracker"
)

var (
	admin  = model.NewUser("admin", model.AllPermissions...)
	dev    = model.NewUser("dev", model.PermAddItem, model.PermLimitedChangeItem, model.PermAddWorkLog, model.PermChangeWorkLog, model.PermDeleteWorkLog, model.PermViewWorkLog, model.PermAddComment, model.PermViewComment)
	reader = model.NewUser("reader", model.PermViewComment)
	day    = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
)

func newService(t *testing.T, locker lock.Locker, timeout time.Duration) (*tracker.Service, *store.SQLiteStore) {
	t.Helper()
	st := testutil.NewTestStore(t)
	cfg := model.DefaultAppConfig()
	cfg.Lock.Timeout = timeout
	if locker == nil {
		locker = lock.NewKeyed()
	}
	return tracker.New(st, locker, cfg, zap.NewNop()), st
}

func newProject(t *testing.T, svc *tracker.Service, code string) *model.Project {
	t.Helper()
	p := &model.Project{Name: code + " project", Code: code}
	require.NoError(t, svc.CreateProject(context.Background(), admin, p))
	return p
}

func TestCreateProjectValidation(t *testing.T) {
	svc, st := newService(t, nil, time.Second)
	ctx := context.Background()

	err := svc.CreateProject(ctx, admin, &model.Project{Name: " ", Code: "WAYTOOLONGCODE"})
	var ve *tracker.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "code")

	projects, err := st.GetProjects(ctx, store.ProjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, projects, "nothing is written on validation failure")

	newProject(t, svc, "ACME")
	err = svc.CreateProject(ctx, admin, &model.Project{Name: "Again", Code: "acme"})
	msg, ok := tracker.FieldError(err, "code")
	require.True(t, ok)
	assert.Contains(t, msg, "already used")
}

func TestCreateItemConcurrentCodes(t *testing.T) {
	tests := []struct {
		name   string
		locker func(st *store.SQLiteStore) lock.Locker
	}{
		{"keyed", func(*store.SQLiteStore) lock.Locker { return lock.NewKeyed() }},
		{"table", func(st *store.SQLiteStore) lock.Locker {
			return lock.NewTable(st, time.Minute).WithRetryInterval(time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := testutil.NewTestStore(t)
			svc := tracker.New(st, tt.locker(st), model.DefaultAppConfig(), zap.NewNop())
			p := newProject(t, svc, "RACE")

			const n = 20
			codes := make([]string, n)
			var g errgroup.Group
			for i := 0; i < n; i++ {
				g.Go(func() error {
					it := &model.Item{ProjectID: p.ID, Name: fmt.Sprintf("item %d", i)}
					if err := svc.CreateItem(context.Background(), dev, it); err != nil {
						return err
					}
					codes[i] = it.Code
					return nil
				})
			}
			require.NoError(t, g.Wait())

			nums := make([]int, 0, n)
			for _, c := range codes {
				_, num, err := itemcode.Parse(c)
				require.NoError(t, err)
				nums = append(nums, num)
			}
			sort.Ints(nums)
			for i, num := range nums {
				assert.Equal(t, i+1, num)
			}

			got, err := svc.GetProject(context.Background(), p.ID)
			require.NoError(t, err)
			assert.Equal(t, n, got.ItemIncrementID)
			assert.Equal(t, n, got.OpenItems)
		})
	}
}

func TestCreateItemAcrossServicesSharingADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	var services []*tracker.Service
	for range 3 {
		st := testutil.NewFileStore(t, path)
		locker := lock.NewTable(st, time.Minute).WithRetryInterval(time.Millisecond)
		services = append(services, tracker.New(st, locker, model.DefaultAppConfig(), zap.NewNop()))
	}
	p := newProject(t, services[0], "MULTI")

	const n = 30
	codes := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			it := &model.Item{ProjectID: p.ID, Name: fmt.Sprintf("item %d", i)}
			if err := services[i%len(services)].CreateItem(context.Background(), dev, it); err != nil {
				return err
			}
			codes[i] = it.Code
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, n)
	for _, c := range codes {
		assert.False(t, seen[c], "code %s allocated twice", c)
		seen[c] = true
	}
	got, err := services[2].GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.ItemIncrementID)
}

func TestUpdateProjectCodeIsFixedOnceItemsExist(t *testing.T) {
	svc, _ := newService(t, nil, time.Second)
	ctx := context.Background()
	p := newProject(t, svc, "KEEP")
	require.NoError(t, svc.CreateItem(ctx, admin, &model.Item{ProjectID: p.ID, Name: "first"}))

	p, err := svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	p.Code = "MOVED"
	err = svc.UpdateProject(ctx, p)
	msg, ok := tracker.FieldError(err, "code")
	require.True(t, ok, "got %v", err)
	assert.Contains(t, msg, "has items")

	got, err := svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "KEEP", got.Code)
}

func TestCreateItemLockTimeoutFailsSave(t *testing.T) {
	locker := lock.NewKeyed()
	svc, st := newService(t, locker, 20*time.Millisecond)
	p := newProject(t, svc, "HELD")

	unlock, err := locker.Lock(context.Background(), lock.Name(tracker.ItemCodeLockScope, p.ID))
	require.NoError(t, err)
	defer unlock()

	err = svc.CreateItem(context.Background(), dev, &model.Item{ProjectID: p.ID, Name: "blocked"})
	require.ErrorIs(t, err, lock.ErrTimeout)

	items, err := st.GetItems(context.Background(), p.ID, store.ItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateItemRequiresPermission(t *testing.T) {
	svc, _ := newService(t, nil, time.Second)
	p := newProject(t, svc, "PERM")

	err := svc.CreateItem(context.Background(), reader, &model.Item{ProjectID: p.ID, Name: "x"})
	assert.ErrorIs(t, err, tracker.ErrForbidden)
}

func TestLimitedEditorKeepsBillingFields(t *testing.T) {
	svc, _ := newService(t, nil, time.Second)
	ctx := context.Background()
	p := newProject(t, svc, "LIM")

	it := &model.Item{ProjectID: p.ID, Name: "scoped", Estimate: testutil.Hours(4)}
	require.NoError(t, svc.CreateItem(ctx, admin, it))

	edit := *it
	edit.Name = "renamed"
	edit.Estimate = testutil.Hours(40)
	edit.NonBillable = true
	require.NoError(t, svc.UpdateItem(ctx, dev, &edit))

	got, err := svc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	require.NotNil(t, got.Estimate)
	assert.InDelta(t, 4.0, *got.Estimate, 1e-9)
	assert.False(t, got.NonBillable)

	edit.Estimate = testutil.Hours(40)
	require.NoError(t, svc.UpdateItem(ctx, admin, &edit))
	got, err = svc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, *got.Estimate, 1e-9)
}

func TestCompleteAndReopenItem(t *testing.T) {
	svc, _ := newService(t, nil, time.Second)
	ctx := context.Background()
	p := newProject(t, svc, "DONE")
	it := &model.Item{ProjectID: p.ID, Name: "finish me"}
	require.NoError(t, svc.CreateItem(ctx, admin, it))

	_, err := svc.CompleteItem(ctx, dev, it.ID, day)
	require.NoError(t, err)
	proj, err := svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, proj.OpenItems)
	assert.Equal(t, 1, proj.CompletedItems)

	reopened, err := svc.ReopenItem(ctx, dev, it.ID)
	require.NoError(t, err)
	assert.False(t, reopened.IsCompleted())

	_, err = svc.CompleteItem(ctx, reader, it.ID, day)
	assert.ErrorIs(t, err, tracker.ErrForbidden)
}

func TestWorkLogOwnership(t *testing.T) {
	svc, _ := newService(t, nil, time.Second)
	ctx := context.Background()
	p := newProject(t, svc, "OWN")
	it := &model.Item{ProjectID: p.ID, Name: "logged", Estimate: testutil.Hours(10)}
	require.NoError(t, svc.CreateItem(ctx, admin, it))

	wl := &model.WorkLog{ItemID: it.ID, Date: day, Worked: 4}
	require.NoError(t, svc.LogWork(ctx, admin, wl))
	assert.Equal(t, "admin", wl.CreatedBy)
	assert.InDelta(t, 4.0, wl.BilledHours(), 1e-9)

	edit := *wl
	edit.Worked = 5
	err := svc.UpdateWorkLog(ctx, dev, &edit)
	assert.ErrorIs(t, err, tracker.ErrForbidden, "only the author or a superuser may edit")
	assert.ErrorIs(t, svc.DeleteWorkLog(ctx, dev, wl.ID), tracker.ErrForbidden)

	err = svc.LogWork(ctx, reader, &model.WorkLog{ItemID: it.ID, Date: day, Worked: 1})
	assert.ErrorIs(t, err, tracker.ErrForbidden, "logging work needs add_worklog")

	own := &model.WorkLog{ItemID: it.ID, Date: day, Worked: 8}
	require.NoError(t, svc.LogWork(ctx, dev, own))
	assert.InDelta(t, 6.0, own.BilledHours(), 1e-9)
	require.NoError(t, svc.DeleteWorkLog(ctx, dev, own.ID))

	require.NoError(t, svc.DeleteWorkLog(ctx, admin, wl.ID))
	got, err := svc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalWorked)
	assert.Zero(t, got.TotalBilled)
}

func TestLogWorkValidation(t *testing.T) {
	svc, _ := newService(t, nil, time.Second)
	err := svc.LogWork(context.Background(), admin, &model.WorkLog{ItemID: "x", Worked: -1})
	var ve *tracker.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "date")
	assert.Contains(t, ve.Fields, "worked")
}

func TestComments(t *testing.T) {
	svc, _ := newService(t, nil, time.Second)
	ctx := context.Background()
	p := newProject(t, svc, "CMT")
	it := &model.Item{ProjectID: p.ID, Name: "discussed"}
	require.NoError(t, svc.CreateItem(ctx, admin, it))

	err := svc.AddComment(ctx, dev, &model.Comment{ItemID: it.ID, Body: "<p> &nbsp; </p>"})
	_, ok := tracker.FieldError(err, "body")
	assert.True(t, ok, "markup without text is rejected")

	c := &model.Comment{ItemID: it.ID, Body: "<b>Looks</b> good"}
	require.NoError(t, svc.AddComment(ctx, dev, c))
	assert.ErrorIs(t, svc.DeleteComment(ctx, reader, c.ID), tracker.ErrForbidden)

	comments, err := svc.ListComments(ctx, reader, it.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Looks good", comments[0].Label())

	_, err = svc.ListWorkLogs(ctx, reader, it.ID)
	assert.ErrorIs(t, err, tracker.ErrForbidden)
}

func TestReconcileAll(t *testing.T) {
	svc, st := newService(t, nil, time.Second)
	ctx := context.Background()

	for _, code := range []string{"R1", "R2", "R3"} {
		p := newProject(t, svc, code)
		it := &model.Item{ProjectID: p.ID, Name: "x"}
		require.NoError(t, svc.CreateItem(ctx, admin, it))
		require.NoError(t, svc.LogWork(ctx, admin, &model.WorkLog{ItemID: it.ID, Date: day, Worked: 2}))
	}

	n, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	projects, err := st.GetProjects(ctx, store.ProjectFilter{})
	require.NoError(t, err)
	for _, p := range projects {
		assert.InDelta(t, 2.0, p.TotalWorked, 1e-9, p.Code)
		assert.Equal(t, 1, p.OpenItems, p.Code)
	}
}
