package app_test

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/project-tracker/internal/app"
	"github.com/nhle/project-tracker/internal/lock"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/testutil"
	"github.com/nhle/project-tracker/internal/tracker"
	"github.com/nhle/project-tracker/internal/ui/command"
	"github.com/nhle/project-tracker/internal/ui/projectlist"
	"github.com/nhle/project-tracker/internal/ui/projectview"
)

var admin = model.NewUser("admin", model.AllPermissions...)

func setup(t *testing.T) (app.Model, *tracker.Service, *model.Project, *model.Item) {
	t.Helper()
	st := testutil.NewTestStore(t)
	svc := tracker.New(st, lock.NewKeyed(), model.DefaultAppConfig(), zap.NewNop())

	p := &model.Project{Name: "Acme site", Code: "ACME"}
	require.NoError(t, svc.CreateProject(context.Background(), admin, p))
	it := &model.Item{ProjectID: p.ID, Name: "Landing page", Estimate: testutil.Hours(3)}
	require.NoError(t, svc.CreateItem(context.Background(), admin, it))

	m := app.New(svc, admin, time.Hour, zap.NewNop())
	t.Cleanup(m.Shutdown)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(app.Model), svc, p, it
}

// step feeds msg to m and keeps feeding the messages its commands produce,
// so a command that resolves a target and then loads it settles in one call.
func step(t *testing.T, m app.Model, msg tea.Msg) app.Model {
	t.Helper()
	const maxHops = 8
	pending := []tea.Msg{msg}
	for hops := 0; len(pending) > 0 && hops < maxHops; hops++ {
		next, cmd := m.Update(pending[0])
		m = next.(app.Model)
		pending = append(pending[1:], run(cmd)...)
	}
	return m
}

func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	out := cmd()
	if batch, ok := out.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, run(c)...)
		}
		return msgs
	}
	if out == nil {
		return nil
	}
	return []tea.Msg{out}
}

func TestOpenProjectShowsBacklog(t *testing.T) {
	m, _, p, it := setup(t)

	m = step(t, m, projectlist.OpenProjectMsg{ID: p.ID})
	assert.Equal(t, app.ViewProject, m.CurrentView())

	view := m.View()
	assert.Contains(t, view, it.Code)
	assert.Contains(t, view, "Landing page")
	assert.Contains(t, view, "Financials")

	m = step(t, m, projectview.BackMsg{})
	assert.Equal(t, app.ViewProjects, m.CurrentView())
	assert.Contains(t, m.View(), "ACME")
}

func TestCommandOpensItemByCode(t *testing.T) {
	m, _, _, it := setup(t)

	m = step(t, m, command.CommandMsg{Name: command.Item, Arg: it.Code})
	assert.Equal(t, app.ViewItem, m.CurrentView())
	assert.Contains(t, m.View(), it.Title())
}

func TestCommandUnknownCodeReportsError(t *testing.T) {
	m, _, _, _ := setup(t)

	m = step(t, m, command.CommandMsg{Name: command.Item, Arg: "ACME-99"})
	assert.Equal(t, app.ViewProjects, m.CurrentView())
	assert.Contains(t, m.View(), "no item ACME-99")
}

func TestHelpToggle(t *testing.T) {
	m, _, _, _ := setup(t)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, app.ViewHelp, m.CurrentView())
	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, app.ViewProjects, m.CurrentView())
}
