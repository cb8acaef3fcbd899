// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T, opts ...store.Option) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", opts...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewFileStore opens a SQLiteStore on a database file, as a separate
// process sharing that file would. It closes the store when the test
// completes.
func NewFileStore(t *testing.T, path string, opts ...store.Option) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(path, opts...)
	if err != nil {
		t.Fatalf("opening store %s: %v", path, err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing store %s: %v", path, err)
		}
	})
	return s
}

// CreateProject inserts a project with the given code and fails the test
// on error.
func CreateProject(t *testing.T, s store.Store, code string, mods ...func(*model.Project)) *model.Project {
	t.Helper()

	p := &model.Project{Name: code + " project", Code: code, CreatedBy: "tester"}
	for _, m := range mods {
		m(p)
	}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("creating project %s: %v", code, err)
	}
	return p
}

// SaveItem inserts an item into the project and fails the test on error.
func SaveItem(t *testing.T, s store.Store, projectID, name string, mods ...func(*model.Item)) *model.Item {
	t.Helper()

	it := &model.Item{ProjectID: projectID, Name: name, CreatedBy: "tester"}
	for _, m := range mods {
		m(it)
	}
	if err := s.SaveItem(context.Background(), it); err != nil {
		t.Fatalf("saving item %s: %v", name, err)
	}
	return it
}

// Hours returns a pointer to h.
func Hours(h float64) *float64 { return &h }
