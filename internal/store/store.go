package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/project-tracker/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateCode is returned when a project code is already taken.
var ErrDuplicateCode = errors.New("project code already exists")

// ErrCodeInUse is returned when changing the code of a project whose items
// already carry it.
var ErrCodeInUse = errors.New("project code is used by existing items")

// ProjectFilter controls filtering and sorting for project queries.
type ProjectFilter struct {
	Statuses []model.ProjectStatus // nil means all
	Query    *string               // search name + code
	SortBy   string                // "name", "code", "status", "deadline", "created_at"
	SortDesc bool
	Limit    int
	Offset   int
}

// ItemFilter controls filtering for backlog queries. Items are always
// ordered by priority (most urgent first), then type, then code.
type ItemFilter struct {
	Status *string // "open", "completed", or nil (all)
	Query  *string // search code + name
	Limit  int
	Offset int
}

// Item status filter values.
const (
	ItemStatusOpen      = "open"
	ItemStatusCompleted = "completed"
)

// Store defines the persistence interface for projects, backlog items,
// comments and work logs. Saves of items and work logs recompute the
// rollups of their ancestors in the same transaction.
type Store interface {
	// === Projects ===

	CreateProject(ctx context.Context, project *model.Project) error
	UpdateProject(ctx context.Context, project *model.Project) error
	DeleteProject(ctx context.Context, id string) error
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	GetProjectByCode(ctx context.Context, code string) (*model.Project, error)
	GetProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error)

	// === Items ===

	// SaveItem inserts or updates an item. An item without a code is
	// assigned the next code of its project. The project's item rollups
	// are recomputed.
	SaveItem(ctx context.Context, item *model.Item) error
	DeleteItem(ctx context.Context, id string) error
	GetItemByID(ctx context.Context, id string) (*model.Item, error)
	GetItemByCode(ctx context.Context, code string) (*model.Item, error)
	GetItems(ctx context.Context, projectID string, filter ItemFilter) ([]model.Item, error)

	// === Comments ===

	CreateComment(ctx context.Context, comment *model.Comment) error
	UpdateComment(ctx context.Context, comment *model.Comment) error
	DeleteComment(ctx context.Context, id string) error
	GetCommentByID(ctx context.Context, id string) (*model.Comment, error)
	GetComments(ctx context.Context, itemID string) ([]model.Comment, error)

	// === Work logs ===

	// SaveWorkLog inserts or updates a work log, allocating its billed
	// hours when unset and recomputing item and project totals.
	SaveWorkLog(ctx context.Context, wl *model.WorkLog) error
	DeleteWorkLog(ctx context.Context, id string) error
	GetWorkLogByID(ctx context.Context, id string) (*model.WorkLog, error)
	GetWorkLogs(ctx context.Context, itemID string) ([]model.WorkLog, error)

	// === Reconciliation ===

	RecomputeItem(ctx context.Context, itemID string) error
	RecomputeProject(ctx context.Context, projectID string) error

	// === Advisory locks ===

	TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}
