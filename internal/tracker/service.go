// Package tracker is the application service for projects, backlog items,
// comments and work logs. It validates input, checks the acting user's
// permissions and serializes item code allocation per project.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/project-tracker/internal/lock"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/store"
)

// ItemCodeLockScope prefixes the lock taken while allocating item codes.
const ItemCodeLockScope = "set-item-code"

// Service coordinates the store, the keyed lock and the configuration.
type Service struct {
	store  store.Store
	locker lock.Locker
	logger *zap.Logger

	defaultRate float64
	lockTimeout time.Duration
}

// New creates a Service. A nil logger disables logging.
func New(st store.Store, locker lock.Locker, cfg *model.AppConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = model.DefaultAppConfig()
	}
	return &Service{
		store:       st,
		locker:      locker,
		logger:      logger,
		defaultRate: cfg.Billing.HourlyRate,
		lockTimeout: cfg.Lock.Timeout,
	}
}

// DefaultHourlyRate is the configured rate for projects without an override.
func (s *Service) DefaultHourlyRate() float64 { return s.defaultRate }

// Store exposes the underlying store for read views.
func (s *Service) Store() store.Store { return s.store }

// === Projects ===

// CreateProject validates and stores a new project owned by user.
func (s *Service) CreateProject(ctx context.Context, user model.User, p *model.Project) error {
	if err := validateProject(p); err != nil {
		return err
	}
	p.CreatedBy = user.Name

	if err := s.store.CreateProject(ctx, p); err != nil {
		return codeErrorAsField(err)
	}
	s.logger.Info("project created",
		zap.String("project_id", p.ID),
		zap.String("code", p.Code))
	return nil
}

// UpdateProject validates and stores the editable fields of a project.
func (s *Service) UpdateProject(ctx context.Context, p *model.Project) error {
	if err := validateProject(p); err != nil {
		return err
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return codeErrorAsField(err)
	}
	return nil
}

func codeErrorAsField(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateCode):
		return &ValidationError{Fields: map[string]string{"code": "is already used by another project"}}
	case errors.Is(err, store.ErrCodeInUse):
		return &ValidationError{Fields: map[string]string{"code": "cannot change once the project has items"}}
	}
	return err
}

// DeleteProject removes a project with its whole backlog.
func (s *Service) DeleteProject(ctx context.Context, user model.User, id string) error {
	if !user.IsSuperuser() {
		return forbidden("delete project")
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", zap.String("project_id", id))
	return nil
}

// GetProject returns a project by ID.
func (s *Service) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return s.store.GetProjectByID(ctx, id)
}

// GetProjectByCode returns a project by its code.
func (s *Service) GetProjectByCode(ctx context.Context, code string) (*model.Project, error) {
	return s.store.GetProjectByCode(ctx, code)
}

// ListProjects returns projects matching filter.
func (s *Service) ListProjects(ctx context.Context, filter store.ProjectFilter) ([]model.Project, error) {
	return s.store.GetProjects(ctx, filter)
}

// === Items ===

// CreateItem stores a new backlog item. An item without a code is given
// the next code of its project while the project's allocation lock is
// held. Failing to take the lock fails the save.
func (s *Service) CreateItem(ctx context.Context, user model.User, it *model.Item) error {
	if !user.Has(model.PermAddItem) {
		return forbidden("add item")
	}
	if err := validateItem(it); err != nil {
		return err
	}
	it.ID = ""
	it.CreatedBy = user.Name

	if it.Code == "" {
		unlock, err := s.lockProject(ctx, it.ProjectID)
		if err != nil {
			return err
		}
		defer unlock()
	}

	if err := s.store.SaveItem(ctx, it); err != nil {
		return err
	}
	s.logger.Info("item code allocated",
		zap.String("project_id", it.ProjectID),
		zap.String("item_id", it.ID),
		zap.String("code", it.Code))
	return nil
}

// lockProject takes the item code lock of a project, bounded by the
// configured timeout.
func (s *Service) lockProject(ctx context.Context, projectID string) (func(), error) {
	lockCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	name := lock.Name(ItemCodeLockScope, projectID)
	unlock, err := s.locker.Lock(lockCtx, name)
	if err != nil {
		s.logger.Warn("item code lock not acquired",
			zap.String("lock", name),
			zap.Duration("timeout", s.lockTimeout),
			zap.Error(err))
		return nil, fmt.Errorf("allocating item code: %w", err)
	}
	return unlock, nil
}

// UpdateItem stores changes to an existing item. Users who may only use
// the limited form cannot change the estimate or the non-billable flag;
// the stored values are kept for them.
func (s *Service) UpdateItem(ctx context.Context, user model.User, it *model.Item) error {
	if !user.Has(model.PermChangeItem) && !user.Has(model.PermLimitedChangeItem) {
		return forbidden("change item")
	}

	existing, err := s.store.GetItemByID(ctx, it.ID)
	if err != nil {
		return err
	}
	it.ProjectID = existing.ProjectID
	it.Code = existing.Code
	if user.LimitedItemEditor() {
		it.Estimate = existing.Estimate
		it.NonBillable = existing.NonBillable
	}

	if err := validateItem(it); err != nil {
		return err
	}
	return s.store.SaveItem(ctx, it)
}

// CompleteItem marks an item done on the given day.
func (s *Service) CompleteItem(ctx context.Context, user model.User, id string, on time.Time) (*model.Item, error) {
	return s.setCompletion(ctx, user, id, &on)
}

// ReopenItem clears an item's completion date.
func (s *Service) ReopenItem(ctx context.Context, user model.User, id string) (*model.Item, error) {
	return s.setCompletion(ctx, user, id, nil)
}

func (s *Service) setCompletion(ctx context.Context, user model.User, id string, on *time.Time) (*model.Item, error) {
	if !user.Has(model.PermChangeItem) && !user.Has(model.PermLimitedChangeItem) {
		return nil, forbidden("change item")
	}
	it, err := s.store.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	it.CompletedOn = on
	if err := s.store.SaveItem(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// DeleteItem removes an item with its comments and work logs.
func (s *Service) DeleteItem(ctx context.Context, user model.User, id string) error {
	if !user.Has(model.PermDeleteItem) {
		return forbidden("delete item")
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("item deleted", zap.String("item_id", id))
	return nil
}

// GetItem returns an item by ID.
func (s *Service) GetItem(ctx context.Context, id string) (*model.Item, error) {
	return s.store.GetItemByID(ctx, id)
}

// GetItemByCode returns an item by its code, e.g. ACME-12.
func (s *Service) GetItemByCode(ctx context.Context, code string) (*model.Item, error) {
	return s.store.GetItemByCode(ctx, code)
}

// ListItems returns the backlog of a project.
func (s *Service) ListItems(ctx context.Context, projectID string, filter store.ItemFilter) ([]model.Item, error) {
	return s.store.GetItems(ctx, projectID, filter)
}

// === Comments ===

// AddComment stores a new comment by user.
func (s *Service) AddComment(ctx context.Context, user model.User, c *model.Comment) error {
	if !user.Has(model.PermAddComment) {
		return forbidden("add comment")
	}
	if err := validateComment(c); err != nil {
		return err
	}
	if _, err := s.store.GetItemByID(ctx, c.ItemID); err != nil {
		return err
	}
	c.ID = ""
	c.CreatedBy = user.Name
	return s.store.CreateComment(ctx, c)
}

// UpdateComment changes the body of a comment. Only its author or a
// superuser may do so.
func (s *Service) UpdateComment(ctx context.Context, user model.User, c *model.Comment) error {
	existing, err := s.store.GetCommentByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if !user.CanModify(model.PermAddComment, existing.CreatedBy) {
		return forbidden("change comment")
	}
	c.ItemID = existing.ItemID
	if err := validateComment(c); err != nil {
		return err
	}
	return s.store.UpdateComment(ctx, c)
}

// DeleteComment removes a comment. Only its author or a superuser may do so.
func (s *Service) DeleteComment(ctx context.Context, user model.User, id string) error {
	existing, err := s.store.GetCommentByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.CanModify(model.PermAddComment, existing.CreatedBy) {
		return forbidden("delete comment")
	}
	return s.store.DeleteComment(ctx, id)
}

// ListComments returns an item's comments, newest first.
func (s *Service) ListComments(ctx context.Context, user model.User, itemID string) ([]model.Comment, error) {
	if !user.Has(model.PermViewComment) {
		return nil, forbidden("view comments")
	}
	return s.store.GetComments(ctx, itemID)
}

// === Work logs ===

// LogWork records hours on an item. A nil Billed lets the allocator
// decide how many hours are billed.
func (s *Service) LogWork(ctx context.Context, user model.User, wl *model.WorkLog) error {
	if !user.Has(model.PermAddWorkLog) {
		return forbidden("add work log")
	}
	if err := validateWorkLog(wl); err != nil {
		return err
	}
	wl.ID = ""
	wl.CreatedBy = user.Name

	if err := s.store.SaveWorkLog(ctx, wl); err != nil {
		return err
	}
	s.logger.Info("work logged",
		zap.String("item_id", wl.ItemID),
		zap.String("worklog_id", wl.ID),
		zap.Float64("worked", wl.Worked),
		zap.Float64("billed", wl.BilledHours()))
	return nil
}

// UpdateWorkLog stores changes to a work log. Only its author or a
// superuser holding change_worklog may do so.
func (s *Service) UpdateWorkLog(ctx context.Context, user model.User, wl *model.WorkLog) error {
	existing, err := s.store.GetWorkLogByID(ctx, wl.ID)
	if err != nil {
		return err
	}
	if !user.CanModify(model.PermChangeWorkLog, existing.CreatedBy) {
		return forbidden("change work log")
	}
	wl.ItemID = existing.ItemID
	if err := validateWorkLog(wl); err != nil {
		return err
	}

	if err := s.store.SaveWorkLog(ctx, wl); err != nil {
		return err
	}
	s.logger.Debug("work log updated",
		zap.String("worklog_id", wl.ID),
		zap.Float64("worked", wl.Worked),
		zap.Float64("billed", wl.BilledHours()))
	return nil
}

// DeleteWorkLog removes a work log. Only its author or a superuser
// holding delete_worklog may do so.
func (s *Service) DeleteWorkLog(ctx context.Context, user model.User, id string) error {
	existing, err := s.store.GetWorkLogByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.CanModify(model.PermDeleteWorkLog, existing.CreatedBy) {
		return forbidden("delete work log")
	}
	return s.store.DeleteWorkLog(ctx, id)
}

// ListWorkLogs returns an item's work logs, most recent first.
func (s *Service) ListWorkLogs(ctx context.Context, user model.User, itemID string) ([]model.WorkLog, error) {
	if !user.Has(model.PermViewWorkLog) {
		return nil, forbidden("view work logs")
	}
	return s.store.GetWorkLogs(ctx, itemID)
}
