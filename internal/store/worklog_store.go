package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/project-tracker/internal/billing"
	"github.com/nhle/project-tracker/internal/model"
)

const workLogColumns = `
	id, item_id, date, worked, billed, description,
	created_by, created_at, updated_at`

// SaveWorkLog inserts or updates a work log and cascades the totals.
//
// The other logs of the item are summed, the billed hours allocated, the
// item totals written and the project totals re-summed from its items,
// all in one transaction. A blank description takes the configured
// template with the item code. An existing log keeps its item.
func (s *SQLiteStore) SaveWorkLog(ctx context.Context, wl *model.WorkLog) error {
	if wl.Worked < 0 {
		return fmt.Errorf("worked hours must not be negative")
	}
	if wl.Billed != nil && *wl.Billed < 0 {
		return fmt.Errorf("billed hours must not be negative")
	}
	if wl.Date.IsZero() {
		return fmt.Errorf("work log date is required")
	}
	wl.Date = *dateOnly(&wl.Date)

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := s.timestamp()

		isNew := wl.ID == ""
		if !isNew {
			var existing model.WorkLog
			err := tx.GetContext(ctx, &existing,
				"SELECT "+workLogColumns+" FROM worklogs WHERE id = ?", wl.ID)
			if err != nil {
				return notFound(err, "work log", wl.ID)
			}
			wl.ItemID = existing.ItemID
			wl.CreatedBy = existing.CreatedBy
			wl.CreatedAt = existing.CreatedAt
		}

		var item model.Item
		if err := tx.GetContext(ctx, &item,
			"SELECT "+itemColumns+" FROM items WHERE id = ?", wl.ItemID); err != nil {
			return notFound(err, "item", wl.ItemID)
		}

		prior, err := otherWorkLogTotals(ctx, tx, item.ID, wl.ID)
		if err != nil {
			return err
		}

		res := billing.Allocate(billing.Input{
			PriorWorked: prior.Worked,
			PriorBilled: prior.Billed,
			Worked:      wl.Worked,
			Billed:      wl.Billed,
			Estimate:    item.Estimate,
			NonBillable: item.NonBillable,
		})
		billed := res.Billed
		wl.Billed = &billed

		if strings.TrimSpace(wl.Description) == "" {
			wl.Description = defaultDescription(s.workLogDescription, item.Code)
		}

		if err := writeItemTotals(ctx, tx, item.ID, res.ItemTotalWorked, res.ItemTotalBilled, now); err != nil {
			return err
		}
		if err := recomputeProjectTotals(ctx, tx, item.ProjectID, now); err != nil {
			return err
		}

		wl.UpdatedAt = now
		if isNew {
			wl.ID = uuid.New().String()
			wl.CreatedAt = now
			_, err = tx.ExecContext(ctx, `
				INSERT INTO worklogs (
					id, item_id, date, worked, billed, description,
					created_by, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				wl.ID, wl.ItemID, wl.Date, wl.Worked, wl.Billed, wl.Description,
				wl.CreatedBy, wl.CreatedAt, wl.UpdatedAt,
			)
			if err != nil {
				wl.ID = ""
				return fmt.Errorf("creating work log: %w", err)
			}
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE worklogs SET
				date = ?, worked = ?, billed = ?, description = ?, updated_at = ?
			WHERE id = ?`,
			wl.Date, wl.Worked, wl.Billed, wl.Description, wl.UpdatedAt, wl.ID,
		)
		if err != nil {
			return fmt.Errorf("updating work log %s: %w", wl.ID, err)
		}
		return nil
	})
}

// DeleteWorkLog removes a work log and recomputes the totals of its item
// and project from the remaining logs.
func (s *SQLiteStore) DeleteWorkLog(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var itemID string
		if err := tx.GetContext(ctx, &itemID,
			"SELECT item_id FROM worklogs WHERE id = ?", id); err != nil {
			return notFound(err, "work log", id)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM worklogs WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting work log %s: %w", id, err)
		}

		now := s.timestamp()
		projectID, err := recomputeItemTotals(ctx, tx, itemID, now)
		if err != nil {
			return err
		}
		return recomputeProjectTotals(ctx, tx, projectID, now)
	})
}

// GetWorkLogByID retrieves a single work log by ID.
func (s *SQLiteStore) GetWorkLogByID(ctx context.Context, id string) (*model.WorkLog, error) {
	var wl model.WorkLog
	err := s.db.GetContext(ctx, &wl,
		"SELECT "+workLogColumns+" FROM worklogs WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "work log", id)
	}
	return &wl, nil
}

// GetWorkLogs retrieves the work logs of an item, most recent date first.
func (s *SQLiteStore) GetWorkLogs(ctx context.Context, itemID string) ([]model.WorkLog, error) {
	var logs []model.WorkLog
	err := s.db.SelectContext(ctx, &logs,
		"SELECT "+workLogColumns+" FROM worklogs WHERE item_id = ? ORDER BY date DESC, id",
		itemID)
	if err != nil {
		return nil, fmt.Errorf("querying work logs of item %s: %w", itemID, err)
	}
	return logs, nil
}

// defaultDescription fills the item code into tmpl when it has a verb.
func defaultDescription(tmpl, code string) string {
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	return fmt.Sprintf(tmpl, code)
}
