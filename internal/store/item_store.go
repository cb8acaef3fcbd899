package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/project-tracker/internal/itemcode"
	"github.com/nhle/project-tracker/internal/model"
)

const itemColumns = `
	id, project_id, item_type, priority, code, name, description,
	completed_on, estimate, non_billable, total_worked, total_billed,
	created_by, created_at, updated_at`

// SaveItem inserts a new item or updates an existing one.
//
// A new item without a code takes the next number of its project's
// sequence counter, re-read inside the transaction. Callers creating
// items concurrently must hold the project's set-item-code lock. The
// project's item rollups and counter are written back in the same
// transaction. An existing item keeps its project and code.
func (s *SQLiteStore) SaveItem(ctx context.Context, item *model.Item) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return fmt.Errorf("item name must not be empty")
	}
	if item.Type == 0 {
		item.Type = model.ItemTypeFeature
	}
	if item.Priority == 0 {
		item.Priority = model.PriorityMedium
	}
	item.CompletedOn = dateOnly(item.CompletedOn)

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := s.timestamp()

		var existing model.Item
		isNew := item.ID == ""
		if !isNew {
			err := tx.GetContext(ctx, &existing,
				"SELECT "+itemColumns+" FROM items WHERE id = ?", item.ID)
			if err != nil {
				return notFound(err, "item", item.ID)
			}
			item.ProjectID = existing.ProjectID
			if existing.Code != "" {
				item.Code = existing.Code
			}
			item.TotalWorked = existing.TotalWorked
			item.TotalBilled = existing.TotalBilled
			item.CreatedBy = existing.CreatedBy
			item.CreatedAt = existing.CreatedAt
		}

		project, err := getProject(ctx, tx, "id", item.ProjectID)
		if err != nil {
			return err
		}

		counter := project.ItemIncrementID
		if item.Code == "" {
			counter++
			item.Code = itemcode.Format(project.Code, counter)
		}

		item.UpdatedAt = now
		if isNew {
			item.ID = uuid.New().String()
			item.CreatedAt = now
			item.TotalWorked = 0
			item.TotalBilled = 0

			_, err = tx.ExecContext(ctx, `
				INSERT INTO items (
					id, project_id, item_type, priority, code, name, description,
					completed_on, estimate, non_billable, total_worked, total_billed,
					created_by, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`,
				item.ID, item.ProjectID, item.Type, item.Priority, item.Code,
				item.Name, item.Description, item.CompletedOn, item.Estimate,
				boolToInt(item.NonBillable), item.CreatedBy, item.CreatedAt, item.UpdatedAt,
			)
			if err != nil {
				item.ID = ""
				return fmt.Errorf("creating item: %w", err)
			}
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE items SET
					item_type = ?, priority = ?, code = ?, name = ?, description = ?,
					completed_on = ?, estimate = ?, non_billable = ?, updated_at = ?
				WHERE id = ?`,
				item.Type, item.Priority, item.Code, item.Name, item.Description,
				item.CompletedOn, item.Estimate, boolToInt(item.NonBillable), item.UpdatedAt,
				item.ID,
			)
			if err != nil {
				return fmt.Errorf("updating item %s: %w", item.ID, err)
			}
		}

		return recomputeProjectItems(ctx, tx, item.ProjectID, &counter, now)
	})
}

// DeleteItem removes an item with its comments and work logs, then
// recomputes the project's item rollups and totals.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var projectID string
		if err := tx.GetContext(ctx, &projectID,
			"SELECT project_id FROM items WHERE id = ?", id); err != nil {
			return notFound(err, "item", id)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting item %s: %w", id, err)
		}

		now := s.timestamp()
		if err := recomputeProjectItems(ctx, tx, projectID, nil, now); err != nil {
			return err
		}
		return recomputeProjectTotals(ctx, tx, projectID, now)
	})
}

// GetItemByID retrieves a single item by ID.
func (s *SQLiteStore) GetItemByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	err := s.db.GetContext(ctx, &item,
		"SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "item", id)
	}
	return &item, nil
}

// GetItemByCode retrieves an item by its code, ignoring case. Codes keep
// the project code they were allocated under.
func (s *SQLiteStore) GetItemByCode(ctx context.Context, code string) (*model.Item, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var item model.Item
	err := s.db.GetContext(ctx, &item,
		"SELECT "+itemColumns+" FROM items WHERE code = ? ORDER BY created_at LIMIT 1", code)
	if err != nil {
		return nil, notFound(err, "item", code)
	}
	return &item, nil
}

// GetItems retrieves the backlog of a project, most urgent first.
func (s *SQLiteStore) GetItems(
	ctx context.Context,
	projectID string,
	filter ItemFilter,
) ([]model.Item, error) {
	conditions := []string{"project_id = ?"}
	args := []interface{}{projectID}

	if filter.Status != nil {
		switch *filter.Status {
		case ItemStatusOpen:
			conditions = append(conditions, "completed_on IS NULL")
		case ItemStatusCompleted:
			conditions = append(conditions, "completed_on IS NOT NULL")
		}
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(code LIKE ? OR name LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT " + itemColumns + " FROM items WHERE " +
		strings.Join(conditions, " AND ") +
		" ORDER BY priority DESC, item_type ASC, code ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var items []model.Item
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	return items, nil
}
