package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// itemAggregates are the item-derived rollups of a project.
type itemAggregates struct {
	OpenItems          int     `db:"open_items"`
	CompletedItems     int     `db:"completed_items"`
	TotalItemsEstimate float64 `db:"total_items_estimate"`
}

// workTotals sums worked and billed hours.
type workTotals struct {
	Worked float64 `db:"worked"`
	Billed float64 `db:"billed"`
}

// recomputeProjectItems rewrites the open/completed counts and the open
// estimate sum of a project. When counter is non-nil the sequence counter
// is written too.
func recomputeProjectItems(
	ctx context.Context,
	tx *sqlx.Tx,
	projectID string,
	counter *int,
	now time.Time,
) error {
	var agg itemAggregates
	err := tx.GetContext(ctx, &agg, `
		SELECT
			COALESCE(SUM(CASE WHEN completed_on IS NULL THEN 1 ELSE 0 END), 0) AS open_items,
			COALESCE(SUM(CASE WHEN completed_on IS NOT NULL THEN 1 ELSE 0 END), 0) AS completed_items,
			COALESCE(SUM(CASE WHEN completed_on IS NULL THEN COALESCE(estimate, 0) ELSE 0 END), 0) AS total_items_estimate
		FROM items WHERE project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("aggregating items of project %s: %w", projectID, err)
	}

	query := `UPDATE projects SET
		open_items = ?, completed_items = ?, total_items_estimate = ?, updated_at = ?`
	args := []interface{}{agg.OpenItems, agg.CompletedItems, agg.TotalItemsEstimate, now}
	if counter != nil {
		query += ", item_increment_id = ?"
		args = append(args, *counter)
	}
	query += " WHERE id = ?"
	args = append(args, projectID)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating item rollups of project %s: %w", projectID, err)
	}
	return checkAffected(result, "project", projectID)
}

// recomputeProjectTotals sets a project's worked and billed totals to the
// sum of its items' cached totals.
func recomputeProjectTotals(ctx context.Context, tx *sqlx.Tx, projectID string, now time.Time) error {
	var totals workTotals
	err := tx.GetContext(ctx, &totals, `
		SELECT
			COALESCE(SUM(total_worked), 0) AS worked,
			COALESCE(SUM(total_billed), 0) AS billed
		FROM items WHERE project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("summing item totals of project %s: %w", projectID, err)
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE projects SET total_worked = ?, total_billed = ?, updated_at = ? WHERE id = ?",
		totals.Worked, totals.Billed, now, projectID)
	if err != nil {
		return fmt.Errorf("updating totals of project %s: %w", projectID, err)
	}
	return checkAffected(result, "project", projectID)
}

// otherWorkLogTotals sums the work logs of an item, leaving out excludeID.
// An empty excludeID sums every log.
func otherWorkLogTotals(ctx context.Context, tx *sqlx.Tx, itemID, excludeID string) (workTotals, error) {
	var totals workTotals
	err := tx.GetContext(ctx, &totals, `
		SELECT
			COALESCE(SUM(worked), 0) AS worked,
			COALESCE(SUM(COALESCE(billed, 0)), 0) AS billed
		FROM worklogs WHERE item_id = ? AND id != ?`, itemID, excludeID)
	if err != nil {
		return workTotals{}, fmt.Errorf("summing work logs of item %s: %w", itemID, err)
	}
	return totals, nil
}

// writeItemTotals stores the worked and billed totals of an item.
func writeItemTotals(ctx context.Context, tx *sqlx.Tx, itemID string, worked, billed float64, now time.Time) error {
	result, err := tx.ExecContext(ctx,
		"UPDATE items SET total_worked = ?, total_billed = ?, updated_at = ? WHERE id = ?",
		worked, billed, now, itemID)
	if err != nil {
		return fmt.Errorf("updating totals of item %s: %w", itemID, err)
	}
	return checkAffected(result, "item", itemID)
}

// recomputeItemTotals rebuilds an item's totals from its stored work
// logs. Non-billable items always carry a zero billed total.
func recomputeItemTotals(ctx context.Context, tx *sqlx.Tx, itemID string, now time.Time) (projectID string, err error) {
	var item struct {
		ProjectID   string `db:"project_id"`
		NonBillable bool   `db:"non_billable"`
	}
	if err := tx.GetContext(ctx, &item,
		"SELECT project_id, non_billable FROM items WHERE id = ?", itemID); err != nil {
		return "", notFound(err, "item", itemID)
	}

	totals, err := otherWorkLogTotals(ctx, tx, itemID, "")
	if err != nil {
		return "", err
	}
	if item.NonBillable {
		totals.Billed = 0
	}
	if err := writeItemTotals(ctx, tx, itemID, totals.Worked, totals.Billed, now); err != nil {
		return "", err
	}
	return item.ProjectID, nil
}

// RecomputeItem rebuilds an item's totals from its work logs and then the
// totals of its project.
func (s *SQLiteStore) RecomputeItem(ctx context.Context, itemID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := s.timestamp()
		projectID, err := recomputeItemTotals(ctx, tx, itemID, now)
		if err != nil {
			return err
		}
		return recomputeProjectTotals(ctx, tx, projectID, now)
	})
}

// RecomputeProject rebuilds every rollup of a project from its leaf rows.
// The sequence counter is left alone.
func (s *SQLiteStore) RecomputeProject(ctx context.Context, projectID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := s.timestamp()

		var itemIDs []string
		if err := tx.SelectContext(ctx, &itemIDs,
			"SELECT id FROM items WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("listing items of project %s: %w", projectID, err)
		}
		for _, id := range itemIDs {
			if _, err := recomputeItemTotals(ctx, tx, id, now); err != nil {
				return err
			}
		}

		if err := recomputeProjectItems(ctx, tx, projectID, nil, now); err != nil {
			return err
		}
		return recomputeProjectTotals(ctx, tx, projectID, now)
	})
}
