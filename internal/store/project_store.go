package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/project-tracker/internal/model"
)

const projectColumns = `
	id, owner_type, owner_id, name, code, status, project_type, description,
	deadline, started_on, completed_on, fixed_price, hourly_rate,
	item_increment_id, open_items, completed_items,
	total_items_estimate, total_worked, total_billed,
	created_by, created_at, updated_at`

// projectRow adds the owner reference columns to model.Project.
type projectRow struct {
	model.Project
	OwnerType sql.NullString `db:"owner_type"`
	OwnerID   sql.NullInt64  `db:"owner_id"`
}

func (r projectRow) toModel() model.Project {
	p := r.Project
	if r.OwnerType.Valid && r.OwnerID.Valid {
		p.Owner = &model.ObjectRef{Type: r.OwnerType.String, ID: r.OwnerID.Int64}
	}
	return p
}

// ownerColumns splits the owner reference into nullable column values.
func ownerColumns(ref *model.ObjectRef) (sql.NullString, sql.NullInt64) {
	if ref == nil {
		return sql.NullString{}, sql.NullInt64{}
	}
	return sql.NullString{String: ref.Type, Valid: true},
		sql.NullInt64{Int64: ref.ID, Valid: true}
}

// normalizeProject applies the stored form of user-editable fields.
func normalizeProject(p *model.Project) {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	p.Name = strings.TrimSpace(p.Name)
	if p.Status == 0 {
		p.Status = model.ProjectStatusDraft
	}
	if p.Type == 0 {
		p.Type = model.ProjectTypeFixed
	}
	p.Deadline = dateOnly(p.Deadline)
	p.StartedOn = dateOnly(p.StartedOn)
	p.CompletedOn = dateOnly(p.CompletedOn)
}

// checkCodeFree returns ErrDuplicateCode when another project uses code.
func checkCodeFree(ctx context.Context, tx *sqlx.Tx, code, exceptID string) error {
	var count int
	err := tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM projects WHERE code = ? AND id != ?", code, exceptID)
	if err != nil {
		return fmt.Errorf("checking project code: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%s: %w", code, ErrDuplicateCode)
	}
	return nil
}

// checkCodeKept returns ErrCodeInUse when code would rename a project that
// has already allocated item codes. Item codes embed the project code, so a
// rename would leave them pointing at a code another project could take.
func checkCodeKept(ctx context.Context, tx *sqlx.Tx, id, code string) error {
	var current struct {
		Code            string `db:"code"`
		ItemIncrementID int    `db:"item_increment_id"`
	}
	err := tx.GetContext(ctx, &current,
		"SELECT code, item_increment_id FROM projects WHERE id = ?", id)
	if err != nil {
		return notFound(err, "project", id)
	}
	if current.Code != code && current.ItemIncrementID > 0 {
		return fmt.Errorf("%s: %w", current.Code, ErrCodeInUse)
	}
	return nil
}

// CreateProject inserts a new project. The code is stored upper-cased and
// must be unique. Rollups and the item counter start at zero.
func (s *SQLiteStore) CreateProject(ctx context.Context, project *model.Project) error {
	normalizeProject(project)
	if project.Name == "" {
		return fmt.Errorf("project name must not be empty")
	}
	if project.Code == "" {
		return fmt.Errorf("project code must not be empty")
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	now := s.timestamp()
	project.CreatedAt = now
	project.UpdatedAt = now
	project.ItemIncrementID = 0
	project.OpenItems = 0
	project.CompletedItems = 0
	project.TotalItemsEstimate = 0
	project.TotalWorked = 0
	project.TotalBilled = 0

	ownerType, ownerID := ownerColumns(project.Owner)

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkCodeFree(ctx, tx, project.Code, project.ID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (
				id, owner_type, owner_id, name, code, status, project_type, description,
				deadline, started_on, completed_on, fixed_price, hourly_rate,
				created_by, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			project.ID, ownerType, ownerID, project.Name, project.Code,
			project.Status, project.Type, project.Description,
			project.Deadline, project.StartedOn, project.CompletedOn,
			project.FixedPrice, project.HourlyRate,
			project.CreatedBy, project.CreatedAt, project.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		return nil
	})
}

// UpdateProject updates the editable fields of an existing project. The
// item counter and rollups are left untouched.
func (s *SQLiteStore) UpdateProject(ctx context.Context, project *model.Project) error {
	normalizeProject(project)
	if project.Name == "" {
		return fmt.Errorf("project name must not be empty")
	}
	if project.Code == "" {
		return fmt.Errorf("project code must not be empty")
	}
	project.UpdatedAt = s.timestamp()

	ownerType, ownerID := ownerColumns(project.Owner)

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkCodeKept(ctx, tx, project.ID, project.Code); err != nil {
			return err
		}
		if err := checkCodeFree(ctx, tx, project.Code, project.ID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE projects SET
				owner_type = ?, owner_id = ?, name = ?, code = ?, status = ?,
				project_type = ?, description = ?, deadline = ?, started_on = ?,
				completed_on = ?, fixed_price = ?, hourly_rate = ?, updated_at = ?
			WHERE id = ?`,
			ownerType, ownerID, project.Name, project.Code, project.Status,
			project.Type, project.Description, project.Deadline, project.StartedOn,
			project.CompletedOn, project.FixedPrice, project.HourlyRate, project.UpdatedAt,
			project.ID,
		)
		if err != nil {
			return fmt.Errorf("updating project %s: %w", project.ID, err)
		}
		return checkAffected(result, "project", project.ID)
	})
}

// DeleteProject removes a project. Items, comments and work logs cascade.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	return checkAffected(result, "project", id)
}

// GetProjectByID retrieves a single project by ID.
func (s *SQLiteStore) GetProjectByID(
	ctx context.Context,
	id string,
) (*model.Project, error) {
	return getProject(ctx, s.db, "id", id)
}

// GetProjectByCode retrieves a single project by its code, ignoring case.
func (s *SQLiteStore) GetProjectByCode(
	ctx context.Context,
	code string,
) (*model.Project, error) {
	return getProject(ctx, s.db, "code", strings.ToUpper(strings.TrimSpace(code)))
}

func getProject(ctx context.Context, q sqlx.QueryerContext, column, value string) (*model.Project, error) {
	var row projectRow
	query := "SELECT " + projectColumns + " FROM projects WHERE " + column + " = ?"
	if err := sqlx.GetContext(ctx, q, &row, query, value); err != nil {
		return nil, notFound(err, "project", value)
	}
	p := row.toModel()
	return &p, nil
}

// GetProjects retrieves projects matching the filter.
func (s *SQLiteStore) GetProjects(
	ctx context.Context,
	filter ProjectFilter,
) ([]model.Project, error) {
	var conditions []string
	var args []interface{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, st)
		}
		conditions = append(conditions,
			"status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(name LIKE ? OR code LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT " + projectColumns + " FROM projects"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "code"
	if filter.SortBy != "" {
		allowedSorts := map[string]bool{
			"name":       true,
			"code":       true,
			"status":     true,
			"deadline":   true,
			"created_at": true,
		}
		if allowedSorts[filter.SortBy] {
			sortBy = filter.SortBy
		}
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var rows []projectRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}

	projects := make([]model.Project, len(rows))
	for i, r := range rows {
		projects[i] = r.toModel()
	}
	return projects, nil
}
