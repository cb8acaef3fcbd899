package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/project-tracker/internal/model"
)

const commentColumns = `id, item_id, body, created_by, created_at, updated_at`

// CreateComment inserts a new comment on an item.
func (s *SQLiteStore) CreateComment(ctx context.Context, comment *model.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	now := s.timestamp()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, item_id, body, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.ItemID, comment.Body,
		comment.CreatedBy, comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating comment: %w", err)
	}
	return nil
}

// UpdateComment replaces the body of an existing comment.
func (s *SQLiteStore) UpdateComment(ctx context.Context, comment *model.Comment) error {
	comment.UpdatedAt = s.timestamp()

	result, err := s.db.ExecContext(ctx,
		"UPDATE comments SET body = ?, updated_at = ? WHERE id = ?",
		comment.Body, comment.UpdatedAt, comment.ID,
	)
	if err != nil {
		return fmt.Errorf("updating comment %s: %w", comment.ID, err)
	}
	return checkAffected(result, "comment", comment.ID)
}

// DeleteComment removes a comment by ID.
func (s *SQLiteStore) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}
	return checkAffected(result, "comment", id)
}

// GetCommentByID retrieves a single comment by ID.
func (s *SQLiteStore) GetCommentByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	err := s.db.GetContext(ctx, &c,
		"SELECT "+commentColumns+" FROM comments WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "comment", id)
	}
	return &c, nil
}

// GetComments retrieves the comments of an item, newest first.
func (s *SQLiteStore) GetComments(ctx context.Context, itemID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.db.SelectContext(ctx, &comments,
		"SELECT "+commentColumns+" FROM comments WHERE item_id = ? ORDER BY created_at DESC, id",
		itemID)
	if err != nil {
		return nil, fmt.Errorf("querying comments of item %s: %w", itemID, err)
	}
	return comments, nil
}
