package store

import (
	"context"
	"fmt"
	"time"
)

// TryAcquireLock takes the named lease for owner when it is free, expired
// or already held by owner, extending it by ttl. It reports whether the
// lease is now held.
func (s *SQLiteStore) TryAcquireLock(
	ctx context.Context,
	name, owner string,
	ttl time.Duration,
) (bool, error) {
	now := s.now().UnixNano()
	expires := now + ttl.Nanoseconds()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO locks (name, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			owner = excluded.owner,
			expires_at = excluded.expires_at
		WHERE locks.expires_at < ? OR locks.owner = excluded.owner`,
		name, owner, expires, now,
	)
	if err != nil {
		return false, fmt.Errorf("acquiring lock %s: %w", name, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return rows > 0, nil
}

// ReleaseLock drops the named lease if owner still holds it.
func (s *SQLiteStore) ReleaseLock(ctx context.Context, name, owner string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM locks WHERE name = ? AND owner = ?", name, owner)
	if err != nil {
		return fmt.Errorf("releasing lock %s: %w", name, err)
	}
	return nil
}
