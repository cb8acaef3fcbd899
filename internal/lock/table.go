package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Backend stores advisory locks. TryAcquireLock must atomically take the
// named lock for owner if it is free or its previous holder's lease has
// expired, and report whether it did.
type Backend interface {
	TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

// DefaultRetryInterval is how often Table polls a busy lock.
const DefaultRetryInterval = 25 * time.Millisecond

// Table is a Locker backed by a lock table, for processes sharing one
// database. Leases expire after ttl so a crashed holder cannot block
// others forever.
type Table struct {
	backend Backend
	ttl     time.Duration
	retry   time.Duration
}

// NewTable creates a table-backed locker.
func NewTable(b Backend, ttl time.Duration) *Table {
	return &Table{backend: b, ttl: ttl, retry: DefaultRetryInterval}
}

// WithRetryInterval overrides the polling interval.
func (t *Table) WithRetryInterval(d time.Duration) *Table {
	t.retry = d
	return t
}

// Lock implements Locker.
func (t *Table) Lock(ctx context.Context, key string) (func(), error) {
	owner := uuid.NewString()

	ticker := time.NewTicker(t.retry)
	defer ticker.Stop()

	for {
		ok, err := t.backend.TryAcquireLock(ctx, key, owner, t.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquiring lock %q: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, acquireError(ctx, key)
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// An expired lease is reclaimed by the next acquirer, so a failed
			// release only delays other writers until the TTL passes.
			_ = t.backend.ReleaseLock(context.Background(), key, owner)
		})
	}, nil
}
