// Package lock provides mutual exclusion keyed by name.
//
// Item code allocation takes a lock named after the owning project so that
// the read-increment-write of the project's sequence counter never
// interleaves with another writer. Two implementations are provided:
// Keyed serializes goroutines of one process, Table coordinates several
// processes sharing a database through a lock table.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrTimeout is returned when a lock could not be acquired before the
// context deadline.
var ErrTimeout = errors.New("lock acquisition timed out")

// Locker acquires exclusive locks by key. Lock blocks until the lock is
// held or ctx is done. The returned function releases the lock and is
// safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Name builds a lock key from a scope and an identifier, for example
// Name("set-item-code", projectID).
func Name(scope, id string) string {
	return scope + ":" + id
}

// acquireError converts a done context into the error returned to callers.
func acquireError(ctx context.Context, key string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("acquiring lock %q: %w", key, ErrTimeout)
	}
	return fmt.Errorf("acquiring lock %q: %w", key, ctx.Err())
}

// Keyed is an in-process Locker. Each key gets a one-slot semaphore that
// is dropped again once no goroutine holds or waits for it.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// NewKeyed creates an empty in-process locker.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*keyedEntry)}
}

// Lock implements Locker.
func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, acquireError(ctx, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.release(key, e)
		})
	}, nil
}

func (k *Keyed) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
