package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestKeyedSerializesSameKey(t *testing.T) {
	k := NewKeyed()

	var inside, maxInside int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			unlock, err := k.Lock(context.Background(), "p1")
			if err != nil {
				return err
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, k.Len(), "entries should be released")
}

func TestKeyedIndependentKeys(t *testing.T) {
	k := NewKeyed()

	unlockA, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := k.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedTimeout(t *testing.T) {
	k := NewKeyed()

	unlock, err := k.Lock(context.Background(), "p1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, "p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 1, k.Len())
}

func TestKeyedCanceled(t *testing.T) {
	k := NewKeyed()

	unlock, err := k.Lock(context.Background(), "p1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = k.Lock(ctx, "p1")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestKeyedUnlockTwice(t *testing.T) {
	k := NewKeyed()

	unlock, err := k.Lock(context.Background(), "p1")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = k.Lock(context.Background(), "p1")
	require.NoError(t, err)
	unlock()
	assert.Zero(t, k.Len())
}

// memBackend is an in-memory Backend used to exercise Table.
type memBackend struct {
	mu     sync.Mutex
	owners map[string]string
	expiry map[string]time.Time
	now    func() time.Time

	releases int
}

func newMemBackend() *memBackend {
	return &memBackend{
		owners: make(map[string]string),
		expiry: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (b *memBackend) TryAcquireLock(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.owners[name]; ok && cur != owner && b.now().Before(b.expiry[name]) {
		return false, nil
	}
	b.owners[name] = owner
	b.expiry[name] = b.now().Add(ttl)
	return true, nil
}

func (b *memBackend) ReleaseLock(_ context.Context, name, owner string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releases++
	if b.owners[name] == owner {
		delete(b.owners, name)
		delete(b.expiry, name)
	}
	return nil
}

func TestTableWaitsForRelease(t *testing.T) {
	tbl := NewTable(newMemBackend(), time.Minute).WithRetryInterval(time.Millisecond)

	unlock, err := tbl.Lock(context.Background(), "p1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		u, err := tbl.Lock(context.Background(), "p1")
		if err == nil {
			u()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestTableTimeout(t *testing.T) {
	tbl := NewTable(newMemBackend(), time.Minute).WithRetryInterval(time.Millisecond)

	unlock, err := tbl.Lock(context.Background(), "p1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = tbl.Lock(ctx, "p1")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTableExpiredLeaseIsReclaimed(t *testing.T) {
	backend := newMemBackend()
	tbl := NewTable(backend, time.Millisecond).WithRetryInterval(time.Millisecond)

	_, err := tbl.Lock(context.Background(), "p1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := tbl.Lock(ctx, "p1")
	require.NoError(t, err)
	unlock()
}

func TestName(t *testing.T) {
	assert.Equal(t, "set-item-code:abc", Name("set-item-code", "abc"))
}

func TestTableUnlockFromManyGoroutinesReleasesOnce(t *testing.T) {
	backend := newMemBackend()
	tbl := NewTable(backend, time.Minute).WithRetryInterval(time.Millisecond)

	unlock, err := tbl.Lock(context.Background(), "p1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock()
		}()
	}
	wg.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.releases)
}
