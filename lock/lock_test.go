package lock

import (
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, schema.Ensure(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReentrantAcquireReleaseSameInstance(t *testing.T) {
	db := openTestDB(t)
	l := New(db, "widgets", Options{})

	require.NoError(t, l.Acquire(time.Second))
	require.NoError(t, l.Acquire(time.Second))

	depth, _, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	require.NoError(t, l.Release())
	depth, _, err = l.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	require.NoError(t, l.Release())
	depth, _, err = l.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestReleaseWithoutHoldingIsInvalidArgument(t *testing.T) {
	db := openTestDB(t)
	l := New(db, "widgets", Options{})

	err := l.Release()
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindInvalidArgument))
}

func TestRenewWithoutHoldingIsInvalidArgument(t *testing.T) {
	db := openTestDB(t)
	l := New(db, "widgets", Options{})

	err := l.Renew()
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindInvalidArgument))
}

func TestSecondInstanceBlocksUntilFirstReleases(t *testing.T) {
	db := openTestDB(t)
	opts := Options{PollInterval: 5 * time.Millisecond}
	a := New(db, "widgets", opts)
	b := New(db, "widgets", opts)

	require.NoError(t, a.Acquire(time.Second))

	var bAcquired int32
	done := make(chan error, 1)
	go func() {
		err := b.Acquire(2 * time.Second)
		atomic.StoreInt32(&bAcquired, 1)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&bAcquired), "b should still be waiting")

	require.NoError(t, a.Release())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("b never acquired the lock after a released it")
	}
}

func TestTryAcquireFailsFastWhenHeld(t *testing.T) {
	db := openTestDB(t)
	opts := Options{PollInterval: 5 * time.Millisecond}
	a := New(db, "widgets", opts)
	b := New(db, "widgets", opts)

	require.NoError(t, a.Acquire(time.Second))

	ok, err := b.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release())

	ok, err = b.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Release())
}

func TestAcquireTimesOutWhenHeldForever(t *testing.T) {
	db := openTestDB(t)
	opts := Options{PollInterval: 5 * time.Millisecond, TTL: time.Minute}
	a := New(db, "widgets", opts)
	b := New(db, "widgets", opts)

	require.NoError(t, a.Acquire(time.Second))

	start := time.Now()
	err := b.Acquire(80 * time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindTimedOut))
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
}

// TestFairOrderingFIFO acquires with several waiters queued behind the
// holder and checks they are granted the lock in request order, not in
// whatever order their goroutines happen to wake up.
func TestFairOrderingFIFO(t *testing.T) {
	db := openTestDB(t)
	opts := Options{PollInterval: 2 * time.Millisecond, TTL: 10 * time.Second}

	holder := New(db, "queue-fair", opts)
	require.NoError(t, holder.Acquire(time.Second))

	const n = 5
	locks := make([]*Lock, n)
	order := make(chan int, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		locks[i] = New(db, "queue-fair", opts)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, locks[i].Acquire(5*time.Second))
			order <- i
			require.NoError(t, locks[i].Release())
		}(i)
		// stagger insertion so requested_at ordering is unambiguous.
		time.Sleep(10 * time.Millisecond)
	}

	require.NoError(t, holder.Release())
	wg.Wait()
	close(order)

	var got []int
	for i := range order {
		got = append(got, i)
	}
	require.Len(t, got, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i, got[i], "waiters should be granted the lock in FIFO request order")
	}
}

// TestCrashedHolderRowExpiresAndIsRecovered simulates a crashed holder by
// inserting a waiter row directly with an already-expired TTL, then checks
// a fresh acquirer is not blocked by it.
func TestCrashedHolderRowExpiresAndIsRecovered(t *testing.T) {
	db := openTestDB(t)
	now := nowSeconds()
	_, err := db.Exec(
		`INSERT INTO `+schema.TableLocks+` (lock_name, waiter_id, requested_at, expires_at) VALUES (?, ?, ?, ?)`,
		"crashed", "stale.1", now-10, now-5,
	)
	require.NoError(t, err)

	l := New(db, "crashed", Options{PollInterval: 5 * time.Millisecond})
	require.NoError(t, l.Acquire(time.Second))
	require.NoError(t, l.Release())
}
