package queue

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaver-db/beaver/codec"
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

type item struct {
	X string `json:"x"`
}

func TestPriorityThenFIFOOrdering(t *testing.T) {
	db := openTestDB(t)
	q := New[item](db, "jobs", codec.JSON[item](), Options{})

	require.NoError(t, q.Put(item{X: "a"}, 5))
	require.NoError(t, q.Put(item{X: "b"}, 1))
	require.NoError(t, q.Put(item{X: "c"}, 5))

	v1, err := q.Get(false, 0)
	require.NoError(t, err)
	v2, err := q.Get(false, 0)
	require.NoError(t, err)
	v3, err := q.Get(false, 0)
	require.NoError(t, err)

	assert.Equal(t, []item{{X: "b"}, {X: "a"}, {X: "c"}}, []item{v1, v2, v3})
}

func TestGetNonBlockingEmptyRaisesEmpty(t *testing.T) {
	db := openTestDB(t)
	q := New[item](db, "jobs", codec.JSON[item](), Options{})

	_, err := q.Get(false, 0)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindEmpty))
}

func TestGetBlockingTimesOut(t *testing.T) {
	db := openTestDB(t)
	q := New[item](db, "jobs", codec.JSON[item](), Options{PollInterval: 5 * time.Millisecond})

	start := time.Now()
	_, err := q.Get(true, 50*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindTimedOut))
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestGetBlockingWakesOnPut(t *testing.T) {
	db := openTestDB(t)
	q := New[item](db, "jobs", codec.JSON[item](), Options{PollInterval: 5 * time.Millisecond})

	result := make(chan item, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := q.Get(true, time.Second)
		if err != nil {
			errCh <- err
			return
		}
		result <- v
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Put(item{X: "late"}, 1))

	select {
	case v := <-result:
		assert.Equal(t, item{X: "late"}, v)
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("blocking Get never observed the put")
	}
}

// TestExclusiveDeliveryAcrossConcurrentGetters prefills 100 items and has
// several concurrent goroutines drain via non-blocking Get until Empty;
// every item must be delivered exactly once.
func TestExclusiveDeliveryAcrossConcurrentGetters(t *testing.T) {
	db := openTestDB(t)
	q := New[item](db, "jobs", codec.JSON[item](), Options{})

	const total = 100
	for i := 0; i < total; i++ {
		require.NoError(t, q.Put(item{X: string(rune('a' + i%26))}, 1))
	}

	var mu sync.Mutex
	var got []item
	var wg sync.WaitGroup
	for g := 0; g < 5; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, err := q.Get(false, 0)
				if err != nil {
					if errs.IsKind(err, errs.KindEmpty) {
						return
					}
					t.Errorf("unexpected error: %v", err)
					return
				}
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, got, total)
}

func TestClear(t *testing.T) {
	db := openTestDB(t)
	q := New[item](db, "jobs", codec.JSON[item](), Options{})
	require.NoError(t, q.Put(item{X: "a"}, 1))
	require.NoError(t, q.Clear())

	n, err := q.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
