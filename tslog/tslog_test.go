package tslog

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaver-db/beaver/codec"
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

func TestMonotonicityBumpsDecreasingTimestamps(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "events", codec.String())

	t1, err := l.Write("a", 10)
	require.NoError(t, err)
	t2, err := l.Write("b", 5)
	require.NoError(t, err)
	t3, err := l.Write("c", 1)
	require.NoError(t, err)

	assert.Equal(t, 10.0, t1)
	assert.Greater(t, t2, t1)
	assert.Greater(t, t3, t2)

	events, err := l.Range(0, 100)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{events[0].Data, events[1].Data, events[2].Data})
}

func TestRangeIsHalfOpen(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "events", codec.String())

	_, err := l.Write("a", 1)
	require.NoError(t, err)
	_, err = l.Write("b", 2)
	require.NoError(t, err)
	_, err = l.Write("c", 3)
	require.NoError(t, err)

	events, err := l.Range(1, 3)
	require.NoError(t, err)
	var data []string
	for _, e := range events {
		data = append(data, e.Data)
	}
	assert.Equal(t, []string{"a", "b"}, data)
}

func TestLivePublishesAggregatedWindow(t *testing.T) {
	db := openTestDB(t)
	l := New[int](db, "counters", codec.JSON[int]())

	now := float64(time.Now().UnixNano()) / 1e9
	_, err := l.Write(1, now)
	require.NoError(t, err)
	_, err = l.Write(2, now)
	require.NoError(t, err)

	it := Live(l, time.Minute, 20*time.Millisecond, func(events []Event[int]) int {
		sum := 0
		for _, e := range events {
			sum += e.Data
		}
		return sum
	})
	defer it.Stop()

	select {
	case v := <-it.Values():
		assert.Equal(t, 3, v)
	case <-time.After(time.Second):
		t.Fatal("live iterator never published a value")
	}
}

func TestLiveStopJoinsGoroutine(t *testing.T) {
	db := openTestDB(t)
	l := New[int](db, "counters", codec.JSON[int]())

	it := Live(l, time.Minute, 10*time.Millisecond, func(events []Event[int]) int { return len(events) })
	<-it.Values()
	it.Stop()
}
