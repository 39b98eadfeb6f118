package tslog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaver-db/beaver/codec"
)

func TestBatchPreservesMonotonicityAcrossBufferedWrites(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "events", codec.String())

	b := l.Batch()
	b.Write("a", 5)
	b.Write("b", 3) // would collide with/precede "a" if applied standalone
	b.Write("c", 3)
	used, err := b.Close()
	require.NoError(t, err)
	require.Len(t, used, 3)

	assert.True(t, used[0] < used[1])
	assert.True(t, used[1] < used[2])

	events, err := l.Range(0, 100)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{events[0].Data, events[1].Data, events[2].Data})
}

func TestBatchRespectsExistingLastTimestamp(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "events", codec.String())
	_, err := l.Write("first", 10)
	require.NoError(t, err)

	b := l.Batch()
	b.Write("second", 1) // behind the log's last timestamp
	used, err := b.Close()
	require.NoError(t, err)
	require.Len(t, used, 1)
	assert.True(t, used[0] > 10)
}
