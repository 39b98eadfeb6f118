package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaver-db/beaver/codec"
)

func TestBatchPushAndPrependOrder(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "letters", codec.String())

	b := l.Batch()
	b.Push("a")
	b.Push("b")
	b.Prepend("z")
	b.Prepend("y")
	require.NoError(t, b.Close())

	all, err := l.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z", "a", "b"}, all)
}

func TestBatchKeysConsecutiveAroundExisting(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "letters", codec.String())
	require.NoError(t, l.Push("mid"))

	b := l.Batch()
	b.Push("tail1")
	b.Push("tail2")
	b.Prepend("head1")
	b.Prepend("head2")
	require.NoError(t, b.Close())

	all, err := l.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"head2", "head1", "mid", "tail1", "tail2"}, all)
}
