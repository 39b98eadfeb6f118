package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaver-db/beaver/errs"
)

func TestBatchPutAndDelete(t *testing.T) {
	db := openTestDB(t)
	s := New(db, "uploads")
	require.NoError(t, s.Put("stale", []byte("old"), nil))

	b := s.Batch()
	b.Put("one", []byte("1"), map[string]any{"n": float64(1)})
	b.Put("two", []byte("2"), nil)
	b.Delete("stale")
	require.NoError(t, b.Close())

	data, meta, err := s.Get("one")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), data)
	assert.Equal(t, map[string]any{"n": float64(1)}, meta)

	_, _, err = s.Get("stale")
	require.True(t, errs.IsKind(err, errs.KindNotFound))
}
