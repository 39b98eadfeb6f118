package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaver-db/beaver/codec"
	"github.com/beaver-db/beaver/errs"
)

func TestBatchAppliesOnClose(t *testing.T) {
	db := openTestDB(t)
	d := New[record](db, "config", codec.JSON[record]())

	b := d.Batch()
	b.Set("a", record{X: 1}, 0)
	b.Set("b", record{X: 2}, 0)

	// Nothing is visible until Close commits the batch.
	_, err := d.Get("a")
	require.True(t, errs.IsKind(err, errs.KindNotFound))

	require.NoError(t, b.Close())

	va, err := d.Get("a")
	require.NoError(t, err)
	assert.Equal(t, record{X: 1}, va)

	vb, err := d.Get("b")
	require.NoError(t, err)
	assert.Equal(t, record{X: 2}, vb)
}

func TestBatchDeleteAndEmptyClose(t *testing.T) {
	db := openTestDB(t)
	d := New[record](db, "config", codec.JSON[record]())
	require.NoError(t, d.Set("a", record{X: 1}, 0))

	b := d.Batch()
	b.Delete("a")
	require.NoError(t, b.Close())

	_, err := d.Get("a")
	require.True(t, errs.IsKind(err, errs.KindNotFound))

	// Closing an empty batch is a no-op, not an error.
	require.NoError(t, d.Batch().Close())
}
