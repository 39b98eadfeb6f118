package dict

import (
	"database/sql"
	"path/filepath"
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

type record struct {
	X int `json:"x"`
}

func TestSetGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	d := New[record](db, "config", codec.JSON[record]())

	require.NoError(t, d.Set("a", record{X: 1}, 0))
	v, err := d.Get("a")
	require.NoError(t, err)
	assert.Equal(t, record{X: 1}, v)
}

func TestGetMissingIsNotFound(t *testing.T) {
	db := openTestDB(t)
	d := New[record](db, "config", codec.JSON[record]())

	_, err := d.Get("nope")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestTTLExpiryIsSilent(t *testing.T) {
	db := openTestDB(t)
	d := New[record](db, "config", codec.JSON[record]())

	require.NoError(t, d.Set("a", record{X: 1}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := d.Get("a")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestDeleteAndKeys(t *testing.T) {
	db := openTestDB(t)
	d := New[record](db, "config", codec.JSON[record]())

	require.NoError(t, d.Set("a", record{X: 1}, 0))
	require.NoError(t, d.Set("b", record{X: 2}, 0))

	keys, err := d.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	require.NoError(t, d.Delete("a"))
	keys, err = d.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestSetOverwritesExistingKey(t *testing.T) {
	db := openTestDB(t)
	d := New[record](db, "config", codec.JSON[record]())

	require.NoError(t, d.Set("a", record{X: 1}, 0))
	require.NoError(t, d.Set("a", record{X: 2}, 0))

	v, err := d.Get("a")
	require.NoError(t, err)
	assert.Equal(t, record{X: 2}, v)
}
