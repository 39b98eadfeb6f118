package list

import (
	"database/sql"
	"path/filepath"
	"testing"

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

func TestPushPrependInsertOrder(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "letters", codec.String())

	require.NoError(t, l.Push("A"))
	require.NoError(t, l.Push("B"))
	require.NoError(t, l.Push("C"))
	require.NoError(t, l.Prepend("D"))

	all, err := l.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "A", "B", "C"}, all)

	require.NoError(t, l.Insert(1, "E"))
	all, err = l.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "E", "A", "B", "C"}, all)
}

func TestInsertOrderKeyIsBetweenNeighbors(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "letters", codec.String())

	require.NoError(t, l.Push("A"))
	require.NoError(t, l.Push("B"))
	require.NoError(t, l.Insert(1, "E"))

	rows, err := db.Query(
		`SELECT value, order_key FROM `+schema.TableList+` WHERE list_name = ? ORDER BY order_key ASC`,
		"letters",
	)
	require.NoError(t, err)
	defer rows.Close()

	var keys []float64
	var values []string
	for rows.Next() {
		var v string
		var k float64
		require.NoError(t, rows.Scan(&v, &k))
		values = append(values, v)
		keys = append(keys, k)
	}
	require.Equal(t, []string{"A", "E", "B"}, values)
	assert.Greater(t, keys[1], keys[0])
	assert.Less(t, keys[1], keys[2])
}

func TestGetAndRemove(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "letters", codec.String())
	require.NoError(t, l.Push("A"))
	require.NoError(t, l.Push("B"))
	require.NoError(t, l.Push("C"))

	v, err := l.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "B", v)

	require.NoError(t, l.Remove(1))
	all, err := l.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, all)
}

func TestLen(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "letters", codec.String())
	n, err := l.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, l.Push("A"))
	n, err = l.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsertBeyondEndAppends(t *testing.T) {
	db := openTestDB(t)
	l := New[string](db, "letters", codec.String())
	require.NoError(t, l.Push("A"))
	require.NoError(t, l.Insert(50, "Z"))

	all, err := l.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "Z"}, all)
}
