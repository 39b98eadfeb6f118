package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchIndexAndDrop(t *testing.T) {
	db := openTestDB(t)
	col := New(db, "docs", 0)
	require.NoError(t, col.Index(Document{ID: "stale", Vector: []float32{1, 0, 0}}, false))

	b := col.Batch()
	b.Index(Document{ID: "1", Vector: []float32{0.1, 0.2, 0.7}}, false)
	b.Index(Document{ID: "2", Vector: []float32{0.9, 0.1, 0.1}}, false)
	b.Drop("stale")
	require.NoError(t, b.Close())

	results, err := col.Vec.Search([]float32{0.1, 0.2, 0.7}, 10)
	require.NoError(t, err)
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.Contains(t, ids, "1")
	assert.Contains(t, ids, "2")
	assert.NotContains(t, ids, "stale")
}
