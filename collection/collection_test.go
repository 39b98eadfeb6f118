package collection

import (
	"database/sql"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func matchIDs(m []Match) []string {
	out := make([]string, len(m))
	for i, x := range m {
		out[i] = x.ID
	}
	return out
}

// assertOrdered fails the test with a readable diff when got doesn't
// match want exactly, order included (vector/FTS ranking).
func assertOrdered(t *testing.T, want, got []string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result order mismatch (-want +got):\n%s", diff)
	}
}

// assertSameSet fails the test with a readable diff when got doesn't
// contain the same elements as want, ignoring order (graph walk sets).
func assertSameSet(t *testing.T, want, got []string) {
	t.Helper()
	w := append([]string(nil), want...)
	g := append([]string(nil), got...)
	sort.Strings(w)
	sort.Strings(g)
	if diff := cmp.Diff(w, g); diff != "" {
		t.Errorf("result set mismatch (-want +got):\n%s", diff)
	}
}

// TestRAGScenario is S1: index three documents with vectors and text,
// search by vector similarity, then full-text match.
func TestRAGScenario(t *testing.T) {
	db := openTestDB(t)
	col := New(db, "docs", 0)

	require.NoError(t, col.Index(Document{
		ID: "1", Vector: []float32{0.1, 0.2, 0.7},
		Fields: map[string]string{"body": "a document about cats and dogs"},
	}, false))
	require.NoError(t, col.Index(Document{
		ID: "2", Vector: []float32{0.9, 0.1, 0.1},
		Fields: map[string]string{"body": "a document about cars"},
	}, false))
	require.NoError(t, col.Index(Document{
		ID: "3", Vector: []float32{0.5, 0.5, 0.0},
		Fields: map[string]string{"body": "cat grooming tips"},
	}, false))

	results, err := col.Vec.Search([]float32{0.15, 0.25, 0.65}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assertOrdered(t, []string{"1", "3"}, []string{results[0].ID, results[1].ID})

	textResults, err := col.MatchText("cat", 10)
	require.NoError(t, err)
	assertSameSet(t, []string{"1", "3"}, matchIDs(textResults))
}

// TestFuzzyScenario is S5.
func TestFuzzyScenario(t *testing.T) {
	db := openTestDB(t)
	col := New(db, "docs", 0)

	require.NoError(t, col.Index(Document{
		ID:     "1",
		Fields: map[string]string{"body": "python database"},
	}, true))

	close, err := col.MatchFuzzy("pythn", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, matchIDs(close))

	farOff, err := col.MatchFuzzy("jva", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, farOff)
}

func TestRerankLawFirstInEveryListIsFirstInFusion(t *testing.T) {
	listA := []string{"x", "a", "b"}
	listB := []string{"x", "c", "d"}
	listC := []string{"x", "e"}

	result := Rerank(60, listA, listB, listC)
	require.NotEmpty(t, result)
	assert.Equal(t, "x", result[0])
}

func TestGraphWalkCorrectness(t *testing.T) {
	db := openTestDB(t)
	col := New(db, "docs", 0)

	require.NoError(t, col.Connect("a", "b", "link", 1, nil))
	require.NoError(t, col.Connect("b", "c", "link", 1, nil))
	require.NoError(t, col.Connect("c", "d", "link", 1, nil))

	depth2, err := col.Walk("a", nil, 2, Forward)
	require.NoError(t, err)
	assertSameSet(t, []string{"b", "c"}, depth2)

	depth3, err := col.Walk("a", nil, 3, Forward)
	require.NoError(t, err)
	assertSameSet(t, []string{"b", "c", "d"}, depth3)
}

func TestGraphWalkHandlesCycles(t *testing.T) {
	db := openTestDB(t)
	col := New(db, "docs", 0)

	require.NoError(t, col.Connect("a", "b", "link", 1, nil))
	require.NoError(t, col.Connect("b", "a", "link", 1, nil))

	result, err := col.Walk("a", nil, 5, Forward)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, result)
}

func TestNeighborsOneHop(t *testing.T) {
	db := openTestDB(t)
	col := New(db, "docs", 0)

	require.NoError(t, col.Connect("a", "b", "friend", 1, nil))
	require.NoError(t, col.Connect("a", "c", "enemy", 1, nil))

	friends, err := col.Neighbors("a", "friend")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, friends)

	all, err := col.Neighbors("a", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, all)
}

func TestDropRemovesFromAllSubstructures(t *testing.T) {
	db := openTestDB(t)
	col := New(db, "docs", 0)

	require.NoError(t, col.Index(Document{
		ID: "1", Vector: []float32{1, 0, 0},
		Fields: map[string]string{"body": "searchable text"},
	}, true))

	require.NoError(t, col.Drop("1"))

	textResults, err := col.MatchText("searchable", 10)
	require.NoError(t, err)
	assert.Empty(t, textResults)

	vecResults, err := col.Vec.Search([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, vecResults)
}
