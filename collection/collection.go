package collection

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
	"github.com/beaver-db/beaver/lock"
	"github.com/beaver-db/beaver/pkg/metrics"
	"github.com/beaver-db/beaver/vector"
)

// Document is one item indexed into a collection.
type Document struct {
	ID       string
	Vector   []float32
	Fields   map[string]string // flattened text, keyed by field name
	Metadata map[string]any
}

// Match is a ranked search result, shared across full-text and fuzzy
// result lists. Score is the FTS bm25 rank (MatchText) or the Levenshtein
// distance of the closest word (MatchFuzzy); in both lists a smaller
// Score is a better match, and only its relative ordering within one list
// is meaningful. Rerank works on plain id lists, not on Match values.
type Match struct {
	ID    string
	Score float64
}

// Direction selects which way edges are traversed during Walk.
type Direction int

const (
	Forward Direction = iota
	Backward
	Both
)

// Collection is the cached manager for one named document collection.
type Collection struct {
	db   *sql.DB
	name string
	Vec  *vector.Index

	mu *lock.Lock
}

// New wraps db with a collection manager named name.
func New(db *sql.DB, name string, compactionThreshold int) *Collection {
	return &Collection{
		db:   db,
		name: name,
		Vec:  vector.New(db, name, compactionThreshold),
		mu:   lock.New(db, "__collection__"+name, lock.Options{}),
	}
}

func flatten(fields map[string]string, on []string) string {
	if len(on) == 0 {
		parts := make([]string, 0, len(fields))
		for _, v := range fields {
			parts = append(parts, v)
		}
		return strings.Join(parts, " ")
	}
	parts := make([]string, 0, len(on))
	for _, field := range on {
		parts = append(parts, fields[field])
	}
	return strings.Join(parts, " ")
}

// Index writes doc into the vector, full-text, and trigram sub-structures
// under the collection's internal fair lock (the package doc says what
// that does and does not make atomic). fuzzy controls whether trigram rows are maintained for
// this document at all — callers that never intend to fuzzy-match can
// skip the extra rows.
func (c *Collection) Index(doc Document, fuzzy bool) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CollectionIndexSeconds, c.name)

	if err := c.mu.Acquire(0); err != nil {
		return err
	}
	defer c.mu.Release()

	if len(doc.Vector) > 0 {
		if err := c.Vec.Insert(doc.ID, doc.Vector, doc.Metadata); err != nil {
			return err
		}
	} else if doc.Metadata != nil {
		metaJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return errs.E("collection.Index", errs.KindInvalidArgument, err)
		}
		if _, err := c.db.Exec(
			`INSERT INTO `+schema.TableCollection+` (collection_name, item_id, metadata) VALUES (?, ?, ?)
			 ON CONFLICT(collection_name, item_id) DO UPDATE SET metadata = excluded.metadata`,
			c.name, doc.ID, metaJSON,
		); err != nil {
			return errs.E("collection.Index", errs.KindIOError, err)
		}
	}

	body := flatten(doc.Fields, nil)

	tx, err := c.db.Begin()
	if err != nil {
		return errs.E("collection.Index", errs.KindIOError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM `+schema.TableFTS+` WHERE collection_name = ? AND item_id = ?`,
		c.name, doc.ID,
	); err != nil {
		return errs.E("collection.Index", errs.KindIOError, err)
	}
	if body != "" {
		if _, err := tx.Exec(
			`INSERT INTO `+schema.TableFTS+` (collection_name, item_id, body) VALUES (?, ?, ?)`,
			c.name, doc.ID, body,
		); err != nil {
			return errs.E("collection.Index", errs.KindIOError, err)
		}
	}

	if _, err := tx.Exec(
		`DELETE FROM `+schema.TableTrigram+` WHERE collection_name = ? AND item_id = ?`,
		c.name, doc.ID,
	); err != nil {
		return errs.E("collection.Index", errs.KindIOError, err)
	}
	if fuzzy && body != "" {
		for tg := range uniqueTrigrams(body) {
			if _, err := tx.Exec(
				`INSERT INTO `+schema.TableTrigram+` (collection_name, trigram, item_id) VALUES (?, ?, ?)`,
				c.name, tg, doc.ID,
			); err != nil {
				return errs.E("collection.Index", errs.KindIOError, err)
			}
		}
	}

	return tx.Commit()
}

// Drop removes id from every sub-structure.
func (c *Collection) Drop(id string) error {
	if err := c.mu.Acquire(0); err != nil {
		return err
	}
	defer c.mu.Release()

	if err := c.Vec.Delete(id); err != nil {
		return err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return errs.E("collection.Drop", errs.KindIOError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM `+schema.TableFTS+` WHERE collection_name = ? AND item_id = ?`, c.name, id); err != nil {
		return errs.E("collection.Drop", errs.KindIOError, err)
	}
	if _, err := tx.Exec(`DELETE FROM `+schema.TableTrigram+` WHERE collection_name = ? AND item_id = ?`, c.name, id); err != nil {
		return errs.E("collection.Drop", errs.KindIOError, err)
	}
	return tx.Commit()
}

// MatchText runs a boolean full-text search, returning (id, rank) pairs
// ordered by the FTS engine's own ranking function (bm25, ascending —
// smaller is a better match).
func (c *Collection) MatchText(query string, k int) ([]Match, error) {
	rows, err := c.db.Query(
		`SELECT item_id, bm25(`+schema.TableFTS+`) AS rank FROM `+schema.TableFTS+`
		 WHERE collection_name = ? AND `+schema.TableFTS+` MATCH ? ORDER BY rank ASC LIMIT ?`,
		c.name, query, k,
	)
	if err != nil {
		return nil, errs.E("collection.MatchText", errs.KindIOError, err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, errs.E("collection.MatchText", errs.KindIOError, err)
		}
		out = append(out, Match{ID: id, Score: rank})
	}
	return out, rows.Err()
}

// Connect upserts a directed, weighted, labeled edge.
func (c *Collection) Connect(source, target, label string, weight float64, metadata map[string]any) error {
	var metaJSON []byte
	if metadata != nil {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return errs.E("collection.Connect", errs.KindInvalidArgument, err)
		}
	}
	_, err := c.db.Exec(
		`INSERT INTO `+schema.TableEdge+` (collection_name, source_id, target_id, label, weight, metadata) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(collection_name, source_id, target_id, label) DO UPDATE SET weight = excluded.weight, metadata = excluded.metadata`,
		c.name, source, target, label, weight, metaJSON,
	)
	if err != nil {
		return errs.E("collection.Connect", errs.KindIOError, err)
	}
	return nil
}

// Neighbors returns the one-hop forward targets of doc, optionally
// restricted to a single label.
func (c *Collection) Neighbors(doc string, label string) ([]string, error) {
	var rows *sql.Rows
	var err error
	if label == "" {
		rows, err = c.db.Query(
			`SELECT target_id FROM `+schema.TableEdge+` WHERE collection_name = ? AND source_id = ?`,
			c.name, doc,
		)
	} else {
		rows, err = c.db.Query(
			`SELECT target_id FROM `+schema.TableEdge+` WHERE collection_name = ? AND source_id = ? AND label = ?`,
			c.name, doc, label,
		)
	}
	if err != nil {
		return nil, errs.E("collection.Neighbors", errs.KindIOError, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.E("collection.Neighbors", errs.KindIOError, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Walk performs a set-based breadth-first search from source up to depth
// hops, optionally restricted to the given labels, in the given
// direction. The source itself is never included in the result.
func (c *Collection) Walk(source string, labels []string, depth int, dir Direction) ([]string, error) {
	if depth < 1 {
		return nil, errs.E("collection.Walk", errs.KindInvalidArgument, nil)
	}

	var adjSQL string
	var adjArgs []any
	labelClause, labelArgs := labelFilter(labels)

	switch dir {
	case Forward:
		adjSQL = `SELECT source_id AS src, target_id AS dst FROM ` + schema.TableEdge + ` WHERE collection_name = ?` + labelClause
		adjArgs = append(adjArgs, c.name)
		adjArgs = append(adjArgs, labelArgs...)
	case Backward:
		adjSQL = `SELECT target_id AS src, source_id AS dst FROM ` + schema.TableEdge + ` WHERE collection_name = ?` + labelClause
		adjArgs = append(adjArgs, c.name)
		adjArgs = append(adjArgs, labelArgs...)
	default: // Both
		adjSQL = `SELECT source_id AS src, target_id AS dst FROM ` + schema.TableEdge + ` WHERE collection_name = ?` + labelClause +
			` UNION ALL SELECT target_id AS src, source_id AS dst FROM ` + schema.TableEdge + ` WHERE collection_name = ?` + labelClause
		adjArgs = append(adjArgs, c.name)
		adjArgs = append(adjArgs, labelArgs...)
		adjArgs = append(adjArgs, c.name)
		adjArgs = append(adjArgs, labelArgs...)
	}

	query := `WITH RECURSIVE adj AS (` + adjSQL + `),
		bfs(id, d) AS (
			SELECT dst, 1 FROM adj WHERE src = ?
			UNION
			SELECT adj.dst, bfs.d + 1 FROM adj JOIN bfs ON adj.src = bfs.id WHERE bfs.d < ?
		)
		SELECT DISTINCT id FROM bfs WHERE id <> ?`

	args := append(append([]any{}, adjArgs...), source, depth, source)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, errs.E("collection.Walk", errs.KindIOError, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.E("collection.Walk", errs.KindIOError, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func labelFilter(labels []string) (string, []any) {
	if len(labels) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(labels))
	args := make([]any, len(labels))
	for i, l := range labels {
		placeholders[i] = "?"
		args[i] = l
	}
	return fmt.Sprintf(" AND label IN (%s)", strings.Join(placeholders, ", ")), args
}
