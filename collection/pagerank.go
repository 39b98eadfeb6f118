package collection

import (
	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
)

// PageRank computes a weighted PageRank score for every node with at
// least one edge in this collection, using power iteration. It is an
// optional extension, not part of the core graph contract — callers who
// only need Connect/Neighbors/Walk can ignore it entirely.
func (c *Collection) PageRank(damping float64, iterations int) (map[string]float64, error) {
	if damping <= 0 || damping >= 1 {
		damping = 0.85
	}
	if iterations <= 0 {
		iterations = 20
	}

	rows, err := c.db.Query(
		`SELECT source_id, target_id, weight FROM `+schema.TableEdge+` WHERE collection_name = ?`,
		c.name,
	)
	if err != nil {
		return nil, errs.E("collection.PageRank", errs.KindIOError, err)
	}
	defer rows.Close()

	type edge struct {
		src, dst string
		weight   float64
	}
	var edges []edge
	nodes := make(map[string]struct{})
	outWeight := make(map[string]float64)

	for rows.Next() {
		var e edge
		if err := rows.Scan(&e.src, &e.dst, &e.weight); err != nil {
			return nil, errs.E("collection.PageRank", errs.KindIOError, err)
		}
		edges = append(edges, e)
		nodes[e.src] = struct{}{}
		nodes[e.dst] = struct{}{}
		outWeight[e.src] += e.weight
	}
	if err := rows.Err(); err != nil {
		return nil, errs.E("collection.PageRank", errs.KindIOError, err)
	}

	n := len(nodes)
	if n == 0 {
		return map[string]float64{}, nil
	}

	rank := make(map[string]float64, n)
	for id := range nodes {
		rank[id] = 1.0 / float64(n)
	}

	for iter := 0; iter < iterations; iter++ {
		next := make(map[string]float64, n)
		for id := range nodes {
			next[id] = (1 - damping) / float64(n)
		}
		for _, e := range edges {
			if outWeight[e.src] == 0 {
				continue
			}
			next[e.dst] += damping * rank[e.src] * (e.weight / outWeight[e.src])
		}
		rank = next
	}

	return rank, nil
}
