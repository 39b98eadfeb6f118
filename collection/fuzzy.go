package collection

import (
	"math"
	"sort"
	"strings"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
)

func uniqueTrigrams(s string) map[string]struct{} {
	s = strings.ToLower(s)
	r := []rune(s)
	out := make(map[string]struct{})
	if len(r) < 3 {
		if len(r) > 0 {
			out[string(r)] = struct{}{}
		}
		return out
	}
	for i := 0; i+3 <= len(r); i++ {
		out[string(r[i:i+3])] = struct{}{}
	}
	return out
}

// levenshtein computes the classic edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// closestWordDistance is the minimum Levenshtein distance between query
// and any single whitespace-delimited token of body — fuzzy matching is
// meant to tolerate a typo within one word, not line up the query
// against an entire flattened document.
func closestWordDistance(query, body string) int {
	query = strings.ToLower(query)
	best := -1
	for _, word := range strings.Fields(strings.ToLower(body)) {
		d := levenshtein(query, word)
		if best == -1 || d < best {
			best = d
		}
	}
	if best == -1 {
		return levenshtein(query, strings.ToLower(body))
	}
	return best
}

// MatchFuzzy finds documents whose flattened text contains a word within
// fuzziness edit-distance steps of query, using trigram candidate
// generation followed by word-level Levenshtein verification (see
// closestWordDistance) over a bounded fan-out.
func (c *Collection) MatchFuzzy(query string, fuzziness int, k int) ([]Match, error) {
	queryTrigrams := uniqueTrigrams(query)
	tq := len(queryTrigrams)
	if tq == 0 {
		return nil, nil
	}

	threshold := int(math.Ceil((float64(tq)-float64(fuzziness)*3)/float64(tq))) * tq
	if threshold < 0 {
		threshold = 0
	}

	placeholders := make([]string, 0, tq)
	args := make([]any, 0, tq+2)
	args = append(args, c.name)
	for tg := range queryTrigrams {
		placeholders = append(placeholders, "?")
		args = append(args, tg)
	}

	fanout := 10 * k
	if fanout <= 0 {
		fanout = 10
	}

	rows, err := c.db.Query(
		`SELECT item_id, COUNT(*) AS shared FROM `+schema.TableTrigram+`
		 WHERE collection_name = ? AND trigram IN (`+strings.Join(placeholders, ", ")+`)
		 GROUP BY item_id HAVING shared >= ? ORDER BY shared DESC LIMIT ?`,
		append(append(args, threshold), fanout)...,
	)
	if err != nil {
		return nil, errs.E("collection.MatchFuzzy", errs.KindIOError, err)
	}

	var candidates []string
	for rows.Next() {
		var id string
		var shared int
		if err := rows.Scan(&id, &shared); err != nil {
			rows.Close()
			return nil, errs.E("collection.MatchFuzzy", errs.KindIOError, err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errs.E("collection.MatchFuzzy", errs.KindIOError, err)
	}
	rows.Close()

	var verified []Match
	for _, id := range candidates {
		var body string
		row := c.db.QueryRow(
			`SELECT body FROM `+schema.TableFTS+` WHERE collection_name = ? AND item_id = ?`,
			c.name, id,
		)
		if err := row.Scan(&body); err != nil {
			continue
		}
		dist := closestWordDistance(query, body)
		if dist > fuzziness {
			continue
		}
		verified = append(verified, Match{ID: id, Score: float64(dist)})
	}

	sort.Slice(verified, func(i, j int) bool {
		if verified[i].Score != verified[j].Score {
			return verified[i].Score < verified[j].Score
		}
		return verified[i].ID < verified[j].ID
	})

	if k > 0 && k < len(verified) {
		verified = verified[:k]
	}
	return verified, nil
}
