/*
Package collection implements beaver's document collection manager: the
composition of a vector index, a full-text index, a trigram fuzzy index,
and a directed weighted graph over the same set of document ids.

	Index(doc):
	  internal fair lock
	    vector.Insert(doc.ID, doc.Vector, doc.Metadata)
	    one transaction:
	      DELETE + INSERT the FTS row for doc.ID
	      DELETE + INSERT the trigram rows for doc.ID

	Drop(id): symmetric — vector.Delete, then the same two deletes.

	Match (full text): a direct FTS5 MATCH query, ranked by the engine's
	  own ranking function.

	Match (fuzzy): trigram candidate generation (rows sharing enough 3-
	  character chunks with the query) followed by Levenshtein
	  verification over a bounded fan-out of the top candidates.

	Rerank: a pure reciprocal-rank-fusion helper with no database access,
	  usable to fuse any combination of the result lists above.

	Walk: a single recursive CTE performing a set-based breadth-first
	  search over the edge table, direction-aware (forward, backward, or
	  both, modeled as a unioned adjacency view feeding the recursion).

The FTS, trigram, and vector writes inside Index are two separate SQL
transactions — the vector index manages its own transaction internally to
keep its change-log bookkeeping self-contained. Both run under the
collection's internal fair lock, so concurrent Index and Drop calls on the
same collection never interleave. The read paths (MatchText, MatchFuzzy,
Vec.Search) do not take that lock, so a reader running between the two
transactions can see a document's vector without its text rows (or, for
Drop, the reverse), and a failure in the second transaction leaves the
vector write in place.
*/
package collection
