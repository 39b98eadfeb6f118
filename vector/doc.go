/*
Package vector implements beaver's vector index: the Snapshot + Delta Log
hybrid structure that keeps an in-memory, per-process view of a
collection's vectors consistent across processes through a shared change
log and epoch-versioned compactions.

	┌────────────────────── VECTOR INDEX ───────────────────────────┐
	│ in-memory (per process, per collection):                       │
	│   B (base matrix) + B_ids     — built from the collection table│
	│   K (delta map: id -> vector) — changes since the snapshot     │
	│   T (tombstone set)           — ids deleted since the snapshot │
	│   local_base_version, last_seen_log_id                         │
	│                                                                  │
	│ Insert: upsert collection row + append change-log row, in one   │
	│   transaction. Delete: append a change-log row only. Both then  │
	│   fold the same change into K/T so the writing process sees its │
	│   own write with no poll (read-your-writes); Insert schedules a │
	│   compaction once K holds at least threshold ids.               │
	│                                                                   │
	│ Search: sync first —                                             │
	│   if base_version in the versions table has advanced, jitter-    │
	│     sleep, re-check, then rebuild B/K/T/last_seen_log_id from    │
	│     the collection table and change log from scratch;            │
	│   else replay change_log rows past last_seen_log_id into K/T.    │
	│   Then score every live id by cosine distance and return the     │
	│   smallest k.                                                     │
	│                                                                    │
	│ Compact (named inter-process lock held throughout): delete        │
	│   tombstoned rows from the collection table, clear the change     │
	│   log, bump base_version — the signal every other process's next │
	│   search rebuilds on.                                             │
	└───────────────────────────────────────────────────────────────────┘

Vectors are stored at float32 precision throughout — the index never
mixes precisions within one collection, since a search merging float32
and float64 distances would silently skew ranking by rounding error.

Each Index's singleflight.Group collapses concurrent compaction
triggers from multiple writers sharing that Index into one actual
compaction attempt; trigger callers that arrive while one is already
running simply observe its result instead of queuing a redundant one.
*/
package vector
