/*
Package beaver is an embedded, single-file, multi-modal datastore built on
top of a SQL storage engine with a write-ahead log.

One file on disk backs every structure a program opens against it: a keyed
mapping, an ordered sequence, a priority queue, a time-indexed log, a pub/sub
channel, a blob store, and a document collection with vector, full-text,
fuzzy, and graph retrieval. Every structure is safe to use concurrently from
many goroutines in one process and from many independent processes against
the same file, coordinated by a fair, crash-recoverable inter-process lock.

# Architecture

	┌───────────────────────────── beaver.Session ─────────────────────────────┐
	│                                                                            │
	│  ┌──────────────┐   beaver.Dict / List / Queue / Channel / Blobs / Log /  │
	│  │   *sql.DB    │◄──Collection — one cached manager instance per          │
	│  │ (WAL, FTS5)  │   (kind, name), backed by the same *sql.DB handle       │
	│  └──────┬───────┘                                                        │
	│         │                                                                 │
	│  ┌──────▼────────────────────────────────────────────────────────────┐   │
	│  │ internal/schema.Ensure — idempotent DDL bootstrap, run once on    │   │
	│  │ Open, safe to race across processes opening the same file         │   │
	│  └─────────────────────────────────────────────────────────────────┘   │
	│                                                                            │
	│  lock.Lock          fair FIFO mutex, internal "__<kind>__name" locks      │
	│  dict.Dict[T]        keyed mapping with per-entry TTL                     │
	│  list.List[T]        ordered sequence, fractional order keys             │
	│  queue.Queue[T]      priority queue, exactly-once pop                    │
	│  channel.Channel[T]  pub/sub, exactly-once fan-out, no replay            │
	│  blob.Store          named byte blobs with JSON metadata                 │
	│  tslog.Log[T]        time-indexed append log, live windowed polling      │
	│  vector.Index        snapshot+delta-log hybrid vector search             │
	│  collection.Collection  vector + FTS5 + trigram fuzzy + graph walk       │
	│  <kind>.Batch[T]     buffered writes, one transaction per Close (e.g.    │
	│                      dict.Batch[T], list.Batch[T], blob.Batch)          │
	└────────────────────────────────────────────────────────────────────────┘

# Usage

Opening a session and using a dict:

	sess, err := beaver.Open("app.db", beaver.Options{})
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()

	users := beaver.Dict(sess, "users", codec.JSON[User]())
	if err := users.Set("alice", User{Name: "Alice"}, 0); err != nil {
		log.Fatal(err)
	}

The generic factory functions (Dict, List, Queue, Channel, Log) take the
session as their first argument rather than being methods, because a method
cannot introduce type parameters beyond its receiver's — the same
constraint documented on tslog.Live. Blobs, Collection, and Lock have no
type parameter and are methods on Session.
*/
package beaver
