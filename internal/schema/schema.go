// Package schema holds the shared-prefix DDL for every table beaver's
// managers read and write, and the idempotent bootstrap routine that
// creates them. Keeping the DDL as named constants in one place is the
// convention this module's teacher lineage uses for SQL schemas (a single
// `schema` string applied with CREATE TABLE IF NOT EXISTS, one statement
// per logical table, indexes declared right after their table).
package schema

import (
	"database/sql"
	"fmt"
)

// Prefix is shared by every table beaver creates, so the file stays
// inspectable by any SQL tool without namespace collisions against
// whatever else a host application keeps in the same file.
const Prefix = "beaver_"

// Table names, exported so every manager package references the same
// identifiers instead of re-deriving them.
const (
	TableLocks             = Prefix + "locks"
	TableDict              = Prefix + "dict"
	TableList              = Prefix + "list"
	TableBlob              = Prefix + "blob"
	TableQueue             = Prefix + "queue"
	TableLog               = Prefix + "log"
	TablePubsub            = Prefix + "pubsub"
	TableCollection        = Prefix + "collection"
	TableFTS               = Prefix + "fts"
	TableTrigram           = Prefix + "trigram"
	TableEdge              = Prefix + "edge"
	TableVectorLog         = Prefix + "vector_log"
	TableCollectionVersion = Prefix + "collection_version"
)

const ddl = `
CREATE TABLE IF NOT EXISTS ` + TableLocks + ` (
	lock_name    TEXT    NOT NULL,
	waiter_id    TEXT    NOT NULL,
	requested_at REAL    NOT NULL,
	expires_at   REAL    NOT NULL,
	PRIMARY KEY (lock_name, requested_at)
);

CREATE TABLE IF NOT EXISTS ` + TableDict + ` (
	dict_name TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     BLOB,
	expires_at REAL,
	PRIMARY KEY (dict_name, key)
);
CREATE INDEX IF NOT EXISTS idx_` + TableDict + `_expires
	ON ` + TableDict + `(dict_name, expires_at);

CREATE TABLE IF NOT EXISTS ` + TableList + ` (
	rowid     INTEGER PRIMARY KEY AUTOINCREMENT,
	list_name TEXT    NOT NULL,
	order_key REAL    NOT NULL,
	value     BLOB
);
CREATE INDEX IF NOT EXISTS idx_` + TableList + `_order
	ON ` + TableList + `(list_name, order_key, rowid);

CREATE TABLE IF NOT EXISTS ` + TableBlob + ` (
	store_name TEXT NOT NULL,
	key        TEXT NOT NULL,
	data       BLOB,
	metadata   TEXT,
	PRIMARY KEY (store_name, key)
);

CREATE TABLE IF NOT EXISTS ` + TableQueue + ` (
	rowid      INTEGER PRIMARY KEY AUTOINCREMENT,
	queue_name TEXT    NOT NULL,
	priority   REAL    NOT NULL,
	timestamp  REAL    NOT NULL,
	data       BLOB
);
CREATE INDEX IF NOT EXISTS idx_` + TableQueue + `_order
	ON ` + TableQueue + `(queue_name, priority, timestamp, rowid);

CREATE TABLE IF NOT EXISTS ` + TableLog + ` (
	log_name  TEXT NOT NULL,
	timestamp REAL NOT NULL,
	data      BLOB
);
CREATE INDEX IF NOT EXISTS idx_` + TableLog + `_range
	ON ` + TableLog + `(log_name, timestamp);

CREATE TABLE IF NOT EXISTS ` + TablePubsub + ` (
	msg_id       INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_name TEXT    NOT NULL,
	payload      BLOB,
	published_at REAL    NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_` + TablePubsub + `_channel
	ON ` + TablePubsub + `(channel_name, msg_id);

CREATE TABLE IF NOT EXISTS ` + TableCollection + ` (
	collection_name TEXT NOT NULL,
	item_id         TEXT NOT NULL,
	vector          BLOB,
	metadata        TEXT,
	PRIMARY KEY (collection_name, item_id)
);

CREATE VIRTUAL TABLE IF NOT EXISTS ` + TableFTS + ` USING fts5(
	collection_name UNINDEXED,
	item_id UNINDEXED,
	body,
	tokenize = 'porter unicode61'
);

CREATE TABLE IF NOT EXISTS ` + TableTrigram + ` (
	collection_name TEXT NOT NULL,
	trigram         TEXT NOT NULL,
	item_id         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_` + TableTrigram + `_lookup
	ON ` + TableTrigram + `(collection_name, trigram);

CREATE TABLE IF NOT EXISTS ` + TableEdge + ` (
	collection_name TEXT NOT NULL,
	source_id       TEXT NOT NULL,
	target_id       TEXT NOT NULL,
	label           TEXT NOT NULL,
	weight          REAL NOT NULL DEFAULT 1.0,
	metadata        TEXT,
	PRIMARY KEY (collection_name, source_id, target_id, label)
);
CREATE INDEX IF NOT EXISTS idx_` + TableEdge + `_target
	ON ` + TableEdge + `(collection_name, target_id, label);

CREATE TABLE IF NOT EXISTS ` + TableVectorLog + ` (
	log_id          INTEGER PRIMARY KEY AUTOINCREMENT,
	collection_name TEXT    NOT NULL,
	item_id         TEXT    NOT NULL,
	op              INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_` + TableVectorLog + `_cursor
	ON ` + TableVectorLog + `(collection_name, log_id);

CREATE TABLE IF NOT EXISTS ` + TableCollectionVersion + ` (
	collection_name TEXT PRIMARY KEY,
	base_version    INTEGER NOT NULL DEFAULT 0
);
`

// Vector change log op codes.
const (
	VectorOpInsert = 1
	VectorOpDelete = 2
)

// Ensure creates every beaver table and index if they do not already
// exist. It runs inside a single transaction, so a failed bootstrap leaves
// no partially created tables. The transaction is opened with db.Begin,
// which SQLite runs in its default deferred mode rather than as BEGIN
// IMMEDIATE: the write lock is taken at the first DDL statement that
// writes, not when the transaction starts.
func Ensure(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("schema: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(ddl); err != nil {
		return fmt.Errorf("schema: apply ddl: %w", err)
	}

	return tx.Commit()
}
