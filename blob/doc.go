// Package blob implements beaver's binary object store: a namespaced
// key/value table for raw bytes plus a JSON metadata sidecar, with no
// concurrency machinery beyond the storage engine's own statement
// atomicity (single-statement writes need nothing more).
package blob
