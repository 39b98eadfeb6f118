/*
Package dict implements beaver's keyed-mapping manager: a namespaced
key/value table with optional per-key TTL, shared across every process
that has the same file open.

	┌────────────────── DICT (dict_name) ───────────────────┐
	│  Set(key, value, ttl):                                 │
	│    INSERT OR REPLACE INTO beaver_dict VALUES (...)      │
	│                                                          │
	│  Get(key):                                              │
	│    internal fair lock                                   │
	│      SELECT value, expires_at WHERE dict_name=? AND key=?│
	│      if expires_at < now: DELETE row; return NotFound   │
	│      else: return decoded value                         │
	└──────────────────────────────────────────────────────────┘

TTL expiry is silent and lazy: an expired row simply looks absent to any
reader, and whichever reader notices first deletes it. The internal lock
exists because the check-then-delete sequence spans two statements; it is
named distinctly from any lock a caller might take out themselves.
*/
package dict
