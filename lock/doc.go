/*
Package lock implements the fair, deadlock-proof inter-process mutex every
other beaver manager builds its read-modify-write paths on, and that user
code can also take out directly.

# Architecture

	┌──────────────────── FAIR LOCK ────────────────────────────┐
	│                                                             │
	│  Acquire(name):                                            │
	│    1. INSERT (name, waiter_id, now, now+ttl)               │
	│    2. loop:                                                │
	│         DELETE expired rows for name                       │
	│         SELECT MIN(requested_at, waiter_id) for name       │
	│         if front row is ours -> held, return               │
	│         else sleep poll_interval * rand[0,1), retry        │
	│         if elapsed >= timeout -> delete own row, TimedOut  │
	│                                                              │
	│  Release(name): DELETE WHERE name=? AND waiter_id=?         │
	└─────────────────────────────────────────────────────────────┘

A crashed holder's row eventually ages past its TTL and is evicted by the
next acquirer to run step 2's delete, so the lock recovers without any
participant having to detect the crash explicitly. Ordering among live
rows is strictly by requested_at, so no waiter can starve as long as it
keeps retrying — jittered sleeps only avoid a thundering herd on wakeup,
they never reorder who is next.

A *Lock value is re-entrant across its own method calls: Acquire on an
instance that already holds the row returns immediately and bumps a depth
counter; Release only deletes the row once depth reaches zero. Two
different *Lock values naming the same lock are foreign to each other even
within one process — only the instance that did the inserting can use the
fast re-entrant path.
*/
package lock
