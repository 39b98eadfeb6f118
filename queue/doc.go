/*
Package queue implements beaver's priority-queue manager: atomic
peek/pop with priority + FIFO ordering, delivering each put item to
exactly one Get caller across every process sharing the file.

	Put(data, priority):  INSERT (queue_name, priority, now, data)

	Get(block, timeout):
	  loop:
	    internal fair lock
	      SELECT rowid, data ORDER BY priority, timestamp, rowid LIMIT 1
	      DELETE that rowid
	    if found: return
	    if !block: raise Empty
	    if elapsed >= timeout: raise TimedOut
	    sleep poll_interval * jitter

The internal lock is held only across the select+delete pair, never while
sleeping — a blocked Get releases it between poll attempts so other
callers (and other processes) keep making progress. This mirrors the
ticker-driven retry loop the rest of this codebase's background workers
use, just synchronous instead of ticker-fed.
*/
package queue
