/*
Package channel implements beaver's pub/sub manager: every publish is
persisted, and a single per-process fan-out goroutine per channel name
delivers new rows to every live in-process subscription, in strict
msg_id order, without replaying history to late joiners.

	┌───────────────── CHANNEL (channel_name) ──────────────────┐
	│ Publish(v): INSERT INTO beaver_pubsub (channel, payload)    │
	│                                                               │
	│ Subscribe():                                                 │
	│   if first subscriber: last_seen_id = MAX(msg_id); start     │
	│     fan-out goroutine                                        │
	│   add subscription to this process's in-memory set           │
	│                                                               │
	│ fan-out goroutine (ticker @ poll_interval):                   │
	│   SELECT * WHERE msg_id > last_seen_id ORDER BY msg_id ASC    │
	│   push each row to every live subscription's unbounded queue │
	│   advance last_seen_id                                        │
	│                                                               │
	│ Unsubscribe(): remove from set; stop fan-out once set is empty│
	└─────────────────────────────────────────────────────────────┘

This is the same shape as a single-thread broadcast broker distributing
to per-subscriber buffered channels, generalized so the "publish" side is
durable (a database row) instead of purely in-memory, and so the fan-out
thread is lazily started and stopped per channel name rather than running
for the whole process lifetime.
*/
package channel
