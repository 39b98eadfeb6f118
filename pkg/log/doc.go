/*
Package log provides structured logging for beaver using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, configurable levels, and helper functions
for common logging call sites. All log lines include a timestamp and support
filtering by severity.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("lock")                    │          │
	│  │  - WithComponent("queue")                   │          │
	│  │  - WithComponent("channel")                 │          │
	│  │  - WithComponent("vector")                  │          │
	│  │  - WithResource("collection", "docs")       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  JSON: {"level":"info","component":"lock",  │          │
	│  │         "time":"...","message":"acquired"}  │          │
	│  │  Console: 10:30AM INF acquired component=lock│          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

Background goroutines (the channel fan-out, the live-log ticker, and vector
background compaction) use a component logger and log errors at Error level
without panicking; see each package's doc comment for its specific
failure-handling policy. Lock acquires and blocking queue gets poll on the
caller's goroutine and return their errors instead.
*/
package log
