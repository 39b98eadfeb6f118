/*
Package metrics provides Prometheus metrics collection for beaver.

Every package that runs a background polling loop (lock, queue, channel,
vector) or a latency-sensitive synchronous path (vector search, collection
indexing) reports through this package's metric vectors. beaver does not
start an HTTP server itself; a caller that wants to scrape these exposes
Handler() on its own mux.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Lock: wait latency, timeout count          │          │
	│  │  Queue: pending depth                       │          │
	│  │  Channel: subscriber count, fan-out lag      │          │
	│  │  Vector: search latency, compactions,       │          │
	│  │          rebuilds                            │          │
	│  │  Collection: index latency                  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint               │          │
	│  │  - Handler() returns promhttp.Handler()      │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘
*/
package metrics
