/*
Package tslog implements beaver's time-series log manager: monotonic
per-log timestamping, range reads, and a live rolling-window aggregator
driven by a background ticker.

Write enforces monotonicity under the log's internal fair lock (the
check-then-insert spans two statements): a caller-supplied timestamp that
would go backwards is bumped to the smallest representable increment
past the last written value, so bursty writers never get rejected and
readers never see time run backwards.

Live(window, period, aggregator) starts a ticker goroutine that, every
period, takes the window of events ending at "now" and feeds them to
aggregator, publishing the result on a channel until Stop is called —
the same ticker-plus-stop-channel shape this codebase's other background
loops use, generalized to publish a value per tick instead of just
logging and continuing.
*/
package tslog
