package tslog

import (
	"database/sql"
	"time"

	"github.com/beaver-db/beaver/codec"
	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
	"github.com/beaver-db/beaver/lock"
	"github.com/beaver-db/beaver/pkg/log"
)

// epsilon is the smallest timestamp bump applied when a caller-supplied
// write timestamp would not be strictly greater than the last one
// written to this log.
const epsilon = 1e-6

// Event is one record read back from a log.
type Event[T any] struct {
	Timestamp float64
	Data      T
}

// Log is the cached manager for one named time-series log.
type Log[T any] struct {
	db    *sql.DB
	name  string
	codec codec.Codec[T]
	mu    *lock.Lock
}

// New wraps db with a log manager named name.
func New[T any](db *sql.DB, name string, c codec.Codec[T]) *Log[T] {
	return &Log[T]{
		db:    db,
		name:  name,
		codec: c,
		mu:    lock.New(db, "__log__"+name, lock.Options{}),
	}
}

func nowSeconds() float64 { return float64(time.Now().UnixNano()) / 1e9 }

// Write appends data at timestamp t, or at the smallest representable
// increment past the last timestamp written to this log if t would not
// be strictly greater. It returns the timestamp actually used.
func (l *Log[T]) Write(data T, t float64) (float64, error) {
	b, err := l.codec.Encode(data)
	if err != nil {
		return 0, errs.E("tslog.Write", errs.KindInvalidArgument, err)
	}

	if err := l.mu.Acquire(0); err != nil {
		return 0, err
	}
	defer l.mu.Release()

	var last sql.NullFloat64
	row := l.db.QueryRow(`SELECT MAX(timestamp) FROM `+schema.TableLog+` WHERE log_name = ?`, l.name)
	if err := row.Scan(&last); err != nil {
		return 0, errs.E("tslog.Write", errs.KindIOError, err)
	}
	if last.Valid && t <= last.Float64 {
		t = last.Float64 + epsilon
	}

	if _, err := l.db.Exec(
		`INSERT INTO `+schema.TableLog+` (log_name, timestamp, data) VALUES (?, ?, ?)`,
		l.name, t, b,
	); err != nil {
		return 0, errs.E("tslog.Write", errs.KindIOError, err)
	}
	return t, nil
}

// Range returns every event with timestamp in [start, end), ascending.
func (l *Log[T]) Range(start, end float64) ([]Event[T], error) {
	return l.query(`timestamp >= ? AND timestamp < ?`, start, end)
}

// Count returns the number of events in [start, end).
func (l *Log[T]) Count(start, end float64) (int, error) {
	var n int
	row := l.db.QueryRow(
		`SELECT COUNT(*) FROM `+schema.TableLog+` WHERE log_name = ? AND timestamp >= ? AND timestamp < ?`,
		l.name, start, end,
	)
	if err := row.Scan(&n); err != nil {
		return 0, errs.E("tslog.Count", errs.KindIOError, err)
	}
	return n, nil
}

func (l *Log[T]) query(cond string, args ...any) ([]Event[T], error) {
	queryArgs := append([]any{l.name}, args...)
	rows, err := l.db.Query(
		`SELECT timestamp, data FROM `+schema.TableLog+` WHERE log_name = ? AND `+cond+` ORDER BY timestamp ASC`,
		queryArgs...,
	)
	if err != nil {
		return nil, errs.E("tslog.Range", errs.KindIOError, err)
	}
	defer rows.Close()

	var out []Event[T]
	for rows.Next() {
		var ts float64
		var data []byte
		if err := rows.Scan(&ts, &data); err != nil {
			return nil, errs.E("tslog.Range", errs.KindIOError, err)
		}
		v, err := l.codec.Decode(data)
		if err != nil {
			return nil, errs.E("tslog.Range", errs.KindCorrupted, err)
		}
		out = append(out, Event[T]{Timestamp: ts, Data: v})
	}
	return out, rows.Err()
}

// LiveIterator publishes one aggregated value per tick until Stop is
// called. Not restartable.
type LiveIterator[R any] struct {
	values chan R
	stopCh chan struct{}
	done   chan struct{}
}

// Values returns the channel live aggregation results are published on.
func (it *LiveIterator[R]) Values() <-chan R { return it.values }

// Stop ends the background ticker and blocks until its goroutine exits.
func (it *LiveIterator[R]) Stop() {
	close(it.stopCh)
	<-it.done
}

// Live starts a background ticker that, every period, aggregates the
// window of events ending "now" (inclusive at both ends: [now-window,
// now]) and publishes aggregator's result. It is a free function, not a
// method, because Go does not allow a method to introduce additional
// type parameters beyond its receiver's.
func Live[T any, R any](l *Log[T], window, period time.Duration, aggregator func([]Event[T]) R) *LiveIterator[R] {
	it := &LiveIterator[R]{
		values: make(chan R),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(it.done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				now := nowSeconds()
				events, err := l.query(`timestamp >= ? AND timestamp <= ?`, now-window.Seconds(), now)
				if err != nil {
					log.WithComponent("tslog").Error().Err(err).Str("log_name", l.name).Msg("live aggregation query failed")
					continue
				}
				result := aggregator(events)
				select {
				case it.values <- result:
				case <-it.stopCh:
					return
				}
			case <-it.stopCh:
				return
			}
		}
	}()

	return it
}
