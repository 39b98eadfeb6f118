package queue

import (
	"database/sql"
	"math/rand"
	"time"

	"github.com/beaver-db/beaver/codec"
	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
	"github.com/beaver-db/beaver/lock"
	"github.com/beaver-db/beaver/pkg/metrics"
)

// Options configures a Queue's blocking-get poll behavior.
type Options struct {
	// PollInterval is the base sleep between empty-queue retries while
	// blocking; the actual sleep is jittered uniformly in [0, PollInterval].
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 50 * time.Millisecond
	}
	return o
}

// Queue is the cached manager for one named priority queue.
type Queue[T any] struct {
	db    *sql.DB
	name  string
	codec codec.Codec[T]
	opts  Options
	mu    *lock.Lock
}

// New wraps db with a priority queue manager named name.
func New[T any](db *sql.DB, name string, c codec.Codec[T], opts Options) *Queue[T] {
	return &Queue[T]{
		db:    db,
		name:  name,
		codec: c,
		opts:  opts.withDefaults(),
		mu:    lock.New(db, "__queue__"+name, lock.Options{}),
	}
}

func nowSeconds() float64 { return float64(time.Now().UnixNano()) / 1e9 }

// Put enqueues data with the given priority (lower sorts first).
func (q *Queue[T]) Put(data T, priority float64) error {
	b, err := q.codec.Encode(data)
	if err != nil {
		return errs.E("queue.Put", errs.KindInvalidArgument, err)
	}
	_, err = q.db.Exec(
		`INSERT INTO `+schema.TableQueue+` (queue_name, priority, timestamp, data) VALUES (?, ?, ?, ?)`,
		q.name, priority, nowSeconds(), b,
	)
	if err != nil {
		return errs.E("queue.Put", errs.KindIOError, err)
	}
	metrics.QueueDepth.WithLabelValues(q.name).Inc()
	return nil
}

// Peek returns the item that would be returned by the next Get, without
// removing it. Returns an Empty error if the queue has nothing pending.
func (q *Queue[T]) Peek() (T, error) {
	var zero T
	row := q.db.QueryRow(
		`SELECT data FROM `+schema.TableQueue+` WHERE queue_name = ?
		 ORDER BY priority ASC, timestamp ASC, rowid ASC LIMIT 1`,
		q.name,
	)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return zero, errs.E("queue.Peek", errs.KindEmpty, nil)
		}
		return zero, errs.E("queue.Peek", errs.KindIOError, err)
	}
	v, err := q.codec.Decode(data)
	if err != nil {
		return zero, errs.E("queue.Peek", errs.KindCorrupted, err)
	}
	return v, nil
}

// Get removes and returns the highest-priority item. If block is false
// and the queue is empty, it returns immediately with Empty. If block is
// true, it polls until an item appears or timeout elapses (a non-positive
// timeout blocks indefinitely), returning TimedOut on expiry.
func (q *Queue[T]) Get(block bool, timeout time.Duration) (T, error) {
	var zero T
	start := time.Now()

	for {
		v, ok, err := q.tryPop()
		if err != nil {
			return zero, err
		}
		if ok {
			metrics.QueueDepth.WithLabelValues(q.name).Dec()
			return v, nil
		}
		if !block {
			return zero, errs.E("queue.Get", errs.KindEmpty, nil)
		}
		if timeout > 0 && time.Since(start) >= timeout {
			return zero, errs.E("queue.Get", errs.KindTimedOut, nil)
		}
		time.Sleep(time.Duration(rand.Float64() * float64(q.opts.PollInterval)))
	}
}

// tryPop performs one atomic select-and-delete under the queue's internal
// lock, held only for the duration of the transaction, never while the
// caller sleeps between retries.
func (q *Queue[T]) tryPop() (T, bool, error) {
	var zero T

	if err := q.mu.Acquire(0); err != nil {
		return zero, false, err
	}
	defer q.mu.Release()

	tx, err := q.db.Begin()
	if err != nil {
		return zero, false, errs.E("queue.Get", errs.KindIOError, err)
	}
	defer tx.Rollback()

	var rowid int64
	var data []byte
	row := tx.QueryRow(
		`SELECT rowid, data FROM `+schema.TableQueue+` WHERE queue_name = ?
		 ORDER BY priority ASC, timestamp ASC, rowid ASC LIMIT 1`,
		q.name,
	)
	if err := row.Scan(&rowid, &data); err != nil {
		if err == sql.ErrNoRows {
			return zero, false, tx.Commit()
		}
		return zero, false, errs.E("queue.Get", errs.KindIOError, err)
	}

	if _, err := tx.Exec(`DELETE FROM `+schema.TableQueue+` WHERE rowid = ?`, rowid); err != nil {
		return zero, false, errs.E("queue.Get", errs.KindIOError, err)
	}
	if err := tx.Commit(); err != nil {
		return zero, false, errs.E("queue.Get", errs.KindIOError, err)
	}

	v, err := q.codec.Decode(data)
	if err != nil {
		return zero, false, errs.E("queue.Get", errs.KindCorrupted, err)
	}
	return v, true, nil
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() (int, error) {
	var n int
	row := q.db.QueryRow(`SELECT COUNT(*) FROM `+schema.TableQueue+` WHERE queue_name = ?`, q.name)
	if err := row.Scan(&n); err != nil {
		return 0, errs.E("queue.Len", errs.KindIOError, err)
	}
	return n, nil
}

// Clear removes every pending item.
func (q *Queue[T]) Clear() error {
	if _, err := q.db.Exec(`DELETE FROM `+schema.TableQueue+` WHERE queue_name = ?`, q.name); err != nil {
		return errs.E("queue.Clear", errs.KindIOError, err)
	}
	metrics.QueueDepth.WithLabelValues(q.name).Set(0)
	return nil
}
