package lock

import (
	"database/sql"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
	"github.com/beaver-db/beaver/pkg/log"
	"github.com/beaver-db/beaver/pkg/metrics"
)

// Options configures a Lock.
type Options struct {
	// TTL is how long a held row stays valid before another waiter may
	// evict it as abandoned. Defaults to 30s.
	TTL time.Duration
	// PollInterval is the base sleep between acquire retries; the actual
	// sleep is jittered uniformly in [0, PollInterval]. Defaults to 50ms.
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 50 * time.Millisecond
	}
	return o
}

func nextWaiterID() string {
	return uuid.New().String()
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Lock is a named fair mutex backed by the shared locks table. It is safe
// for concurrent use by multiple goroutines, which serialize on its
// internal mutex exactly as if they were separate attempts to acquire the
// same already-held lock (see the re-entrancy note in doc.go).
type Lock struct {
	db   *sql.DB
	name string
	opts Options

	mu       sync.Mutex
	cond     *sync.Cond
	depth    int
	acquirer bool
	waiterID string
	reqAt    float64
}

// New creates a Lock for the given name against db. Multiple independent
// *Lock values may name the same lock_name; they are foreign to each other
// (no shared re-entrancy) even inside one process, per spec.
func New(db *sql.DB, name string, opts Options) *Lock {
	l := &Lock{db: db, name: name, opts: opts.withDefaults()}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire blocks until the lock is held or timeout elapses. A non-positive
// timeout blocks indefinitely.
func (l *Lock) Acquire(timeout time.Duration) error {
	l.mu.Lock()
	if l.depth > 0 {
		l.depth++
		l.mu.Unlock()
		return nil
	}
	for l.acquirer {
		l.cond.Wait()
		if l.depth > 0 {
			l.depth++
			l.mu.Unlock()
			return nil
		}
	}
	l.acquirer = true
	l.mu.Unlock()

	timer := metrics.NewTimer()
	err := l.realAcquire(timeout)
	timer.ObserveDurationVec(metrics.LockWaitSeconds, l.name)

	l.mu.Lock()
	l.acquirer = false
	if err == nil {
		l.depth = 1
	}
	l.cond.Broadcast()
	l.mu.Unlock()

	if err != nil {
		metrics.LockTimeoutsTotal.WithLabelValues(l.name).Inc()
	}
	return err
}

// TryAcquire attempts to acquire the lock without blocking. It returns
// false, nil if the lock is currently held by someone else. A failed
// attempt removes the waiter row it inserted, so it keeps no place in
// the queue.
func (l *Lock) TryAcquire() (bool, error) {
	l.mu.Lock()
	if l.depth > 0 {
		l.depth++
		l.mu.Unlock()
		return true, nil
	}
	if l.acquirer {
		l.mu.Unlock()
		return false, nil
	}
	l.acquirer = true
	l.mu.Unlock()

	ok, err := l.tryOnce()
	if !ok {
		l.deleteOwnRow()
	}

	l.mu.Lock()
	l.acquirer = false
	if ok {
		l.depth = 1
	}
	l.cond.Broadcast()
	l.mu.Unlock()
	return ok, err
}

func (l *Lock) realAcquire(timeout time.Duration) error {
	start := time.Now()
	for {
		ok, err := l.tryOnce()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if timeout > 0 && time.Since(start) >= timeout {
			l.deleteOwnRow()
			return errs.E("lock.Acquire", errs.KindTimedOut, fmt.Errorf("lock %q: timeout after %s", l.name, timeout))
		}
		time.Sleep(time.Duration(rand.Float64() * float64(l.opts.PollInterval)))
	}
}

// tryOnce inserts our waiter row if we have not already, then checks
// whether we are now at the front of the queue for this lock_name.
func (l *Lock) tryOnce() (bool, error) {
	if l.waiterID == "" {
		if err := l.insertWaiterRow(); err != nil {
			return false, err
		}
	}

	tx, err := l.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := nowSeconds()
	if _, err := tx.Exec(
		`DELETE FROM `+schema.TableLocks+` WHERE lock_name = ? AND expires_at < ?`,
		l.name, now,
	); err != nil {
		return false, err
	}

	var frontWaiter string
	var frontReqAt float64
	row := tx.QueryRow(
		`SELECT waiter_id, requested_at FROM `+schema.TableLocks+`
		 WHERE lock_name = ? ORDER BY requested_at ASC, waiter_id ASC LIMIT 1`,
		l.name,
	)
	if err := row.Scan(&frontWaiter, &frontReqAt); err != nil {
		if err == sql.ErrNoRows {
			// our own row must have expired instantly or been evicted; reinsert next time.
			l.waiterID = ""
			return false, tx.Commit()
		}
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return frontWaiter == l.waiterID, nil
}

func (l *Lock) insertWaiterRow() error {
	id := nextWaiterID()
	for attempt := 0; attempt < 5; attempt++ {
		now := nowSeconds() + float64(attempt)*1e-9
		_, err := l.db.Exec(
			`INSERT INTO `+schema.TableLocks+` (lock_name, waiter_id, requested_at, expires_at) VALUES (?, ?, ?, ?)`,
			l.name, id, now, now+l.opts.TTL.Seconds(),
		)
		if err == nil {
			l.waiterID = id
			l.reqAt = now
			return nil
		}
	}
	return fmt.Errorf("lock: could not insert waiter row for %s", l.name)
}

func (l *Lock) deleteOwnRow() {
	if l.waiterID == "" {
		return
	}
	if _, err := l.db.Exec(
		`DELETE FROM `+schema.TableLocks+` WHERE lock_name = ? AND waiter_id = ?`,
		l.name, l.waiterID,
	); err != nil {
		log.WithComponent("lock").Error().Err(err).Str("lock_name", l.name).Msg("failed to delete own waiter row")
	}
	l.waiterID = ""
}

// Renew extends the TTL of our held row, useful for long-running critical
// sections that would otherwise risk eviction.
func (l *Lock) Renew() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.depth == 0 || l.waiterID == "" {
		return errs.E("lock.Renew", errs.KindInvalidArgument, fmt.Errorf("lock %q not held by this instance", l.name))
	}
	now := nowSeconds()
	_, err := l.db.Exec(
		`UPDATE `+schema.TableLocks+` SET expires_at = ? WHERE lock_name = ? AND waiter_id = ?`,
		now+l.opts.TTL.Seconds(), l.name, l.waiterID,
	)
	return err
}

// Release releases one level of nesting; the underlying row is only
// deleted once depth reaches zero.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.depth == 0 {
		return errs.E("lock.Release", errs.KindInvalidArgument, fmt.Errorf("lock %q not held by this instance", l.name))
	}
	l.depth--
	if l.depth > 0 {
		return nil
	}
	l.deleteOwnRow()
	return nil
}

// Stats reports the current queue depth and the age of the oldest waiter
// for this lock name, for observability.
func (l *Lock) Stats() (depth int, oldestWaitSeconds float64, err error) {
	now := nowSeconds()
	row := l.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MIN(requested_at), ?) FROM `+schema.TableLocks+` WHERE lock_name = ? AND expires_at >= ?`,
		now, l.name, now,
	)
	var oldest float64
	if err = row.Scan(&depth, &oldest); err != nil {
		return 0, 0, err
	}
	if depth > 0 {
		oldestWaitSeconds = now - oldest
	}
	return depth, oldestWaitSeconds, nil
}
