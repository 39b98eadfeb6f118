package list

import (
	"database/sql"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
)

type listOp[T any] struct {
	value   T
	prepend bool
}

// Batch buffers Push/Prepend calls in memory and applies every one of
// them in a single transaction on Close. Per the batch design, a list
// batch only accepts pushes and prepends (no Insert/Remove by index):
// Close reads the list's current min/max order key exactly once, then
// hands out the rest of the keys as consecutive increments (for pushes)
// or decrements (for prepends), instead of one min/max round-trip per
// call.
type Batch[T any] struct {
	l   *List[T]
	ops []listOp[T]
}

// Batch opens a buffered write context for l.
func (l *List[T]) Batch() *Batch[T] {
	return &Batch[T]{l: l}
}

// Push buffers an append to the end of the list.
func (b *Batch[T]) Push(v T) {
	b.ops = append(b.ops, listOp[T]{value: v})
}

// Prepend buffers an insert at the start of the list.
func (b *Batch[T]) Prepend(v T) {
	b.ops = append(b.ops, listOp[T]{value: v, prepend: true})
}

// Close applies every buffered operation in one transaction, preserving
// the relative order of pushes among themselves and of prepends among
// themselves, and discards the batch regardless of outcome.
func (b *Batch[T]) Close() error {
	ops := b.ops
	b.ops = nil
	if len(ops) == 0 {
		return nil
	}

	if err := b.l.mu.Acquire(0); err != nil {
		return err
	}
	defer b.l.mu.Release()

	tx, err := b.l.db.Begin()
	if err != nil {
		return errs.E("list.Batch.Close", errs.KindIOError, err)
	}
	defer tx.Rollback()

	var max, min sql.NullFloat64
	if err := tx.QueryRow(`SELECT MAX(order_key) FROM `+schema.TableList+` WHERE list_name = ?`, b.l.name).Scan(&max); err != nil {
		return errs.E("list.Batch.Close", errs.KindIOError, err)
	}
	if err := tx.QueryRow(`SELECT MIN(order_key) FROM `+schema.TableList+` WHERE list_name = ?`, b.l.name).Scan(&min); err != nil {
		return errs.E("list.Batch.Close", errs.KindIOError, err)
	}

	nextPush := 1.0
	if max.Valid {
		nextPush = max.Float64 + 1
	}
	nextPrepend := -1.0
	if min.Valid {
		nextPrepend = min.Float64 - 1
	}

	for _, op := range ops {
		data, err := b.l.codec.Encode(op.value)
		if err != nil {
			return errs.E("list.Batch.Close", errs.KindInvalidArgument, err)
		}

		var key float64
		if op.prepend {
			key = nextPrepend
			nextPrepend--
		} else {
			key = nextPush
			nextPush++
		}

		if _, err := tx.Exec(
			`INSERT INTO `+schema.TableList+` (list_name, order_key, value) VALUES (?, ?, ?)`,
			b.l.name, key, data,
		); err != nil {
			return errs.E("list.Batch.Close", errs.KindIOError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.E("list.Batch.Close", errs.KindIOError, err)
	}
	return nil
}
