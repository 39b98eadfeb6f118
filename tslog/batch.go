package tslog

import (
	"database/sql"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
)

type logOp[T any] struct {
	data T
	t    float64
}

// Batch buffers Write calls in memory and applies every one of them in a
// single transaction on Close. The monotonicity rule is preserved across
// the whole batch, not just against what was already on disk: Close reads
// the log's last written timestamp once, then walks the buffered writes
// in order, bumping each one forward exactly as Write would if it had
// been called standalone.
type Batch[T any] struct {
	l   *Log[T]
	ops []logOp[T]
}

// Batch opens a buffered write context for l.
func (l *Log[T]) Batch() *Batch[T] {
	return &Batch[T]{l: l}
}

// Write buffers an append at timestamp t.
func (b *Batch[T]) Write(data T, t float64) {
	b.ops = append(b.ops, logOp[T]{data: data, t: t})
}

// Close applies every buffered write in one transaction and discards the
// batch regardless of outcome. It returns the timestamp actually used for
// each buffered write, in the order Write was called.
func (b *Batch[T]) Close() ([]float64, error) {
	ops := b.ops
	b.ops = nil
	if len(ops) == 0 {
		return nil, nil
	}

	if err := b.l.mu.Acquire(0); err != nil {
		return nil, err
	}
	defer b.l.mu.Release()

	tx, err := b.l.db.Begin()
	if err != nil {
		return nil, errs.E("tslog.Batch.Close", errs.KindIOError, err)
	}
	defer tx.Rollback()

	var last sql.NullFloat64
	if err := tx.QueryRow(`SELECT MAX(timestamp) FROM `+schema.TableLog+` WHERE log_name = ?`, b.l.name).Scan(&last); err != nil {
		return nil, errs.E("tslog.Batch.Close", errs.KindIOError, err)
	}

	used := make([]float64, 0, len(ops))
	lastT, haveLast := last.Float64, last.Valid

	for _, op := range ops {
		data, err := b.l.codec.Encode(op.data)
		if err != nil {
			return nil, errs.E("tslog.Batch.Close", errs.KindInvalidArgument, err)
		}

		t := op.t
		if haveLast && t <= lastT {
			t = lastT + epsilon
		}
		lastT, haveLast = t, true

		if _, err := tx.Exec(
			`INSERT INTO `+schema.TableLog+` (log_name, timestamp, data) VALUES (?, ?, ?)`,
			b.l.name, t, data,
		); err != nil {
			return nil, errs.E("tslog.Batch.Close", errs.KindIOError, err)
		}
		used = append(used, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.E("tslog.Batch.Close", errs.KindIOError, err)
	}
	return used, nil
}
