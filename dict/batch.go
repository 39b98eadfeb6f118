package dict

import (
	"time"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
)

type dictOp[T any] struct {
	key    string
	value  T
	ttl    time.Duration
	delete bool
}

// Batch buffers Set/Delete calls in memory and applies every one of them
// in a single transaction on Close, instead of one round-trip per call.
// Reads issued through the owning Dict while a batch is open do not see
// its pending writes; they only land once Close commits.
type Batch[T any] struct {
	d   *Dict[T]
	ops []dictOp[T]
}

// Batch opens a buffered write context for d.
func (d *Dict[T]) Batch() *Batch[T] {
	return &Batch[T]{d: d}
}

// Set buffers a key/value write with an optional TTL.
func (b *Batch[T]) Set(key string, value T, ttl time.Duration) {
	b.ops = append(b.ops, dictOp[T]{key: key, value: value, ttl: ttl})
}

// Delete buffers a key removal.
func (b *Batch[T]) Delete(key string) {
	b.ops = append(b.ops, dictOp[T]{key: key, delete: true})
}

// Close applies every buffered operation in one transaction, in the
// order they were recorded, and discards the batch regardless of
// outcome.
func (b *Batch[T]) Close() error {
	ops := b.ops
	b.ops = nil
	if len(ops) == 0 {
		return nil
	}

	if err := b.d.mu.Acquire(0); err != nil {
		return err
	}
	defer b.d.mu.Release()

	tx, err := b.d.db.Begin()
	if err != nil {
		return errs.E("dict.Batch.Close", errs.KindIOError, err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if op.delete {
			if _, err := tx.Exec(
				`DELETE FROM `+schema.TableDict+` WHERE dict_name = ? AND key = ?`,
				b.d.name, op.key,
			); err != nil {
				return errs.E("dict.Batch.Close", errs.KindIOError, err)
			}
			continue
		}

		data, err := b.d.codec.Encode(op.value)
		if err != nil {
			return errs.E("dict.Batch.Close", errs.KindInvalidArgument, err)
		}
		var expiresAt any
		if op.ttl > 0 {
			expiresAt = nowSeconds() + op.ttl.Seconds()
		}
		if _, err := tx.Exec(
			`INSERT INTO `+schema.TableDict+` (dict_name, key, value, expires_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(dict_name, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
			b.d.name, op.key, data, expiresAt,
		); err != nil {
			return errs.E("dict.Batch.Close", errs.KindIOError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.E("dict.Batch.Close", errs.KindIOError, err)
	}
	return nil
}
