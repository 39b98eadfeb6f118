package blob

import (
	"encoding/json"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
)

type blobOp struct {
	key      string
	data     []byte
	metadata map[string]any
	delete   bool
}

// Batch buffers Put/Delete calls in memory and applies every one of them
// in a single transaction on Close.
type Batch struct {
	s   *Store
	ops []blobOp
}

// Batch opens a buffered write context for s.
func (s *Store) Batch() *Batch {
	return &Batch{s: s}
}

// Put buffers a write of data and metadata under key.
func (b *Batch) Put(key string, data []byte, metadata map[string]any) {
	b.ops = append(b.ops, blobOp{key: key, data: data, metadata: metadata})
}

// Delete buffers a key removal.
func (b *Batch) Delete(key string) {
	b.ops = append(b.ops, blobOp{key: key, delete: true})
}

// Close applies every buffered operation in one transaction, in the
// order they were recorded, and discards the batch regardless of
// outcome.
func (b *Batch) Close() error {
	ops := b.ops
	b.ops = nil
	if len(ops) == 0 {
		return nil
	}

	tx, err := b.s.db.Begin()
	if err != nil {
		return errs.E("blob.Batch.Close", errs.KindIOError, err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if op.delete {
			if _, err := tx.Exec(`DELETE FROM `+schema.TableBlob+` WHERE store_name = ? AND key = ?`, b.s.name, op.key); err != nil {
				return errs.E("blob.Batch.Close", errs.KindIOError, err)
			}
			continue
		}

		var metaJSON []byte
		if op.metadata != nil {
			metaJSON, err = json.Marshal(op.metadata)
			if err != nil {
				return errs.E("blob.Batch.Close", errs.KindInvalidArgument, err)
			}
		}
		if _, err := tx.Exec(
			`INSERT INTO `+schema.TableBlob+` (store_name, key, data, metadata) VALUES (?, ?, ?, ?)
			 ON CONFLICT(store_name, key) DO UPDATE SET data = excluded.data, metadata = excluded.metadata`,
			b.s.name, op.key, op.data, metaJSON,
		); err != nil {
			return errs.E("blob.Batch.Close", errs.KindIOError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.E("blob.Batch.Close", errs.KindIOError, err)
	}
	return nil
}
