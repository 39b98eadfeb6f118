package collection

type collectionOp struct {
	doc    Document
	fuzzy  bool
	drop   string
	isDrop bool
}

// Batch buffers Index/Drop calls in memory and applies every one of them
// on Close. Each buffered operation still runs through the collection's
// own Index/Drop path — including its own transaction over the FTS and
// trigram tables and the vector index's own change-log bookkeeping — but
// Close acquires the collection's internal fair lock exactly once for the
// whole batch (the lock is re-entrant on this same *Collection instance,
// so the per-call Index/Drop acquires inside the loop nest for free)
// instead of once per caller round-trip.
type Batch struct {
	c   *Collection
	ops []collectionOp
}

// Batch opens a buffered write context for c.
func (c *Collection) Batch() *Batch {
	return &Batch{c: c}
}

// Index buffers a document index.
func (b *Batch) Index(doc Document, fuzzy bool) {
	b.ops = append(b.ops, collectionOp{doc: doc, fuzzy: fuzzy})
}

// Drop buffers a document removal.
func (b *Batch) Drop(id string) {
	b.ops = append(b.ops, collectionOp{drop: id, isDrop: true})
}

// Close applies every buffered operation, in the order they were
// recorded, and discards the batch regardless of outcome. It stops at the
// first error, leaving earlier operations in the batch already committed
// (each Index/Drop call commits its own writes; the batch itself is not
// one giant transaction, per the same limitation documented for Index).
func (b *Batch) Close() error {
	ops := b.ops
	b.ops = nil

	if err := b.c.mu.Acquire(0); err != nil {
		return err
	}
	defer b.c.mu.Release()

	for _, op := range ops {
		if op.isDrop {
			if err := b.c.Drop(op.drop); err != nil {
				return err
			}
			continue
		}
		if err := b.c.Index(op.doc, op.fuzzy); err != nil {
			return err
		}
	}
	return nil
}
