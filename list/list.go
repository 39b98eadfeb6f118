package list

import (
	"database/sql"

	"github.com/beaver-db/beaver/codec"
	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
	"github.com/beaver-db/beaver/lock"
)

// List is the cached manager for one named ordered sequence.
type List[T any] struct {
	db    *sql.DB
	name  string
	codec codec.Codec[T]
	mu    *lock.Lock
}

// New wraps db with a list manager named name.
func New[T any](db *sql.DB, name string, c codec.Codec[T]) *List[T] {
	return &List[T]{
		db:    db,
		name:  name,
		codec: c,
		mu:    lock.New(db, "__list__"+name, lock.Options{}),
	}
}

// Len returns the number of elements currently in the list.
func (l *List[T]) Len() (int, error) {
	var n int
	row := l.db.QueryRow(`SELECT COUNT(*) FROM `+schema.TableList+` WHERE list_name = ?`, l.name)
	if err := row.Scan(&n); err != nil {
		return 0, errs.E("list.Len", errs.KindIOError, err)
	}
	return n, nil
}

// All returns every element in order.
func (l *List[T]) All() ([]T, error) {
	rows, err := l.db.Query(
		`SELECT value FROM `+schema.TableList+` WHERE list_name = ? ORDER BY order_key ASC, rowid ASC`,
		l.name,
	)
	if err != nil {
		return nil, errs.E("list.All", errs.KindIOError, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errs.E("list.All", errs.KindIOError, err)
		}
		v, err := l.codec.Decode(data)
		if err != nil {
			return nil, errs.E("list.All", errs.KindCorrupted, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Get returns the element at index i (0-based).
func (l *List[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 {
		return zero, errs.E("list.Get", errs.KindInvalidArgument, nil)
	}
	row := l.db.QueryRow(
		`SELECT value FROM `+schema.TableList+` WHERE list_name = ? ORDER BY order_key ASC, rowid ASC LIMIT 1 OFFSET ?`,
		l.name, i,
	)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return zero, errs.E("list.Get", errs.KindNotFound, nil)
		}
		return zero, errs.E("list.Get", errs.KindIOError, err)
	}
	v, err := l.codec.Decode(data)
	if err != nil {
		return zero, errs.E("list.Get", errs.KindCorrupted, err)
	}
	return v, nil
}

// Push appends v to the end of the list.
func (l *List[T]) Push(v T) error {
	if err := l.mu.Acquire(0); err != nil {
		return err
	}
	defer l.mu.Release()

	data, err := l.codec.Encode(v)
	if err != nil {
		return errs.E("list.Push", errs.KindInvalidArgument, err)
	}

	var max sql.NullFloat64
	row := l.db.QueryRow(`SELECT MAX(order_key) FROM `+schema.TableList+` WHERE list_name = ?`, l.name)
	if err := row.Scan(&max); err != nil {
		return errs.E("list.Push", errs.KindIOError, err)
	}

	key := 1.0
	if max.Valid {
		key = max.Float64 + 1
	}
	return l.insertRow(key, data)
}

// Prepend inserts v at the start of the list.
func (l *List[T]) Prepend(v T) error {
	if err := l.mu.Acquire(0); err != nil {
		return err
	}
	defer l.mu.Release()

	data, err := l.codec.Encode(v)
	if err != nil {
		return errs.E("list.Prepend", errs.KindInvalidArgument, err)
	}

	var min sql.NullFloat64
	row := l.db.QueryRow(`SELECT MIN(order_key) FROM `+schema.TableList+` WHERE list_name = ?`, l.name)
	if err := row.Scan(&min); err != nil {
		return errs.E("list.Prepend", errs.KindIOError, err)
	}

	key := -1.0
	if min.Valid {
		key = min.Float64 - 1
	}
	return l.insertRow(key, data)
}

// Insert places v at index i, shifting nothing — its order key is the
// midpoint between the neighbors currently at i-1 and i.
func (l *List[T]) Insert(i int, v T) error {
	if i < 0 {
		return errs.E("list.Insert", errs.KindInvalidArgument, nil)
	}

	if err := l.mu.Acquire(0); err != nil {
		return err
	}
	defer l.mu.Release()

	n, err := l.lenLocked()
	if err != nil {
		return err
	}
	if i >= n {
		return l.pushLocked(v)
	}
	if i == 0 {
		return l.prependLocked(v)
	}

	keys, err := l.orderKeysAround(i)
	if err != nil {
		return err
	}

	data, err := l.codec.Encode(v)
	if err != nil {
		return errs.E("list.Insert", errs.KindInvalidArgument, err)
	}
	midpoint := (keys[0] + keys[1]) / 2
	return l.insertRow(midpoint, data)
}

// Remove deletes the element at index i.
func (l *List[T]) Remove(i int) error {
	if i < 0 {
		return errs.E("list.Remove", errs.KindInvalidArgument, nil)
	}

	if err := l.mu.Acquire(0); err != nil {
		return err
	}
	defer l.mu.Release()

	res, err := l.db.Exec(
		`DELETE FROM `+schema.TableList+` WHERE rowid IN (
			SELECT rowid FROM `+schema.TableList+` WHERE list_name = ?
			ORDER BY order_key ASC, rowid ASC LIMIT 1 OFFSET ?
		)`,
		l.name, i,
	)
	if err != nil {
		return errs.E("list.Remove", errs.KindIOError, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.E("list.Remove", errs.KindNotFound, nil)
	}
	return nil
}

func (l *List[T]) insertRow(key float64, data []byte) error {
	_, err := l.db.Exec(
		`INSERT INTO `+schema.TableList+` (list_name, order_key, value) VALUES (?, ?, ?)`,
		l.name, key, data,
	)
	if err != nil {
		return errs.E("list.insertRow", errs.KindIOError, err)
	}
	return nil
}

func (l *List[T]) lenLocked() (int, error) {
	var n int
	row := l.db.QueryRow(`SELECT COUNT(*) FROM `+schema.TableList+` WHERE list_name = ?`, l.name)
	if err := row.Scan(&n); err != nil {
		return 0, errs.E("list.Insert", errs.KindIOError, err)
	}
	return n, nil
}

func (l *List[T]) pushLocked(v T) error {
	data, err := l.codec.Encode(v)
	if err != nil {
		return errs.E("list.Insert", errs.KindInvalidArgument, err)
	}
	var max sql.NullFloat64
	row := l.db.QueryRow(`SELECT MAX(order_key) FROM `+schema.TableList+` WHERE list_name = ?`, l.name)
	if err := row.Scan(&max); err != nil {
		return errs.E("list.Insert", errs.KindIOError, err)
	}
	key := 1.0
	if max.Valid {
		key = max.Float64 + 1
	}
	return l.insertRow(key, data)
}

func (l *List[T]) prependLocked(v T) error {
	data, err := l.codec.Encode(v)
	if err != nil {
		return errs.E("list.Insert", errs.KindInvalidArgument, err)
	}
	var min sql.NullFloat64
	row := l.db.QueryRow(`SELECT MIN(order_key) FROM `+schema.TableList+` WHERE list_name = ?`, l.name)
	if err := row.Scan(&min); err != nil {
		return errs.E("list.Insert", errs.KindIOError, err)
	}
	key := -1.0
	if min.Valid {
		key = min.Float64 - 1
	}
	return l.insertRow(key, data)
}

// orderKeysAround returns the order keys at positions i-1 and i.
func (l *List[T]) orderKeysAround(i int) ([2]float64, error) {
	var keys [2]float64
	rows, err := l.db.Query(
		`SELECT order_key FROM `+schema.TableList+` WHERE list_name = ?
		 ORDER BY order_key ASC, rowid ASC LIMIT 2 OFFSET ?`,
		l.name, i-1,
	)
	if err != nil {
		return keys, errs.E("list.Insert", errs.KindIOError, err)
	}
	defer rows.Close()

	idx := 0
	for rows.Next() {
		if err := rows.Scan(&keys[idx]); err != nil {
			return keys, errs.E("list.Insert", errs.KindIOError, err)
		}
		idx++
	}
	if idx < 2 {
		return keys, errs.E("list.Insert", errs.KindInvalidArgument, nil)
	}
	return keys, rows.Err()
}
