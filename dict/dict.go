package dict

import (
	"database/sql"
	"time"

	"github.com/beaver-db/beaver/codec"
	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
	"github.com/beaver-db/beaver/lock"
)

// Dict is the cached manager for one named dictionary. Create one per
// (session, name) pair; beaver.Session.Dict does the caching.
type Dict[T any] struct {
	db    *sql.DB
	name  string
	codec codec.Codec[T]
	mu    *lock.Lock
}

// New wraps db with a dictionary manager named name, using codec to
// translate values to and from the stored blob column.
func New[T any](db *sql.DB, name string, c codec.Codec[T]) *Dict[T] {
	return &Dict[T]{
		db:    db,
		name:  name,
		codec: c,
		mu:    lock.New(db, "__dict__"+name, lock.Options{}),
	}
}

func nowSeconds() float64 { return float64(time.Now().UnixNano()) / 1e9 }

// Get returns the value stored under key, or a NotFound error if the key
// is absent or its TTL has lapsed (expiry is silent, per the error
// propagation policy: TTL expiry looks like absence, never a distinct
// error kind).
func (d *Dict[T]) Get(key string) (T, error) {
	var zero T

	if err := d.mu.Acquire(0); err != nil {
		return zero, err
	}
	defer d.mu.Release()

	var data []byte
	var expiresAt sql.NullFloat64
	row := d.db.QueryRow(
		`SELECT value, expires_at FROM `+schema.TableDict+` WHERE dict_name = ? AND key = ?`,
		d.name, key,
	)
	if err := row.Scan(&data, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return zero, errs.E("dict.Get", errs.KindNotFound, nil)
		}
		return zero, errs.E("dict.Get", errs.KindIOError, err)
	}

	if expiresAt.Valid && expiresAt.Float64 < nowSeconds() {
		_, _ = d.db.Exec(`DELETE FROM `+schema.TableDict+` WHERE dict_name = ? AND key = ?`, d.name, key)
		return zero, errs.E("dict.Get", errs.KindNotFound, nil)
	}

	v, err := d.codec.Decode(data)
	if err != nil {
		return zero, errs.E("dict.Get", errs.KindCorrupted, err)
	}
	return v, nil
}

// Set stores value under key. A zero ttl means the key never expires.
func (d *Dict[T]) Set(key string, value T, ttl time.Duration) error {
	data, err := d.codec.Encode(value)
	if err != nil {
		return errs.E("dict.Set", errs.KindInvalidArgument, err)
	}

	var expiresAt sql.NullFloat64
	if ttl > 0 {
		expiresAt = sql.NullFloat64{Valid: true, Float64: nowSeconds() + ttl.Seconds()}
	}

	_, err = d.db.Exec(
		`INSERT INTO `+schema.TableDict+` (dict_name, key, value, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(dict_name, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		d.name, key, data, expiresAt,
	)
	if err != nil {
		return errs.E("dict.Set", errs.KindIOError, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (d *Dict[T]) Delete(key string) error {
	_, err := d.db.Exec(`DELETE FROM `+schema.TableDict+` WHERE dict_name = ? AND key = ?`, d.name, key)
	if err != nil {
		return errs.E("dict.Delete", errs.KindIOError, err)
	}
	return nil
}

// Keys returns every non-expired key currently in the dictionary. Expired
// keys encountered along the way are dropped lazily, same as Get.
func (d *Dict[T]) Keys() ([]string, error) {
	if err := d.mu.Acquire(0); err != nil {
		return nil, err
	}
	defer d.mu.Release()

	now := nowSeconds()
	if _, err := d.db.Exec(
		`DELETE FROM `+schema.TableDict+` WHERE dict_name = ? AND expires_at < ?`,
		d.name, now,
	); err != nil {
		return nil, errs.E("dict.Keys", errs.KindIOError, err)
	}

	rows, err := d.db.Query(`SELECT key FROM `+schema.TableDict+` WHERE dict_name = ?`, d.name)
	if err != nil {
		return nil, errs.E("dict.Keys", errs.KindIOError, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errs.E("dict.Keys", errs.KindIOError, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
