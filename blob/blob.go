package blob

import (
	"database/sql"
	"encoding/json"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
)

// Store is the cached manager for one named blob store.
type Store struct {
	db   *sql.DB
	name string
}

// New wraps db with a blob store manager named name.
func New(db *sql.DB, name string) *Store {
	return &Store{db: db, name: name}
}

// Put writes data under key with an optional metadata map, round-tripped
// through JSON per the blob metadata design decision.
func (s *Store) Put(key string, data []byte, metadata map[string]any) error {
	var metaJSON []byte
	if metadata != nil {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return errs.E("blob.Put", errs.KindInvalidArgument, err)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO `+schema.TableBlob+` (store_name, key, data, metadata) VALUES (?, ?, ?, ?)
		 ON CONFLICT(store_name, key) DO UPDATE SET data = excluded.data, metadata = excluded.metadata`,
		s.name, key, data, metaJSON,
	)
	if err != nil {
		return errs.E("blob.Put", errs.KindIOError, err)
	}
	return nil
}

// Get returns the bytes and metadata stored under key.
func (s *Store) Get(key string) ([]byte, map[string]any, error) {
	var data []byte
	var metaJSON sql.NullString
	row := s.db.QueryRow(
		`SELECT data, metadata FROM `+schema.TableBlob+` WHERE store_name = ? AND key = ?`,
		s.name, key,
	)
	if err := row.Scan(&data, &metaJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, errs.E("blob.Get", errs.KindNotFound, nil)
		}
		return nil, nil, errs.E("blob.Get", errs.KindIOError, err)
	}

	var metadata map[string]any
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &metadata); err != nil {
			return nil, nil, errs.E("blob.Get", errs.KindCorrupted, err)
		}
	}
	return data, metadata, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM `+schema.TableBlob+` WHERE store_name = ? AND key = ?`, s.name, key); err != nil {
		return errs.E("blob.Delete", errs.KindIOError, err)
	}
	return nil
}

// Keys returns every key currently stored.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM `+schema.TableBlob+` WHERE store_name = ?`, s.name)
	if err != nil {
		return nil, errs.E("blob.Keys", errs.KindIOError, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errs.E("blob.Keys", errs.KindIOError, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
