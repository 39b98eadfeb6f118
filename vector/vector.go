package vector

import (
	"database/sql"
	"encoding/json"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
	"github.com/beaver-db/beaver/lock"
	"github.com/beaver-db/beaver/pkg/log"
	"github.com/beaver-db/beaver/pkg/metrics"
)

// CompactionThreshold is the default number of ids held in an Index's
// in-memory delta (inserted or overwritten since the last snapshot) at
// which Insert triggers an automatic background compaction. Deletes do
// not count toward it.
const CompactionThreshold = 1000

// Match is one search result.
type Match struct {
	ID       string
	Distance float64
}

// Index is the per-(collection, process) vector search structure.
type Index struct {
	db             *sql.DB
	collectionName string
	threshold      int

	// instanceID identifies this process's in-memory Index in log lines,
	// distinguishing which process's delta/tombstone state a compaction
	// or rebuild failure came from when several processes share one
	// collection.
	instanceID string

	compactLock *lock.Lock
	sf          singleflight.Group

	mu               sync.Mutex
	baseIDs          []string
	baseVecs         [][]float32
	baseIndex        map[string]int
	delta            map[string][]float32
	tombstones       map[string]struct{}
	localBaseVersion int64
	lastSeenLogID    int64
	everSynced       bool
}

// New creates a vector index instance for collectionName. It starts
// empty; the first Search populates it from the collection table.
func New(db *sql.DB, collectionName string, threshold int) *Index {
	if threshold <= 0 {
		threshold = CompactionThreshold
	}
	return &Index{
		db:             db,
		collectionName: collectionName,
		threshold:      threshold,
		instanceID:     uuid.New().String(),
		compactLock:    lock.New(db, "__vector_compact__"+collectionName, lock.Options{}),
		baseIndex:      make(map[string]int),
		delta:          make(map[string][]float32),
		tombstones:     make(map[string]struct{}),
	}
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func isZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

const cosineEpsilon = 1e-12

func cosineDistance(q, v []float32) float64 {
	var dot float64
	n := len(q)
	if len(v) < n {
		n = len(v)
	}
	for i := 0; i < n; i++ {
		dot += float64(q[i]) * float64(v[i])
	}
	return 1 - dot/(norm(q)*norm(v)+cosineEpsilon)
}

// Insert upserts id's vector and metadata, making the write immediately
// visible to this process's subsequent Search calls.
func (idx *Index) Insert(id string, v []float32, metadata map[string]any) error {
	if isZero(v) {
		return errs.E("vector.Insert", errs.KindInvalidArgument, nil)
	}

	var metaJSON []byte
	if metadata != nil {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return errs.E("vector.Insert", errs.KindInvalidArgument, err)
		}
	}
	vecBytes := encodeVector(v)

	tx, err := idx.db.Begin()
	if err != nil {
		return errs.E("vector.Insert", errs.KindIOError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO `+schema.TableCollection+` (collection_name, item_id, vector, metadata) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection_name, item_id) DO UPDATE SET vector = excluded.vector, metadata = excluded.metadata`,
		idx.collectionName, id, vecBytes, metaJSON,
	); err != nil {
		return errs.E("vector.Insert", errs.KindIOError, err)
	}

	res, err := tx.Exec(
		`INSERT INTO `+schema.TableVectorLog+` (collection_name, item_id, op) VALUES (?, ?, ?)`,
		idx.collectionName, id, schema.VectorOpInsert,
	)
	if err != nil {
		return errs.E("vector.Insert", errs.KindIOError, err)
	}
	logID, err := res.LastInsertId()
	if err != nil {
		return errs.E("vector.Insert", errs.KindIOError, err)
	}

	if err := tx.Commit(); err != nil {
		return errs.E("vector.Insert", errs.KindIOError, err)
	}

	idx.mu.Lock()
	idx.delta[id] = v
	delete(idx.tombstones, id)
	if logID > idx.lastSeenLogID {
		idx.lastSeenLogID = logID
	}
	pending := len(idx.delta)
	idx.mu.Unlock()

	if pending >= idx.threshold {
		idx.triggerCompaction()
	}
	return nil
}

// Delete tombstones id, symmetric to Insert.
func (idx *Index) Delete(id string) error {
	res, err := idx.db.Exec(
		`INSERT INTO `+schema.TableVectorLog+` (collection_name, item_id, op) VALUES (?, ?, ?)`,
		idx.collectionName, id, schema.VectorOpDelete,
	)
	if err != nil {
		return errs.E("vector.Delete", errs.KindIOError, err)
	}
	logID, err := res.LastInsertId()
	if err != nil {
		return errs.E("vector.Delete", errs.KindIOError, err)
	}

	idx.mu.Lock()
	idx.tombstones[id] = struct{}{}
	delete(idx.delta, id)
	if logID > idx.lastSeenLogID {
		idx.lastSeenLogID = logID
	}
	idx.mu.Unlock()
	return nil
}

// Search synchronizes this process's view with the shared change log
// (and, if necessary, rebuilds from the base table on a compaction
// epoch bump) then returns the k ids with smallest cosine distance to
// query.
func (idx *Index) Search(query []float32, k int) ([]Match, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.VectorSearchSeconds, idx.collectionName)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.syncLocked(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(idx.baseIDs)+len(idx.delta))
	for i, id := range idx.baseIDs {
		if _, dead := idx.tombstones[id]; dead {
			continue
		}
		if _, overridden := idx.delta[id]; overridden {
			continue
		}
		matches = append(matches, Match{ID: id, Distance: cosineDistance(query, idx.baseVecs[i])})
	}
	for id, v := range idx.delta {
		matches = append(matches, Match{ID: id, Distance: cosineDistance(query, v)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (idx *Index) readBaseVersion() (int64, error) {
	var v int64
	row := idx.db.QueryRow(
		`SELECT base_version FROM `+schema.TableCollectionVersion+` WHERE collection_name = ?`,
		idx.collectionName,
	)
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}

func (idx *Index) syncLocked() error {
	dbVersion, err := idx.readBaseVersion()
	if err != nil {
		return errs.E("vector.Search", errs.KindIOError, err)
	}

	if !idx.everSynced || dbVersion > idx.localBaseVersion {
		if idx.everSynced {
			time.Sleep(time.Duration(rand.Float64() * float64(time.Second)))
			dbVersion, err = idx.readBaseVersion()
			if err != nil {
				return errs.E("vector.Search", errs.KindIOError, err)
			}
		}
		return idx.rebuildLocked(dbVersion)
	}
	return idx.catchUpLocked()
}

// rebuildLocked discards the in-memory delta/tombstone state and
// replays the collection table plus any change log entries newer than
// the snapshot it just took, establishing a fresh last_seen_log_id.
func (idx *Index) rebuildLocked(version int64) error {
	var maxLogID int64
	row := idx.db.QueryRow(
		`SELECT COALESCE(MAX(log_id), 0) FROM `+schema.TableVectorLog+` WHERE collection_name = ?`,
		idx.collectionName,
	)
	if err := row.Scan(&maxLogID); err != nil {
		return errs.E("vector.Search", errs.KindIOError, err)
	}

	rows, err := idx.db.Query(
		`SELECT item_id, vector FROM `+schema.TableCollection+` WHERE collection_name = ?`,
		idx.collectionName,
	)
	if err != nil {
		return errs.E("vector.Search", errs.KindIOError, err)
	}
	defer rows.Close()

	baseIDs := make([]string, 0)
	baseVecs := make([][]float32, 0)
	baseIndex := make(map[string]int)
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return errs.E("vector.Search", errs.KindIOError, err)
		}
		v, err := decodeVector(data)
		if err != nil {
			return err
		}
		baseIndex[id] = len(baseIDs)
		baseIDs = append(baseIDs, id)
		baseVecs = append(baseVecs, v)
	}
	if err := rows.Err(); err != nil {
		return errs.E("vector.Search", errs.KindIOError, err)
	}

	idx.baseIDs = baseIDs
	idx.baseVecs = baseVecs
	idx.baseIndex = baseIndex
	idx.delta = make(map[string][]float32)
	idx.tombstones = make(map[string]struct{})
	idx.localBaseVersion = version
	idx.lastSeenLogID = 0
	idx.everSynced = true
	metrics.VectorRebuildsTotal.WithLabelValues(idx.collectionName).Inc()

	return idx.catchUpToLocked(maxLogID)
}

func (idx *Index) catchUpLocked() error {
	var maxLogID int64
	row := idx.db.QueryRow(
		`SELECT COALESCE(MAX(log_id), 0) FROM `+schema.TableVectorLog+` WHERE collection_name = ?`,
		idx.collectionName,
	)
	if err := row.Scan(&maxLogID); err != nil {
		return errs.E("vector.Search", errs.KindIOError, err)
	}
	return idx.catchUpToLocked(maxLogID)
}

func (idx *Index) catchUpToLocked(upTo int64) error {
	if upTo <= idx.lastSeenLogID {
		return nil
	}

	rows, err := idx.db.Query(
		`SELECT log_id, item_id, op FROM `+schema.TableVectorLog+`
		 WHERE collection_name = ? AND log_id > ? AND log_id <= ? ORDER BY log_id ASC`,
		idx.collectionName, idx.lastSeenLogID, upTo,
	)
	if err != nil {
		return errs.E("vector.Search", errs.KindIOError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var logID int64
		var id string
		var op int
		if err := rows.Scan(&logID, &id, &op); err != nil {
			return errs.E("vector.Search", errs.KindIOError, err)
		}

		switch op {
		case schema.VectorOpInsert:
			var data []byte
			vrow := idx.db.QueryRow(
				`SELECT vector FROM `+schema.TableCollection+` WHERE collection_name = ? AND item_id = ?`,
				idx.collectionName, id,
			)
			if err := vrow.Scan(&data); err != nil {
				if err == sql.ErrNoRows {
					// the id was subsequently deleted and compacted away; skip.
					continue
				}
				return errs.E("vector.Search", errs.KindIOError, err)
			}
			v, err := decodeVector(data)
			if err != nil {
				return err
			}
			idx.delta[id] = v
			delete(idx.tombstones, id)
		case schema.VectorOpDelete:
			idx.tombstones[id] = struct{}{}
			delete(idx.delta, id)
		}
		idx.lastSeenLogID = logID
	}
	return rows.Err()
}

func (idx *Index) triggerCompaction() {
	go func() {
		if _, err, _ := idx.sf.Do("compact", func() (any, error) {
			return nil, idx.Compact()
		}); err != nil {
			log.WithComponent("vector").Error().Err(err).
				Str("collection_name", idx.collectionName).
				Str("instance_id", idx.instanceID).
				Msg("background compaction failed")
		}
	}()
}

// Compact deletes tombstoned rows from the collection table, clears the
// change log, and bumps base_version, all under a named inter-process
// lock so only one process compacts a given collection at a time. If
// another process is already compacting, Compact returns immediately
// without doing anything.
func (idx *Index) Compact() error {
	ok, err := idx.compactLock.TryAcquire()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer idx.compactLock.Release()

	tx, err := idx.db.Begin()
	if err != nil {
		return errs.E("vector.Compact", errs.KindIOError, err)
	}
	defer tx.Rollback()

	// Only drop ids whose most recent change-log entry is a delete — an
	// id that was deleted and then re-inserted within this epoch has a
	// live row in beaver_collection that a delete earlier in the log must
	// not shadow (spec's tombstone definition is keyed on the *latest*
	// entry, not "any" delete entry).
	if _, err := tx.Exec(
		`DELETE FROM `+schema.TableCollection+` WHERE collection_name = ? AND item_id IN (
			SELECT v.item_id FROM `+schema.TableVectorLog+` v
			WHERE v.collection_name = ? AND v.op = ?
			AND NOT EXISTS (
				SELECT 1 FROM `+schema.TableVectorLog+` v2
				WHERE v2.collection_name = v.collection_name
				AND v2.item_id = v.item_id
				AND v2.log_id > v.log_id
			)
		)`,
		idx.collectionName, idx.collectionName, schema.VectorOpDelete,
	); err != nil {
		return errs.E("vector.Compact", errs.KindIOError, err)
	}

	if _, err := tx.Exec(`DELETE FROM `+schema.TableVectorLog+` WHERE collection_name = ?`, idx.collectionName); err != nil {
		return errs.E("vector.Compact", errs.KindIOError, err)
	}

	if _, err := tx.Exec(
		`INSERT INTO `+schema.TableCollectionVersion+` (collection_name, base_version) VALUES (?, 1)
		 ON CONFLICT(collection_name) DO UPDATE SET base_version = base_version + 1`,
		idx.collectionName,
	); err != nil {
		return errs.E("vector.Compact", errs.KindIOError, err)
	}

	if err := tx.Commit(); err != nil {
		return errs.E("vector.Compact", errs.KindIOError, err)
	}
	metrics.VectorCompactionsTotal.WithLabelValues(idx.collectionName).Inc()

	idx.mu.Lock()
	version, verr := idx.readBaseVersion()
	if verr == nil {
		_ = idx.rebuildLocked(version)
	}
	idx.mu.Unlock()

	return nil
}
