package beaver

import (
	"database/sql"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	_ "modernc.org/sqlite"

	"github.com/beaver-db/beaver/blob"
	"github.com/beaver-db/beaver/channel"
	"github.com/beaver-db/beaver/codec"
	"github.com/beaver-db/beaver/collection"
	"github.com/beaver-db/beaver/dict"
	"github.com/beaver-db/beaver/internal/schema"
	"github.com/beaver-db/beaver/list"
	"github.com/beaver-db/beaver/lock"
	"github.com/beaver-db/beaver/pkg/log"
	"github.com/beaver-db/beaver/queue"
	"github.com/beaver-db/beaver/tslog"
)

// Session owns the single SQLite file backing every structure opened
// against it, and caches one manager instance per (kind, name) so repeated
// calls to Dict/List/Queue/... return the same instance rather than racing
// two managers against the same rows.
type Session struct {
	db   *sql.DB
	opts Options

	mu        sync.Mutex
	closed    bool
	registry  map[string]any
	shutdowns []func() error
}

// Open opens (creating if necessary) the single-file datastore at path and
// ensures its schema exists. Opening the same path from multiple processes
// is safe; schema bootstrap is idempotent and every manager's own internal
// lock coordinates concurrent writers.
func Open(path string, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, E("beaver.Open", KindIOError, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		fmt.Sprintf("PRAGMA mmap_size = %d", opts.MmapBytes),
	}
	if opts.CacheEnabled != nil && !*opts.CacheEnabled {
		pragmas = append(pragmas, "PRAGMA cache_size = 0")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, E("beaver.Open", KindIOError, fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if err := schema.Ensure(db); err != nil {
		db.Close()
		return nil, E("beaver.Open", KindIOError, err)
	}

	return &Session{
		db:       db,
		opts:     opts,
		registry: make(map[string]any),
	}, nil
}

// Close shuts down every background goroutine owned by a manager this
// session created (channel fan-out loops) and closes the underlying
// database handle. Close is idempotent-unsafe: calling it twice returns
// ErrAlreadyClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return E("beaver.Close", KindAlreadyClosed, nil)
	}
	s.closed = true
	shutdowns := s.shutdowns
	s.mu.Unlock()

	var g errgroup.Group
	for _, fn := range shutdowns {
		fn := fn
		g.Go(fn)
	}
	if err := g.Wait(); err != nil {
		log.WithComponent("session").Error().Err(err).Msg("error shutting down a manager")
	}

	if err := s.db.Close(); err != nil {
		return E("beaver.Close", KindIOError, err)
	}
	return nil
}

// Stats reports the underlying connection pool's open-handle count and
// the number of distinct (kind, name) managers cached on this session,
// mirroring the teacher's GetRaftStats observability shape. handles is
// the database/sql pool's own handle count rather than a separately
// tracked registry: Go's *sql.DB already allocates and pools one
// connection per concurrent goroutine internally, so its own stats are
// the handle-count analogue of §4.A's per-thread handle registry here.
func (s *Session) Stats() (handles int, managers int) {
	s.mu.Lock()
	managers = len(s.registry)
	s.mu.Unlock()
	return s.db.Stats().OpenConnections, managers
}

// Lock opens a user-facing named lock on the session's database. User
// locks and the fair locks every manager uses internally never collide:
// managers always prefix their lock names with "__<kind>__".
func (s *Session) Lock(name string) *lock.Lock {
	return getOrCreate(s, "lock", name, func() *lock.Lock {
		return lock.New(s.db, name, s.opts.lockOptions())
	})
}

// Dict returns the keyed mapping named name, creating it on first use.
func Dict[T any](s *Session, name string, c codec.Codec[T]) *dict.Dict[T] {
	return getOrCreate(s, "dict:"+typeKey[T](), name, func() *dict.Dict[T] {
		return dict.New[T](s.db, name, c)
	})
}

// List returns the ordered sequence named name, creating it on first use.
func List[T any](s *Session, name string, c codec.Codec[T]) *list.List[T] {
	return getOrCreate(s, "list:"+typeKey[T](), name, func() *list.List[T] {
		return list.New[T](s.db, name, c)
	})
}

// Queue returns the priority queue named name, creating it on first use.
func Queue[T any](s *Session, name string, c codec.Codec[T]) *queue.Queue[T] {
	return getOrCreate(s, "queue:"+typeKey[T](), name, func() *queue.Queue[T] {
		return queue.New[T](s.db, name, c, s.opts.queueOptions())
	})
}

// Channel returns the pub/sub channel named name, creating it on first
// use. The session registers the channel's Shutdown method so any
// forgotten subscribers are force-closed when the session closes.
func Channel[T any](s *Session, name string, c codec.Codec[T]) *channel.Channel[T] {
	return getOrCreate(s, "channel:"+typeKey[T](), name, func() *channel.Channel[T] {
		// getOrCreate already holds s.mu while create runs, so appending
		// to s.shutdowns here needs no lock of its own.
		ch := channel.New[T](s.db, name, c, s.opts.channelOptions())
		s.shutdowns = append(s.shutdowns, ch.Shutdown)
		return ch
	})
}

// Log returns the time-indexed append log named name, creating it on
// first use. Named Log rather than TSLog at the call site; the package
// housing the implementation is named tslog only to avoid shadowing the
// standard library's log package within that package's own source.
func Log[T any](s *Session, name string, c codec.Codec[T]) *tslog.Log[T] {
	return getOrCreate(s, "log:"+typeKey[T](), name, func() *tslog.Log[T] {
		return tslog.New[T](s.db, name, c)
	})
}

// Blobs returns the blob store named name, creating it on first use.
func (s *Session) Blobs(name string) *blob.Store {
	return getOrCreate(s, "blob", name, func() *blob.Store {
		return blob.New(s.db, name)
	})
}

// Collection returns the document collection named name, creating it on
// first use. compactionThreshold overrides the session default for this
// collection's vector index; pass 0 to use the session's configured
// default.
func (s *Session) Collection(name string, compactionThreshold int) *collection.Collection {
	if compactionThreshold <= 0 {
		compactionThreshold = s.opts.VectorCompactionThreshold
	}
	return getOrCreate(s, "collection", name, func() *collection.Collection {
		return collection.New(s.db, name, compactionThreshold)
	})
}

func typeKey[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

func getOrCreate[M any](s *Session, kind, name string, create func() M) M {
	key := kind + "\x00" + name

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.registry[key]; ok {
		return existing.(M)
	}
	m := create()
	s.registry[key] = m
	return m
}
