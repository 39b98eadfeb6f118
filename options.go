package beaver

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beaver-db/beaver/channel"
	"github.com/beaver-db/beaver/lock"
	"github.com/beaver-db/beaver/queue"
	"github.com/beaver-db/beaver/vector"
)

// Options configures a Session. The zero value is valid and fills in the
// same defaults each manager package would choose on its own.
type Options struct {
	// LockTTL and LockPollInterval size any lock a caller opens directly
	// with Session.Lock. Defaults: 30s, 50ms. The internal locks each
	// manager creates for itself do not read these fields; they use the
	// lock package's own defaults (also 30s and 50ms).
	LockTTL          time.Duration `yaml:"lock_ttl"`
	LockPollInterval time.Duration `yaml:"lock_poll_interval"`

	// QueuePollInterval sizes the jittered retry sleep for blocking
	// Queue.Get calls. Default: 50ms.
	QueuePollInterval time.Duration `yaml:"queue_poll_interval"`

	// ChannelPollInterval sizes the fan-out tick for every Channel.
	// Default: 50ms.
	ChannelPollInterval time.Duration `yaml:"channel_poll_interval"`

	// VectorCompactionThreshold is the default number of ids in a
	// vector.Index's in-memory delta at which an Insert triggers an
	// asynchronous compaction. Default: 1000.
	VectorCompactionThreshold int `yaml:"vector_compaction_threshold"`

	// MmapBytes is the memory-mapped I/O budget applied via PRAGMA
	// mmap_size, per §4.A's "memory-mapped I/O enabled to a configurable
	// byte budget". Default: 256MiB.
	MmapBytes int64 `yaml:"mmap_bytes"`

	// CacheEnabled toggles SQLite's page cache. A nil value (the zero
	// value for the untyped struct literal callers normally write) means
	// "use the default", same as every numeric field above; explicitly
	// setting it to false disables the cache via PRAGMA cache_size = 0,
	// which is occasionally useful for exercising the on-disk read path
	// directly in tests. Default: enabled.
	CacheEnabled *bool `yaml:"cache_enabled"`
}

// ptrBool returns a pointer to a bool value, letting Options express
// "unset" distinctly from "explicitly false" for CacheEnabled.
func ptrBool(b bool) *bool { return &b }

func (o Options) withDefaults() Options {
	if o.LockTTL <= 0 {
		o.LockTTL = 30 * time.Second
	}
	if o.LockPollInterval <= 0 {
		o.LockPollInterval = 50 * time.Millisecond
	}
	if o.QueuePollInterval <= 0 {
		o.QueuePollInterval = 50 * time.Millisecond
	}
	if o.ChannelPollInterval <= 0 {
		o.ChannelPollInterval = 50 * time.Millisecond
	}
	if o.VectorCompactionThreshold <= 0 {
		o.VectorCompactionThreshold = vector.CompactionThreshold
	}
	if o.MmapBytes <= 0 {
		o.MmapBytes = 268435456
	}
	if o.CacheEnabled == nil {
		o.CacheEnabled = ptrBool(true)
	}
	return o
}

func (o Options) lockOptions() lock.Options {
	return lock.Options{TTL: o.LockTTL, PollInterval: o.LockPollInterval}
}

func (o Options) queueOptions() queue.Options {
	return queue.Options{PollInterval: o.QueuePollInterval}
}

func (o Options) channelOptions() channel.Options {
	return channel.Options{PollInterval: o.ChannelPollInterval}
}

// LoadOptions reads Options from a YAML file, the same config-as-file
// convention this module's teacher lineage uses for its node configs.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, E("beaver.LoadOptions", KindIOError, err)
	}
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, E("beaver.LoadOptions", KindInvalidArgument, err)
	}
	return opts, nil
}
