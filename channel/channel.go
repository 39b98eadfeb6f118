package channel

import (
	"database/sql"
	"time"

	"github.com/beaver-db/beaver/codec"
	"github.com/beaver-db/beaver/errs"
	"github.com/beaver-db/beaver/internal/schema"
	"github.com/beaver-db/beaver/pkg/log"
	"github.com/beaver-db/beaver/pkg/metrics"

	"sync"
)

// Options configures a Channel's fan-out poll interval.
type Options struct {
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 50 * time.Millisecond
	}
	return o
}

// Channel is the cached manager for one named pub/sub channel.
type Channel[T any] struct {
	db    *sql.DB
	name  string
	codec codec.Codec[T]
	opts  Options

	mu         sync.Mutex
	subs       map[*Subscription[T]]struct{}
	stopCh     chan struct{}
	lastSeenID int64
}

// New wraps db with a channel manager named name.
func New[T any](db *sql.DB, name string, c codec.Codec[T], opts Options) *Channel[T] {
	return &Channel[T]{
		db:    db,
		name:  name,
		codec: c,
		opts:  opts.withDefaults(),
		subs:  make(map[*Subscription[T]]struct{}),
	}
}

// Publish persists payload and makes it visible to every subscriber's
// next fan-out tick, in this and every other process.
func (c *Channel[T]) Publish(payload T) error {
	data, err := c.codec.Encode(payload)
	if err != nil {
		return errs.E("channel.Publish", errs.KindInvalidArgument, err)
	}
	_, err = c.db.Exec(
		`INSERT INTO `+schema.TablePubsub+` (channel_name, payload, published_at) VALUES (?, ?, ?)`,
		c.name, data, float64(time.Now().UnixNano())/1e9,
	)
	if err != nil {
		return errs.E("channel.Publish", errs.KindIOError, err)
	}
	return nil
}

// Subscribe registers a new subscription that observes only messages
// published after this call returns. The first subscription in the
// process spawns the channel's fan-out goroutine.
func (c *Channel[T]) Subscribe() (*Subscription[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.subs) == 0 {
		var max int64
		row := c.db.QueryRow(
			`SELECT COALESCE(MAX(msg_id), 0) FROM `+schema.TablePubsub+` WHERE channel_name = ?`,
			c.name,
		)
		if err := row.Scan(&max); err != nil {
			return nil, errs.E("channel.Subscribe", errs.KindIOError, err)
		}
		c.lastSeenID = max
		c.stopCh = make(chan struct{})
		go c.runFanout(c.stopCh)
	}

	sub := newSubscription[T]()
	c.subs[sub] = struct{}{}
	metrics.ChannelSubscribers.WithLabelValues(c.name).Set(float64(len(c.subs)))
	return sub, nil
}

// Unsubscribe removes sub from the channel's delivery set. Once the last
// subscription in the process is removed, the fan-out goroutine stops.
func (c *Channel[T]) Unsubscribe(sub *Subscription[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.subs[sub]; !ok {
		return
	}
	delete(c.subs, sub)
	sub.close()
	metrics.ChannelSubscribers.WithLabelValues(c.name).Set(float64(len(c.subs)))

	if len(c.subs) == 0 && c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}

// Shutdown force-closes every live subscription (each Listen call returns
// ErrAlreadyClosed) and stops the fan-out goroutine if it is running. Called
// by the owning session on Close so a channel with forgotten subscribers
// never leaks its background goroutine.
func (c *Channel[T]) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for sub := range c.subs {
		sub.close()
		delete(c.subs, sub)
	}
	metrics.ChannelSubscribers.WithLabelValues(c.name).Set(0)

	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	return nil
}

// Stats reports the current in-process subscriber count.
func (c *Channel[T]) Stats() (subscribers int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Channel[T]) runFanout(stop chan struct{}) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.pollOnce(); err != nil {
				log.WithComponent("channel").Error().Err(err).Str("channel_name", c.name).Msg("fan-out poll failed")
			}
		case <-stop:
			return
		}
	}
}

func (c *Channel[T]) pollOnce() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.subs) == 0 {
		return nil
	}

	rows, err := c.db.Query(
		`SELECT msg_id, payload, published_at FROM `+schema.TablePubsub+` WHERE channel_name = ? AND msg_id > ? ORDER BY msg_id ASC`,
		c.name, c.lastSeenID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	delivered := 0
	var oldestPending float64
	for rows.Next() {
		var id int64
		var data []byte
		var publishedAt float64
		if err := rows.Scan(&id, &data, &publishedAt); err != nil {
			return err
		}
		if delivered == 0 {
			oldestPending = publishedAt
		}
		delivered++

		v, err := c.codec.Decode(data)
		if err != nil {
			log.WithComponent("channel").Error().Err(err).Str("channel_name", c.name).Msg("dropping undecodable message")
			c.lastSeenID = id
			continue
		}
		for sub := range c.subs {
			sub.push(v)
		}
		c.lastSeenID = id
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if delivered == 0 {
		metrics.ChannelFanoutLagSeconds.WithLabelValues(c.name).Set(0)
	} else {
		lag := float64(time.Now().UnixNano())/1e9 - oldestPending
		if lag < 0 {
			lag = 0
		}
		metrics.ChannelFanoutLagSeconds.WithLabelValues(c.name).Set(lag)
	}
	return nil
}
