// Package cache implements the client-side response cache: a TTL map keyed by
// a digest of the logical request, optionally backed by a persistent Store.
//
// Reads never block on the network and never return errors. A stale entry is
// indistinguishable from a missing one and is dropped on access.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/memoria/internal/cryptox"
	"github.com/dmitrijs2005/memoria/internal/logging"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

func (e entry[V]) fresh(now time.Time) bool {
	return now.Sub(e.storedAt) <= e.ttl
}

type options struct {
	store  Store
	now    func() time.Time
	logger logging.Logger
}

type Option func(*options)

// WithStore enables read-through and write-through persistence.
func WithStore(s Store) Option {
	return func(o *options) { o.store = s }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Cache is safe for concurrent use. Each operation runs inside one critical
// section, including its store I/O, so the last completed Put for a key wins
// in memory and in the store alike.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	store   Store
	now     func() time.Time
	log     logging.Logger
}

func New[V any](opts ...Option) *Cache[V] {
	o := options{now: time.Now, logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		store:   o.store,
		now:     o.now,
		log:     o.logger,
	}
}

// Key derives a fixed-length cache key from the parts of a logical request,
// typically method, path and canonical query.
func Key(parts ...string) string {
	return cryptox.Digest(parts...)
}

// Get returns the value stored under key if it is still fresh.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		if e.fresh(now) {
			return e.value, true
		}
		delete(c.entries, key)
		c.deleteStored(ctx, key)
		return zero, false
	}

	if c.store == nil {
		return zero, false
	}

	rec, ok, err := c.store.Load(ctx, key)
	if errors.Is(err, ErrMalformedRecord) {
		c.log.Warn(ctx, "dropping malformed cache record", "key", key, "error", err)
		c.deleteStored(ctx, key)
		return zero, false
	}
	if err != nil {
		c.log.Warn(ctx, "cache store load failed", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	if !rec.Fresh(now) {
		c.deleteStored(ctx, key)
		return zero, false
	}

	var v V
	if err := json.Unmarshal(rec.Value, &v); err != nil {
		c.log.Warn(ctx, "dropping malformed cache record", "key", key, "error", err)
		c.deleteStored(ctx, key)
		return zero, false
	}

	c.entries[key] = entry[V]{value: v, storedAt: rec.StoredAt, ttl: rec.TTL}
	return v, true
}

// Put stores value under key for ttl, replacing any previous entry. A
// non-positive ttl expires immediately: the key is removed and nothing is
// stored.
func (c *Cache[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.entries, key)
		c.deleteStored(ctx, key)
		return
	}

	e := entry[V]{value: value, storedAt: c.now(), ttl: ttl}
	c.entries[key] = e

	if c.store == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn(ctx, "cache value not persisted", "key", key, "error", err)
		c.deleteStored(ctx, key)
		return
	}
	if err := c.store.Save(ctx, key, Record{Value: data, StoredAt: e.storedAt, TTL: ttl}); err != nil {
		c.log.Warn(ctx, "cache store save failed", "key", key, "error", err)
	}
}

func (c *Cache[V]) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	c.deleteStored(ctx, key)
}

// Sweep removes every stale entry from memory and from the store and returns
// the number of distinct keys removed. Calling it twice in a row is harmless;
// the second call removes nothing.
func (c *Cache[V]) Sweep(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := make(map[string]struct{})
	for k, e := range c.entries {
		if !e.fresh(now) {
			delete(c.entries, k)
			removed[k] = struct{}{}
		}
	}

	if c.store != nil {
		keys, err := c.store.DeleteExpired(ctx, now)
		if err != nil {
			c.log.Warn(ctx, "cache store sweep failed", "error", err)
		}
		for _, k := range keys {
			removed[k] = struct{}{}
		}
		// Entries that were swept in memory may still sit in the store if it
		// ignores the injected clock.
		for k := range removed {
			c.deleteStored(ctx, k)
		}
	}

	return len(removed)
}

// Len reports the number of in-memory entries, fresh or not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartSweeper runs Sweep every interval until ctx is done. The returned
// channel is closed once the sweeper has stopped. A non-positive interval
// disables sweeping.
func (c *Cache[V]) StartSweeper(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(ctx); n > 0 {
					c.log.Debug(ctx, "cache swept", "removed", n)
				}
			}
		}
	}()

	return done
}

func (c *Cache[V]) deleteStored(ctx context.Context, key string) {
	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.log.Warn(ctx, "cache store delete failed", "key", key, "error", err)
	}
}
