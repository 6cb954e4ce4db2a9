package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 10 * time.Minute

type entry[V any] struct {
	value    V
	storedAt time.Time
	expiry   time.Time
}

// Cache is a thread-safe TTL cache whose misses are populated by a loader.
// Concurrent misses for one key share a single load, and failed loads are
// never stored.
type Cache[V any] struct {
	entries map[string]entry[V]
	group   singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
	mu      sync.RWMutex
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now             func() time.Time
	cleanupInterval time.Duration
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCleanupInterval sets how often expired entries are purged; zero
// disables the background sweep.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.cleanupInterval = d }
}

// New creates a cache with the given TTL.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	o := options{now: time.Now, cleanupInterval: ttl}
	for _, fn := range opts {
		fn(&o)
	}
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     o.now,
		stopCh:  make(chan struct{}),
	}
	if o.cleanupInterval > 0 {
		go c.cleanup(o.cleanupInterval)
	}
	return c
}

// TTL returns the configured lifetime of an entry.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Peek returns a fresh entry without loading.
func (c *Cache[V]) Peek(key string) (V, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiry) {
		var zero V
		return zero, time.Time{}, false
	}
	return e.value, e.storedAt, true
}

// Get returns the fresh entry for key, or runs load once across concurrent
// callers and stores its result. hit reports whether no load was needed.
//
// The shared load runs detached from any single caller's cancellation; each
// caller stops waiting when its own ctx ends, and the load keeps going for
// the others.
func (c *Cache[V]) Get(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (v V, hit bool, err error) {
	if v, _, ok := c.Peek(key); ok {
		return v, true, nil
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if v, _, ok := c.Peek(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	var zero V
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(V), false, nil
	}
}

// Set stores value under key with a fresh TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[key] = entry[V]{value: value, storedAt: now, expiry: now.Add(c.ttl)}
}

// Invalidate drops one key so the next Get reloads it.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll drops every entry.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

func (c *Cache[V]) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiry) {
			delete(c.entries, k)
		}
	}
}

// Close stops the cleanup goroutine.
func (c *Cache[V]) Close() {
	c.once.Do(func() { close(c.stopCh) })
}
