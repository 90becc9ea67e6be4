// Package cache is an in-process read-through TTL cache. Concurrent misses
// on one key share a single load.
package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key builds a cache key from an operation, an instrument and optional params.
func Key(operation, instrumentID string, params ...string) string {
	parts := make([]string, 0, 2+len(params))
	parts = append(parts, operation, instrumentID)
	parts = append(parts, params...)
	return strings.Join(parts, "|")
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Stats are monotonic counters since construction.
type Stats struct {
	Hits   uint64
	Misses uint64
	Loads  uint64
}

// Cache holds values of one type under a single TTL.
type Cache[V any] struct {
	name  string
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry[V]

	hits   atomic.Uint64
	misses atomic.Uint64
	loads  atomic.Uint64
}

// New creates a cache whose entries expire ttl after they were fetched.
func New[V any](name string, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		name:    name,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
}

// Name identifies the cache in logs and metrics.
func (c *Cache[V]) Name() string { return c.name }

// TTL returns the configured time to live.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Get returns a value only while now < fetched_at + ttl.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.fresh(e) {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores a value stamped with the current time.
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: v, fetchedAt: c.now()}
	c.mu.Unlock()
}

// GetOrLoad returns the cached value or runs load exactly once per key
// across concurrent callers. Errors are not cached. The load runs detached
// from the caller's cancellation so one impatient caller cannot fail the
// others waiting on the same key; ctx still bounds how long this caller waits.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// a caller that lost the race may arrive after the winner stored the value
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && c.fresh(e) {
			return e.value, nil
		}

		c.loads.Add(1)
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Invalidate drops one key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix drops every key starting with prefix.
func (c *Cache[V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Purge drops everything.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if !c.fresh(e) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit/miss/load counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Loads: c.loads.Load()}
}

func (c *Cache[V]) fresh(e entry[V]) bool {
	return c.now().Before(e.fetchedAt.Add(c.ttl))
}

// Sweeper is implemented by every Cache regardless of value type.
type Sweeper interface {
	Name() string
	Sweep() int
	Len() int
	Stats() Stats
}
