// Package cache provides a process-local TTL memoization cache for fetched
// upstream data. Callers pass an explicit TTL and force-refresh flag; entries
// are locked per key so concurrent callers of the same key trigger at most one
// fetch and never lose updates.
package cache

import (
	"context"
	"sync"
	"time"
)

type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
}

type entry[V any] struct {
	mu        sync.Mutex
	value     V
	fetchedAt time.Time
	ok        bool
}

func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]*entry[V])}
}

// GetOrFetch returns the cached value for key if it is younger than ttl and
// force is false; otherwise it runs fetch and caches the result. When fetch
// fails and a previous value exists, the stale value is served instead of the
// error (the caller keeps seeing old data rather than nothing).
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, force bool, fetch func(context.Context) (V, error)) (V, error) {
	e := c.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !force && e.ok && time.Since(e.fetchedAt) < ttl {
		return e.value, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		if e.ok {
			return e.value, nil
		}
		var zero V
		return zero, err
	}

	e.value = v
	e.fetchedAt = time.Now()
	e.ok = true
	return v, nil
}

// Invalidate drops one key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every cached entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

func (c *Cache[V]) entry(key string) *entry[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	return e
}
