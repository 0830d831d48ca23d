package util

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a concurrency-safe map bounded by entry age and count. Entries not
// touched for longer than the TTL are dropped on the next access, and the
// least recently used entry goes first once the cap is reached.
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	ttl time.Duration
	max int
	now func() time.Time

	lru *list.List          // front=MRU
	m   map[K]*list.Element // key -> element(Value=*cacheEntry)
}

type cacheEntry[K comparable, V any] struct {
	key      K
	val      V
	lastUsed time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*cacheOpts)

type cacheOpts struct {
	now func() time.Time
}

// WithCacheClock overrides the time source, used by tests.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(o *cacheOpts) { o.now = now }
}

// NewCache creates a Cache. A non-positive ttl disables expiry and a
// non-positive maxEntries disables the size cap.
func NewCache[K comparable, V any](ttl time.Duration, maxEntries int, opts ...CacheOption) *Cache[K, V] {
	o := cacheOpts{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		ttl: ttl,
		max: maxEntries,
		now: o.now,
		lru: list.New(),
		m:   make(map[K]*list.Element),
	}
}

// Get returns the value for key and marks it recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked(now)
	e := c.m[key]
	if e == nil {
		var zero V
		return zero, false
	}
	it := e.Value.(*cacheEntry[K, V])
	it.lastUsed = now
	c.lru.MoveToFront(e)
	return it.val, true
}

// Set stores val under key, evicting the oldest entries past the cap.
func (c *Cache[K, V]) Set(key K, val V) {
	c.Update(key, func(V, bool) V { return val })
}

// Update applies fn to the current value for key (the zero value when absent)
// and stores the result, all under one lock.
func (c *Cache[K, V]) Update(key K, fn func(V, bool) V) V {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked(now)
	var cur V
	e := c.m[key]
	if e != nil {
		cur = e.Value.(*cacheEntry[K, V]).val
	}
	next := fn(cur, e != nil)
	if e != nil {
		it := e.Value.(*cacheEntry[K, V])
		it.val = next
		it.lastUsed = now
		c.lru.MoveToFront(e)
		return next
	}
	c.m[key] = c.lru.PushFront(&cacheEntry[K, V]{key: key, val: next, lastUsed: now})
	for c.max > 0 && c.lru.Len() > c.max {
		c.deleteElemLocked(c.lru.Back())
	}
	return next
}

// Delete drops key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.m[key]; e != nil {
		c.deleteElemLocked(e)
	}
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked(now)
	return c.lru.Len()
}

func (c *Cache[K, V]) evictExpiredLocked(now time.Time) {
	if c.ttl <= 0 {
		return
	}
	for e := c.lru.Back(); e != nil; {
		prev := e.Prev()
		if now.Sub(e.Value.(*cacheEntry[K, V]).lastUsed) <= c.ttl {
			return
		}
		c.deleteElemLocked(e)
		e = prev
	}
}

func (c *Cache[K, V]) deleteElemLocked(e *list.Element) {
	delete(c.m, e.Value.(*cacheEntry[K, V]).key)
	c.lru.Remove(e)
}
