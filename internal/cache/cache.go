// Package cache provides the in-process TTL cache shared by all request
// handlers. It bounds outbound call volume to the Airtable and geocoding
// backends for repeated identical searches.
package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an entry remains valid.
	DefaultTTL = 30 * time.Minute

	// DefaultMaxEntries bounds memory use. When the cache is full, expired
	// entries are dropped first; if none are expired the oldest entry goes.
	DefaultMaxEntries = 10_000
)

type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL cache with a capacity bound.
// Keys are composite strings built by callers from the operation name and its
// normalized arguments, so cache behavior stays visible in each caller's
// contract rather than hiding behind an implicit wrapper.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = oldest insertion
	ttl        time.Duration
	maxEntries int
	now        func() time.Time // overrideable in tests
}

// New creates a Cache with the given TTL and capacity.
// Non-positive arguments fall back to the package defaults.
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value for key, or (nil, false) when the key is
// absent or expired. Expired entries are removed on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.remove(el)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with an expiry of now + TTL, evicting if the
// cache is at capacity. Re-setting an existing key refreshes its expiry and
// insertion order.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	if c.order.Len() >= c.maxEntries {
		c.evictOne()
	}

	e := &entry{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
	c.entries[key] = c.order.PushBack(e)
}

// Len returns the current number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// evictOne removes the first expired entry, or the oldest entry when nothing
// has expired yet. Caller must hold the mutex.
func (c *Cache) evictOne() {
	now := c.now()
	for el := c.order.Front(); el != nil; el = el.Next() {
		if now.After(el.Value.(*entry).expiresAt) {
			c.remove(el)
			return
		}
	}
	if el := c.order.Front(); el != nil {
		c.remove(el)
	}
}

// remove unlinks an element from both indexes. Caller must hold the mutex.
func (c *Cache) remove(el *list.Element) {
	delete(c.entries, el.Value.(*entry).key)
	c.order.Remove(el)
}
