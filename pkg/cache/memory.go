package cache

import (
	"container/list"
	"sync"
	"time"
)

// memoryEntry is a single cached value with its insertion time.
// Expiry is evaluated lazily against the cache TTL; there is no sweeper
// goroutine, capacity bounds total memory regardless.
type memoryEntry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

func (e *memoryEntry[V]) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) >= e.ttl
}

// BoundedTTLCache is a generic in-process cache bounded by entry count and TTL.
//
// Eviction is FIFO by insertion order: when a new key would exceed capacity the
// oldest-inserted entry is dropped first. Overwriting an existing key refreshes
// its position at the back of the queue; reads do not. Expired entries are
// removed lazily on read and opportunistically on write.
//
// All methods are safe for concurrent use. The internal mutex is only held for
// the in-memory state transition, never across I/O or any other suspension
// point. Values are returned as stored; callers that share mutable values
// across goroutines must treat them as read-only.
type BoundedTTLCache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = oldest insertion
}

// NewBoundedTTLCache creates a cache holding at most capacity entries, each
// valid for ttl after insertion. Capacity below 1 is clamped to 1.
func NewBoundedTTLCache[V any](capacity int, ttl time.Duration) *BoundedTTLCache[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &BoundedTTLCache[V]{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the value for key if present and not expired.
// An expired entry is removed as a side effect and reported as a miss.
func (c *BoundedTTLCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		CacheMisses.WithLabelValues(LayerMemory).Inc()
		return zero, false
	}

	entry := el.Value.(*memoryEntry[V])
	if entry.expired(time.Now()) {
		c.removeLocked(el)
		CacheExpirations.Inc()
		CacheMisses.WithLabelValues(LayerMemory).Inc()
		return zero, false
	}

	CacheHits.WithLabelValues(LayerMemory).Inc()
	return entry.value, true
}

// Set inserts or overwrites the value for key. Overwriting moves the key to
// the back of the eviction queue. When inserting a new key at capacity,
// expired entries are dropped first; if the cache is still full the
// oldest-inserted entry is evicted.
func (c *BoundedTTLCache[V]) Set(key string, value V) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*memoryEntry[V])
		entry.value = value
		entry.insertedAt = now
		c.order.MoveToBack(el)
		return
	}

	if len(c.entries) >= c.capacity {
		c.dropExpiredLocked(now)
	}
	if len(c.entries) >= c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			c.removeLocked(oldest)
			CacheEvictions.Inc()
		}
	}

	el := c.order.PushBack(&memoryEntry[V]{
		key:        key,
		value:      value,
		insertedAt: now,
		ttl:        c.ttl,
	})
	c.entries[key] = el
}

// Delete removes the entry for key. It reports whether an entry was present.
func (c *BoundedTTLCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(el)
	return true
}

// Clear removes all entries.
func (c *BoundedTTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the current number of entries, including entries that have
// expired but have not yet been removed by a read.
func (c *BoundedTTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// IsEmpty reports whether the cache holds no entries.
func (c *BoundedTTLCache[V]) IsEmpty() bool {
	return c.Len() == 0
}

// Capacity returns the configured maximum entry count.
func (c *BoundedTTLCache[V]) Capacity() int {
	return c.capacity
}

// TTL returns the configured entry lifetime.
func (c *BoundedTTLCache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *BoundedTTLCache[V]) removeLocked(el *list.Element) {
	entry := el.Value.(*memoryEntry[V])
	c.order.Remove(el)
	delete(c.entries, entry.key)
}

// dropExpiredLocked removes all expired entries. Called on insertion at
// capacity so stale entries are reclaimed before a live one is evicted.
func (c *BoundedTTLCache[V]) dropExpiredLocked(now time.Time) {
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*memoryEntry[V]).expired(now) {
			c.removeLocked(el)
			CacheExpirations.Inc()
		}
		el = next
	}
}
