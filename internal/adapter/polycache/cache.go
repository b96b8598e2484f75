// Package polycache memoizes flood polygon builds.
package polycache

import (
	"sync"
	"time"

	"github.com/couchcryptid/flood-exposure/internal/domain"
	"github.com/couchcryptid/flood-exposure/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedBuilder wraps a PolygonBuilder with an in-memory LRU cache keyed by
// domain.PolygonKey. Entries expire after ttl; a zero ttl keeps them until
// evicted.
type CachedBuilder struct {
	inner   domain.PolygonBuilder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedBuilder creates a cache decorator around a polygon builder. metrics
// may be nil.
func NewCachedBuilder(inner domain.PolygonBuilder, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedBuilder {
	return &CachedBuilder{
		inner:   inner,
		cache:   newLRUCache(maxEntries, ttl, clock),
		metrics: metrics,
	}
}

// BuildPolygons returns the cached set for identical inputs. Concurrent misses
// on the same key may both build; the last writer wins.
func (c *CachedBuilder) BuildPolygons(mask domain.Mask, t domain.Transform, crs domain.CRS) (domain.PolygonSet, error) {
	key := domain.NewPolygonKey(mask, t, crs)
	if set, ok := c.cache.get(key); ok {
		c.observe("hit")
		return set, nil
	}
	c.observe("miss")

	start := time.Now()
	set, err := c.inner.BuildPolygons(mask, t, crs)
	if err != nil {
		return set, err
	}
	if c.metrics != nil {
		c.metrics.PolygonBuildDuration.Observe(time.Since(start).Seconds())
	}
	c.cache.put(key, set)
	return set, nil
}

// Len is the number of cached entries, expired ones included.
func (c *CachedBuilder) Len() int { return c.cache.len() }

func (c *CachedBuilder) observe(result string) {
	if c.metrics != nil {
		c.metrics.PolygonCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a thread-safe LRU cache of polygon sets with optional expiry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[domain.PolygonKey]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key      domain.PolygonKey
	value    domain.PolygonSet
	storedAt time.Time
	prev     *entry
	next     *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &lruCache{
		maxEntries: max(maxEntries, 1),
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[domain.PolygonKey]*entry),
	}
}

func (c *lruCache) get(key domain.PolygonKey) (domain.PolygonSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.PolygonSet{}, false
	}
	if c.ttl > 0 && c.clock.Since(e.storedAt) > c.ttl {
		delete(c.entries, key)
		c.remove(e)
		return domain.PolygonSet{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key domain.PolygonKey, value domain.PolygonSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.storedAt = c.clock.Now()
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, storedAt: c.clock.Now()}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
