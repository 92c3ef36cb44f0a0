// Package cache provides result caching for reasoner queries.
//
// The character retriever asks the reasoner the same instance question for
// every phenotype class that describes a given state, so repeated queries
// are common within a run. Answers are valid until the ontology changes;
// callers Clear the cache after adding axioms.
//
// Features:
// - LRU eviction for bounded memory
// - TTL expiration for long-running processes
// - Thread-safe operations
// - Cache hit/miss statistics
//
// Usage:
//
//	c := cache.NewResultCache(1000, 0)
//
//	key := cache.Key("instances", ce.String(), false)
//	if v, ok := c.Get(key); ok {
//		return v.([]owl.IRI), nil
//	}
//	result := compute()
//	c.Put(key, result)
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ResultCache is a thread-safe LRU cache of query results.
type ResultCache struct {
	mu sync.Mutex

	// Configuration
	maxSize int
	ttl     time.Duration
	enabled bool

	// LRU list and map
	list  *list.List
	items map[uint64]*list.Element

	// Statistics
	hits   uint64
	misses uint64
}

// cacheEntry holds a cached item with metadata.
type cacheEntry struct {
	key       uint64
	value     any
	expiresAt time.Time
}

// NewResultCache creates a new result cache.
//
// Parameters:
//   - maxSize: Maximum number of cached results (LRU eviction when exceeded)
//   - ttl: Time-to-live for cached entries (0 = no expiration)
func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &ResultCache{
		maxSize: maxSize,
		ttl:     ttl,
		enabled: true,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
	}
}

// Key hashes a query kind, the canonical rendering of its argument and the
// direct flag into a cache key.
func Key(kind, expression string, direct bool) uint64 {
	d := xxhash.New()
	d.WriteString(kind)
	d.Write([]byte{0})
	d.WriteString(expression)
	if direct {
		d.Write([]byte{1})
	} else {
		d.Write([]byte{0})
	}
	return d.Sum64()
}

// Get retrieves a cached result if present and not expired.
//
// Returns (value, true) on cache hit, (nil, false) on miss.
// Moves the entry to front of LRU list on hit.
func (c *ResultCache) Get(key uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	elem, ok := c.items[key]
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.list.MoveToFront(elem)
	atomic.AddUint64(&c.hits, 1)
	return entry.value, true
}

// Put adds a result to the cache.
//
// If the cache is full, the least recently used entry is evicted.
// If the key already exists, the value is updated.
func (c *ResultCache) Put(key uint64, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		if c.ttl > 0 {
			entry.expiresAt = time.Now().Add(c.ttl)
		}
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictOldest()
	}

	entry := &cacheEntry{
		key:   key,
		value: value,
	}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	c.items[key] = c.list.PushFront(entry)
}

// Remove removes an entry from the cache.
func (c *ResultCache) Remove(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries from the cache.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list.Init()
	c.items = make(map[uint64]*list.Element, c.maxSize)
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Stats returns cache statistics.
func (c *ResultCache) Stats() Stats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	c.mu.Lock()
	size := c.list.Len()
	c.mu.Unlock()

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return Stats{
		Size:    size,
		MaxSize: c.maxSize,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// Stats holds cache performance statistics.
type Stats struct {
	Size    int     // Current number of entries
	MaxSize int     // Maximum capacity
	Hits    uint64  // Number of cache hits
	Misses  uint64  // Number of cache misses
	HitRate float64 // Hit rate percentage (0-100)
}

// SetEnabled enables or disables the cache. Disabling drops every entry.
func (c *ResultCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled

	if !enabled {
		c.list.Init()
		c.items = make(map[uint64]*list.Element, c.maxSize)
	}
}

// evictOldest removes the least recently used entry.
// Caller must hold the lock.
func (c *ResultCache) evictOldest() {
	if elem := c.list.Back(); elem != nil {
		c.removeElement(elem)
	}
}

// removeElement removes an element from the cache.
// Caller must hold the lock.
func (c *ResultCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).key)
}
