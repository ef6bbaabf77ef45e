package engine

import (
	"container/list"
	"sync"
)

// resultCache is a size-bounded LRU cache of aggregation results. Entries
// never expire: keys embed the dataset content hash, so a new snapshot never
// hits a stale entry.
type resultCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lru     *list.List

	hits   uint64
	misses uint64
}

type cacheItem[T any] struct {
	key  string
	data T
}

func newResultCache[T any](maxSize int) *resultCache[T] {
	return &resultCache[T]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *resultCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	c.hits++
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheItem[T]).data, true
}

// Set stores a value, evicting the least recently used entry when full. A
// cache with maxSize <= 0 stores nothing.
func (c *resultCache[T]) Set(key string, data T) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{key: key, data: data}
	if elem, ok := c.items[key]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(item)
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			delete(c.items, oldest.Value.(*cacheItem[T]).key)
			c.lru.Remove(oldest)
		}
	}
}

// Purge drops every entry.
func (c *resultCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
}

// CacheStats reports cache usage.
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

func (c *resultCache[T]) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.items), Hits: c.hits, Misses: c.misses}
}
