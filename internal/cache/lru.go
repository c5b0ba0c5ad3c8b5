package cache

import (
	"container/list"
	"errors"
)

// ErrInvalidCapacity is returned for a cache that could hold nothing.
var ErrInvalidCapacity = errors.New("cache capacity must be positive")

type entry struct {
	key   string
	value []byte
}

// PutResult describes the outcome of Put.
type PutResult struct {
	// Inserted is false when the key was already cached.
	Inserted bool
	// Evicted is true when making room removed EvictedKey.
	Evicted    bool
	EvictedKey string
}

// LRU is a fixed-capacity cache with strict least-recently-used eviction.
type LRU struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

// New creates an empty cache holding at most capacity entries.
func New(capacity int) (*LRU, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &LRU{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}, nil
}

// Put inserts key as the most recently used entry, evicting the least
// recently used one first if the cache is full. An already cached key is
// rejected without any change.
func (c *LRU) Put(key string, value []byte) PutResult {
	if _, ok := c.items[key]; ok {
		return PutResult{}
	}

	var res PutResult
	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		e := c.order.Remove(oldest).(*entry)
		delete(c.items, e.key)
		res.Evicted = true
		res.EvictedKey = e.key
	}

	c.items[key] = c.order.PushBack(&entry{key: key, value: copyBytes(value)})
	res.Inserted = true
	return res
}

// Get returns a copy of the cached value and promotes key to most
// recently used.
func (c *LRU) Get(key string) ([]byte, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToBack(el)
	return copyBytes(el.Value.(*entry).value), true
}

// Update replaces the value of a cached key in place and promotes it.
// It returns false if key is not cached.
func (c *LRU) Update(key string, value []byte) bool {
	el, ok := c.items[key]
	if !ok {
		return false
	}
	el.Value.(*entry).value = copyBytes(value)
	c.order.MoveToBack(el)
	return true
}

// Contains reports whether key is cached without touching its recency.
func (c *LRU) Contains(key string) bool {
	_, ok := c.items[key]
	return ok
}

// Remove deletes key. It returns false if key is not cached.
func (c *LRU) Remove(key string) bool {
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// Keys returns the cached keys from least to most recently used.
func (c *LRU) Keys() []string {
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	return c.order.Len()
}

// Cap returns the capacity.
func (c *LRU) Cap() int {
	return c.capacity
}

// Full reports whether the next Put of a new key will evict.
func (c *LRU) Full() bool {
	return c.order.Len() >= c.capacity
}

// Clear drops every entry.
func (c *LRU) Clear() {
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
