package lrucache

import (
	"sync"
)

// LRUCache keeps entries ordered by recency of use.
type LRUCache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Peek(key K) (V, bool)
	Put(key K, value V)
	Remove(key K) bool
	Len() int
	Keys() []K
}

type cacheEntry[K comparable, V any] struct {
	value V
	prev  *cacheEntry[K, V]
	next  *cacheEntry[K, V]
	key   K
}

type cacheImpl[K comparable, V any] struct {
	entries map[K]*cacheEntry[K, V]
	head    *cacheEntry[K, V]
	tail    *cacheEntry[K, V]
	maxSize int
	mu      sync.Mutex
}

// New creates a cache holding at most maxSize entries, the least recently
// used entry is dropped on overflow. A maxSize of 0 or less never evicts,
// leaving eviction to the caller via Keys and Remove.
func New[K comparable, V any](maxSize int) LRUCache[K, V] {
	return &cacheImpl[K, V]{
		entries: make(map[K]*cacheEntry[K, V]),
		maxSize: maxSize,
	}
}

// Get returns the value and marks it as most recently used.
func (c *cacheImpl[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.moveToFront(entry)

	return entry.value, true
}

// Peek returns the value without touching recency.
func (c *cacheImpl[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *cacheImpl[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Check if already exists
	if entry, ok := c.entries[key]; ok {
		entry.value = value
		c.moveToFront(entry)
		return
	}

	entry := &cacheEntry[K, V]{
		value: value,
		key:   key,
	}

	c.entries[key] = entry
	c.addToFront(entry)

	if c.maxSize > 0 && len(c.entries) > c.maxSize {
		c.evictLRU()
	}
}

func (c *cacheImpl[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	c.unlink(entry)
	delete(c.entries, key)
	return true
}

func (c *cacheImpl[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys lists keys from the least to the most recently used.
func (c *cacheImpl[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.entries))
	for entry := c.tail; entry != nil; entry = entry.prev {
		keys = append(keys, entry.key)
	}
	return keys
}

func (c *cacheImpl[K, V]) moveToFront(entry *cacheEntry[K, V]) {
	if entry == c.head {
		return
	}
	c.unlink(entry)
	c.addToFront(entry)
}

func (c *cacheImpl[K, V]) unlink(entry *cacheEntry[K, V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
	entry.prev = nil
	entry.next = nil
}

func (c *cacheImpl[K, V]) addToFront(entry *cacheEntry[K, V]) {
	entry.next = c.head
	entry.prev = nil

	if c.head != nil {
		c.head.prev = entry
	}
	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *cacheImpl[K, V]) evictLRU() {
	if c.tail == nil {
		return
	}

	oldTail := c.tail
	c.unlink(oldTail)
	delete(c.entries, oldTail.key)
}
