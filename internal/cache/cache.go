package cache

import "sync"

// FrameCache is a generic thread-safe cache that evicts by age in frames.
// An entry survives a Sweep if it was used within the last TTL generations.
//
// FrameCache must not be copied after creation (has mutex).
type FrameCache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]*cacheEntry[V]
	ttl        uint32
	generation uint32 // Advanced once per Sweep
	onEvict    func(K, V)

	hits, misses uint64
}

// cacheEntry holds a cached value with the generation of its last use.
type cacheEntry[V any] struct {
	value V
	gen   uint32
}

// NewFrame creates a cache whose entries live for ttl frames after their last
// use. onEvict, if non-nil, is called for every entry removed by Sweep,
// Delete or Clear. It runs with the cache lock held and must not call back
// into the cache.
func NewFrame[K comparable, V any](ttl uint32, onEvict func(K, V)) *FrameCache[K, V] {
	return &FrameCache[K, V]{
		entries: make(map[K]*cacheEntry[V]),
		ttl:     ttl,
		onEvict: onEvict,
	}
}

// Get retrieves a value and marks it used in the current generation.
func (c *FrameCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	entry.gen = c.generation
	return entry.value, true
}

// Set stores a value in the current generation, replacing any previous one.
// A replaced value is passed to onEvict.
func (c *FrameCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && c.onEvict != nil {
		c.onEvict(key, old.value)
	}
	c.entries[key] = &cacheEntry[V]{value: value, gen: c.generation}
}

// GetOrCreate returns the cached value or creates it.
// create is called under lock to prevent duplicate creation.
func (c *FrameCache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.hits++
		entry.gen = c.generation
		return entry.value
	}
	c.misses++
	value := create()
	c.entries[key] = &cacheEntry[V]{value: value, gen: c.generation}
	return value
}

// Delete removes an entry. Returns true if it was present.
func (c *FrameCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	if c.onEvict != nil {
		c.onEvict(key, entry.value)
	}
	return true
}

// Sweep evicts entries unused for more than TTL generations, then advances
// the generation. Call it once per frame. Returns the number evicted.
func (c *FrameCache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, entry := range c.entries {
		if c.generation-entry.gen <= c.ttl {
			continue
		}
		delete(c.entries, key)
		if c.onEvict != nil {
			c.onEvict(key, entry.value)
		}
		evicted++
	}
	c.generation++
	return evicted
}

// Clear removes all entries.
func (c *FrameCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for key, entry := range c.entries {
			c.onEvict(key, entry.value)
		}
	}
	c.entries = make(map[K]*cacheEntry[V])
}

// Len returns the number of entries in the cache.
func (c *FrameCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Generation returns the current frame generation.
func (c *FrameCache[K, V]) Generation() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation
}

// Stats returns cache statistics.
func (c *FrameCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Len:        len(c.entries),
		TTL:        c.ttl,
		Generation: c.generation,
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// TTL is the number of frames an unused entry survives.
	TTL uint32
	// Generation is the current frame generation.
	Generation uint32
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
}
