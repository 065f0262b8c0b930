// Package texcache provides a byte-budgeted, key-addressed cache of GPU
// texture resources with LRU eviction, explicit disposal and
// reference-counted pinning.
package texcache

import (
	"log"
	"sort"
	"sync"
	"time"

	"terrastream/internal/world"
)

// TextureType distinguishes the per-chunk textures a chunk load depends on.
type TextureType uint8

const (
	TextureHeight TextureType = iota
	TextureSurface
	TextureNormal
)

var textureTypeNames = [...]string{"height", "surface", "normal"}

func (t TextureType) String() string {
	if int(t) < len(textureTypeNames) {
		return textureTypeNames[t]
	}
	return "unknown"
}

// Key addresses one cached resource: a texture of a given type and LOD
// belonging to one chunk.
type Key struct {
	Owner world.PartitionKey
	Type  TextureType
	LOD   int8
}

// Resource is an externally produced object the cache owns until eviction
// or removal. Dispose must release any GPU handle and is called exactly
// once, on the thread that drives the cache.
type Resource interface {
	Dispose()
}

// evictTarget is the fraction of the byte budget eviction shrinks usage to.
// The slack keeps a full cache from evicting on every subsequent insert.
const evictTarget = 0.8

type entry struct {
	key        Key
	res        Resource
	sizeBytes  int64
	lastAccess time.Time
	pins       int
}

// Cache is the sole owner of texture resources. All methods are safe for
// concurrent use, though production inserts happen on the frame thread.
type Cache struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	current  int64
	max      int64
	now      func() time.Time
	evicted  uint64
	overWarn bool
}

// NewCache creates a cache with the given byte budget.
func NewCache(maxBytes int64) *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		max:     maxBytes,
		now:     time.Now,
	}
}

// Get returns the resource for a key. A hit refreshes the entry's LRU
// recency.
func (c *Cache) Get(k Key) (Resource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	e.lastAccess = c.now()
	return e.res, true
}

// Has reports presence without touching recency.
func (c *Cache) Has(k Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[k]
	return ok
}

// HasType reports whether any LOD of the given texture type is present for
// an owner.
func (c *Cache) HasType(owner world.PartitionKey, t TextureType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Owner == owner && k.Type == t {
			return true
		}
	}
	return false
}

// Set inserts or replaces a resource. Replacement disposes the prior
// resource synchronously and adjusts the byte counter before the new entry
// lands, then an eviction pass runs if the budget is exceeded.
func (c *Cache) Set(k Key, res Resource, sizeBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[k]; ok {
		c.current -= old.sizeBytes
		old.res.Dispose()
		delete(c.entries, k)
	}

	c.entries[k] = &entry{
		key:        k,
		res:        res,
		sizeBytes:  sizeBytes,
		lastAccess: c.now(),
	}
	c.current += sizeBytes
	c.evictIfNeededLocked()
}

// Pin marks a key as in use by a resident chunk. Pinned entries are skipped
// during eviction. Pins nest.
func (c *Cache) Pin(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok {
		e.pins++
	}
}

// Unpin releases one pin. Unpinning an absent or unpinned key is a no-op.
func (c *Cache) Unpin(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok && e.pins > 0 {
		e.pins--
	}
}

// RemoveOwner disposes and removes every entry belonging to a chunk,
// regardless of pins. Used on chunk unload to free per-chunk textures
// deterministically instead of waiting for LRU pressure. Returns the number
// of entries removed.
func (c *Cache) RemoveOwner(owner world.PartitionKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if k.Owner != owner {
			continue
		}
		c.current -= e.sizeBytes
		e.res.Dispose()
		delete(c.entries, k)
		removed++
	}
	return removed
}

// Clear disposes everything and resets the byte counter.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		e.res.Dispose()
		delete(c.entries, k)
	}
	c.current = 0
	c.overWarn = false
}

// SizeBytes returns current usage.
func (c *Cache) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evicted returns the total number of entries removed by LRU pressure.
func (c *Cache) Evicted() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evicted
}

// evictIfNeededLocked removes least-recently-accessed entries until usage
// falls to the hysteresis target. Pinned entries are skipped: evicting a
// texture a resident chunk still samples would corrupt it.
func (c *Cache) evictIfNeededLocked() {
	if c.current <= c.max {
		return
	}

	victims := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		victims = append(victims, e)
	}
	sort.Slice(victims, func(i, j int) bool {
		return victims[i].lastAccess.Before(victims[j].lastAccess)
	})

	target := int64(float64(c.max) * evictTarget)
	for _, e := range victims {
		if c.current <= target {
			break
		}
		if e.pins > 0 {
			log.Printf("texcache: skipping pinned entry %v/%s during eviction", e.key.Owner, e.key.Type)
			continue
		}
		c.current -= e.sizeBytes
		e.res.Dispose()
		delete(c.entries, e.key)
		c.evicted++
	}

	if c.current > c.max {
		if !c.overWarn {
			log.Printf("texcache: cannot reach byte budget, %d/%d bytes pinned or oversized", c.current, c.max)
			c.overWarn = true
		}
	} else {
		c.overWarn = false
	}
}
