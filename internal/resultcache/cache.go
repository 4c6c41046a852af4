// Package resultcache holds recently resolved media descriptors keyed by
// the fingerprint of the normalized source URL. Entries expire on a TTL;
// capacity is bounded with LRU-style eviction so a burst of distinct
// URLs cannot grow the cache without limit.
package resultcache

import (
	"sync/atomic"
	"time"

	"github.com/maypok86/otter"

	"github.com/snapgrab/snapgrab/internal/media"
)

const (
	DefaultTTL      = 300 * time.Second
	DefaultCapacity = 4096
)

// Cache is the bounded TTL cache of resolution results.
type Cache struct {
	cache otter.CacheWithVariableTTL[media.Fingerprint, *media.Descriptor]
	ttl   time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// New builds a cache. Non-positive arguments fall back to the defaults.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache, err := otter.MustBuilder[media.Fingerprint, *media.Descriptor](capacity).
		Cost(func(_ media.Fingerprint, _ *media.Descriptor) uint32 { return 1 }).
		WithVariableTTL().
		Build()
	if err != nil {
		panic("resultcache: failed to create cache: " + err.Error())
	}
	return &Cache{cache: cache, ttl: ttl}
}

// Get returns the cached descriptor for a fingerprint, if fresh.
func (c *Cache) Get(fp media.Fingerprint) (*media.Descriptor, bool) {
	d, ok := c.cache.Get(fp)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return d, ok
}

// Set stores a descriptor under its fingerprint for the cache TTL.
func (c *Cache) Set(fp media.Fingerprint, d *media.Descriptor) {
	c.cache.Set(fp, d, c.ttl)
}

// SetWithTTL stores a descriptor with an explicit TTL, for results whose
// media URLs expire sooner than the default window.
func (c *Cache) SetWithTTL(fp media.Fingerprint, d *media.Descriptor, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.cache.Set(fp, d, ttl)
}

// Delete evicts one entry.
func (c *Cache) Delete(fp media.Fingerprint) {
	c.cache.Delete(fp)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.cache.Clear()
}

// Size reports the current entry count.
func (c *Cache) Size() int {
	return c.cache.Size()
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Stats reports hit/miss counters since process start.
func (c *Cache) Stats() Stats {
	return Stats{
		Size:   c.cache.Size(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// Close releases the cache's background resources.
func (c *Cache) Close() {
	c.cache.Close()
}
