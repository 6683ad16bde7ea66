// internal/minting/cache.go
package minting

import (
	"math"
	"sync"
	"sync/atomic"
)

type cacheKey struct {
	supply        int64
	stepSize      int64
	initialSupply int64
	baseCost      int64
}

// Cache memoizes Info results per (floored supply, schedule).
// Results do not depend on the cache; it only saves recomputation for pollers
// that observe the same supply many times.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]MintingInfo
	limit   int

	hits   uint64
	misses uint64
}

// NewCache creates a cache holding at most limit entries (0 means 1024).
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = 1024
	}
	return &Cache{
		entries: make(map[cacheKey]MintingInfo, limit),
		limit:   limit,
	}
}

// Info returns the memoized MintingInfo for the schedule at totalSupply.
func (c *Cache) Info(s Schedule, totalSupply float64) MintingInfo {
	supply := coerceSupply(totalSupply)
	// The fractional part only shows up in Debug.TotalSupply, so fractional
	// observations bypass the cache.
	if supply != math.Floor(supply) {
		return s.Info(totalSupply)
	}

	n := s.normalized()
	key := cacheKey{
		supply:        int64(supply),
		stepSize:      n.StepSize,
		initialSupply: n.InitialSupply,
		baseCost:      n.BaseCost,
	}

	c.mu.RLock()
	info, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		atomic.AddUint64(&c.hits, 1)
		info.Debug.TokenType = s.Label
		return info
	}

	atomic.AddUint64(&c.misses, 1)
	info = s.Info(totalSupply)

	c.mu.Lock()
	if len(c.entries) >= c.limit {
		c.entries = make(map[cacheKey]MintingInfo, c.limit)
	}
	c.entries[key] = info
	c.mu.Unlock()

	return info
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}
