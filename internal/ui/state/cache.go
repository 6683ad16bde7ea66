package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rovshanmuradov/pubprinter/internal/monitor"
	"go.uber.org/zap"
)

// Notice is a one-line alert shown in the dashboard feed.
type Notice struct {
	At      time.Time
	Symbol  string
	Kind    string
	Message string
}

// SnapshotCache provides thread-safe UI state caching
type SnapshotCache struct {
	mu        sync.RWMutex
	order     []string
	snapshots map[string]monitor.Snapshot
	notices   []Notice
	maxNotice int
	logger    *zap.Logger

	// Statistics (accessed atomically)
	reads  uint64
	writes uint64
}

func NewSnapshotCache(maxNotices int, logger *zap.Logger) *SnapshotCache {
	if maxNotices <= 0 {
		maxNotices = 20
	}
	return &SnapshotCache{
		snapshots: make(map[string]monitor.Snapshot),
		maxNotice: maxNotices,
		logger:    logger,
	}
}

// Replace swaps in a full set of snapshots, keeping their order.
func (c *SnapshotCache) Replace(snaps []monitor.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = c.order[:0]
	c.snapshots = make(map[string]monitor.Snapshot, len(snaps))
	for _, s := range snaps {
		c.order = append(c.order, s.Token.Symbol)
		c.snapshots[s.Token.Symbol] = s
	}
	atomic.AddUint64(&c.writes, 1)
}

// Get returns a copy of the snapshot for symbol.
func (c *SnapshotCache) Get(symbol string) (monitor.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	s, ok := c.snapshots[symbol]
	return s, ok
}

// At returns the i-th snapshot in display order.
func (c *SnapshotCache) At(i int) (monitor.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	if i < 0 || i >= len(c.order) {
		return monitor.Snapshot{}, false
	}
	return c.snapshots[c.order[i]], true
}

// All returns the snapshots in display order.
func (c *SnapshotCache) All() []monitor.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	out := make([]monitor.Snapshot, 0, len(c.order))
	for _, sym := range c.order {
		out = append(out, c.snapshots[sym])
	}
	return out
}

// AddNotice appends to the alert feed, dropping the oldest when full.
func (c *SnapshotCache) AddNotice(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n.At.IsZero() {
		n.At = time.Now()
	}
	if len(c.notices) >= c.maxNotice {
		c.notices = c.notices[1:]
	}
	c.notices = append(c.notices, n)
	atomic.AddUint64(&c.writes, 1)
}

// Notices returns up to limit most recent notices, newest first.
func (c *SnapshotCache) Notices(limit int) []Notice {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	if limit <= 0 || limit > len(c.notices) {
		limit = len(c.notices)
	}
	out := make([]Notice, 0, limit)
	for i := len(c.notices) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, c.notices[i])
	}
	return out
}

// Stale lists symbols whose snapshot shows values from an earlier refresh.
func (c *SnapshotCache) Stale() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for _, sym := range c.order {
		if c.snapshots[sym].Stale {
			out = append(out, sym)
		}
	}
	return out
}

// GetStats returns cache statistics
func (c *SnapshotCache) GetStats() (tokens, reads, writes uint64) {
	c.mu.RLock()
	tokens = uint64(len(c.snapshots))
	c.mu.RUnlock()

	reads = atomic.LoadUint64(&c.reads)
	writes = atomic.LoadUint64(&c.writes)
	return tokens, reads, writes
}

// CleanupNotices removes notices older than maxAge.
func (c *SnapshotCache) CleanupNotices(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	kept := c.notices[:0]
	for _, n := range c.notices {
		if !n.At.Before(cutoff) {
			kept = append(kept, n)
		}
	}
	removed := len(c.notices) - len(kept)
	c.notices = kept

	if removed > 0 {
		c.logger.Debug("Cleaned up old notices",
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.notices)))
	}
	return removed
}
