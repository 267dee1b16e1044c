package state

import (
	"sync"
	"time"

	"github.com/gamc/sensorwatch/internal/sensors"
)

// CacheSnapshot is a consistent copy of the cache.
type CacheSnapshot struct {
	Full      []sensors.Record
	Display   []sensors.Record
	Stats     sensors.StatsSummary
	Limit     int
	UpdatedAt time.Time
}

// Cache holds the full fetched record set and the display window derived from
// it. Display is always the first Limit records of Full; both are replaced
// under one lock so readers never see a mismatched pair.
type Cache struct {
	mu        sync.RWMutex
	full      []sensors.Record
	display   []sensors.Record
	stats     sensors.StatsSummary
	limit     int
	updatedAt time.Time
}

// NewCache returns an empty cache with the given display limit.
func NewCache(limit int) *Cache {
	if limit < 1 {
		limit = DefaultRecordLimit
	}
	return &Cache{limit: limit}
}

// Replace swaps in a freshly fetched record set and its stats.
func (c *Cache) Replace(records []sensors.Record, stats sensors.StatsSummary) {
	full := cloneRecords(records)
	stats = cloneStats(stats)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
	c.stats = stats
	c.display = take(c.full, c.limit)
	c.updatedAt = time.Now()
}

// SetLimit re-slices the display window. It never touches the network.
func (c *Cache) SetLimit(limit int) {
	if limit < 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = limit
	c.display = take(c.full, c.limit)
}

// Reset empties the cache, keeping the limit.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = nil
	c.display = nil
	c.stats = nil
	c.updatedAt = time.Now()
}

// Len returns the size of the full set.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.full)
}

// Snapshot returns a copy of the current cache contents.
func (c *Cache) Snapshot() CacheSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	full := cloneRecords(c.full)
	return CacheSnapshot{
		Full:      full,
		Display:   take(full, c.limit),
		Stats:     cloneStats(c.stats),
		Limit:     c.limit,
		UpdatedAt: c.updatedAt,
	}
}

// take returns the first n records. The result shares backing storage with
// records; records are immutable once cached.
func take(records []sensors.Record, n int) []sensors.Record {
	if len(records) == 0 {
		return nil
	}
	if n > len(records) {
		n = len(records)
	}
	return records[:n:n]
}

func cloneRecords(records []sensors.Record) []sensors.Record {
	if len(records) == 0 {
		return nil
	}
	dup := make([]sensors.Record, len(records))
	copy(dup, records)
	return dup
}

func cloneStats(stats sensors.StatsSummary) sensors.StatsSummary {
	if stats == nil {
		return nil
	}
	dup := make(sensors.StatsSummary, len(stats))
	for k, v := range stats {
		dup[k] = v
	}
	return dup
}
