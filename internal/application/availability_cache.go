package application

import (
	"slices"
	"sync"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

// availabilityCache stores computed slot grids per resource and date range so
// that repeated availability queries skip aggregation while the resource's
// reservations remain unchanged. Each resource carries a generation that
// every invalidation bumps; a grid computed under an older generation is
// never stored.
type availabilityCache struct {
	mu          sync.RWMutex
	now         func() time.Time
	ttl         time.Duration
	maxEntries  int
	entries     map[availabilityKey]availabilityEntry
	generations map[string]uint64
}

type availabilityKey struct {
	resourceID string
	from       string
	to         string
}

type availabilityEntry struct {
	days      []scheduler.DayAvailability
	expiresAt time.Time
}

func newAvailabilityCache(ttl time.Duration, maxEntries int, now func() time.Time) *availabilityCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &availabilityCache{
		now:         now,
		ttl:         ttl,
		maxEntries:  maxEntries,
		entries:     make(map[availabilityKey]availabilityEntry),
		generations: make(map[string]uint64),
	}
}

func cacheKey(resourceID string, from, to time.Time) availabilityKey {
	return availabilityKey{
		resourceID: resourceID,
		from:       from.Format(time.DateOnly),
		to:         to.Format(time.DateOnly),
	}
}

func (c *availabilityCache) Get(key availabilityKey) ([]scheduler.DayAvailability, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneDays(entry.days), true
}

// Generation returns the current generation of the resource. Capture it
// before reading the data a grid is computed from.
func (c *availabilityCache) Generation(resourceID string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[resourceID]
}

// Store caches days under key unless the resource was invalidated since
// generation was read. It reports whether the grid was stored.
func (c *availabilityCache) Store(key availabilityKey, generation uint64, days []scheduler.DayAvailability) bool {
	if c == nil {
		return false
	}
	cloned := cloneDays(days)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[key.resourceID] != generation {
		return false
	}
	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = availabilityEntry{days: cloned, expiresAt: expiry}
	return true
}

// InvalidateResource drops every cached range of the resource and bumps its
// generation.
func (c *availabilityCache) InvalidateResource(resourceID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[resourceID]++
	for key := range c.entries {
		if key.resourceID == resourceID {
			delete(c.entries, key)
		}
	}
}

func (c *availabilityCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *availabilityCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// evictOneLocked removes the entry closest to expiry.
func (c *availabilityCache) evictOneLocked() {
	var (
		victim availabilityKey
		oldest time.Time
		found  bool
	)
	for key, entry := range c.entries {
		if !found || entry.expiresAt.Before(oldest) {
			victim, oldest, found = key, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

func cloneDays(days []scheduler.DayAvailability) []scheduler.DayAvailability {
	if len(days) == 0 {
		return nil
	}
	out := make([]scheduler.DayAvailability, len(days))
	for i, day := range days {
		out[i] = scheduler.DayAvailability{Date: day.Date, Slots: slices.Clone(day.Slots)}
	}
	return out
}
