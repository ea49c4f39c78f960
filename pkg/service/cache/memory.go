package cache

import (
	"context"
	"sync"
	"time"
)

// SweepInterval is the minimum time between two scans for expired entries
const SweepInterval = time.Minute

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process TTL cache. Expired entries are dropped when read, and all of them
// are swept from Set at most once per SweepInterval.
type Memory struct {
	entries sync.Map
	now     func() time.Time

	sweepMu   sync.Mutex
	nextSweep time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// NewMemoryWithClock is for tests that need to move time
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{now: now}
}

func (c *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok := c.entries.Load(key)
	if !ok {
		return nil, false, nil
	}

	entry := val.(*memoryEntry)
	if !c.now().Before(entry.expiresAt) {
		c.entries.CompareAndDelete(key, entry)
		return nil, false, nil
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (c *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	now := c.now()
	c.sweep(now)

	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries.Store(key, &memoryEntry{
		value:     stored,
		expiresAt: now.Add(ttl),
	})
	return nil
}

func (c *Memory) sweep(now time.Time) {
	c.sweepMu.Lock()
	if now.Before(c.nextSweep) {
		c.sweepMu.Unlock()
		return
	}
	c.nextSweep = now.Add(SweepInterval)
	c.sweepMu.Unlock()

	c.entries.Range(func(key, val any) bool {
		if entry := val.(*memoryEntry); !now.Before(entry.expiresAt) {
			c.entries.CompareAndDelete(key, entry)
		}
		return true
	})
}
