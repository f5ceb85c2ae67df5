package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

// MemoryCache is a process-local ReferralCache used in tests.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry

	// Now is overridable so tests can advance the clock.
	Now func() time.Time
}

// NewMemoryCache builds an in-memory ReferralCache with the given entry TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, email string) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[email]
	if !ok {
		return nil, nil
	}
	if c.Now().After(entry.expiresAt) {
		delete(c.entries, email)
		return nil, nil
	}
	snap := entry.snap
	return &snap, nil
}

func (c *MemoryCache) Set(_ context.Context, email string, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[email] = memoryEntry{snap: snap, expiresAt: c.Now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, email)
	return nil
}
