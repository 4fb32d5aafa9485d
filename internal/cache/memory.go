package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider with per-key expiry, used when no
// shared cache is configured.
type MemoryProvider struct {
	mu        sync.RWMutex
	data      map[string]item
	now       func() time.Time
	nextSweep time.Time
}

// sweepInterval bounds how often Set scans for expired entries. Result keys
// embed the snapshot ID, so stale entries are never read again and only a
// sweep reclaims them.
const sweepInterval = time.Minute

type item struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider creates an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string]item), now: time.Now}
}

// Get returns a copy of the cached value if present and not expired.
func (c *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if !it.expiresAt.IsZero() && c.now().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), it.value...), nil
}

// Set stores a copy of value. A non-positive ttl never expires.
func (c *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !now.Before(c.nextSweep) {
		c.sweepLocked(now)
		c.nextSweep = now.Add(sweepInterval)
	}
	c.data[key] = item{value: append([]byte(nil), value...), expiresAt: expires}
	return nil
}

func (c *MemoryProvider) sweepLocked(now time.Time) {
	for key, it := range c.data {
		if !it.expiresAt.IsZero() && now.After(it.expiresAt) {
			delete(c.data, key)
		}
	}
}

// Del removes an entry.
func (c *MemoryProvider) Del(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryProvider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close drops every entry.
func (c *MemoryProvider) Close() error {
	c.mu.Lock()
	c.data = make(map[string]item)
	c.mu.Unlock()
	return nil
}
