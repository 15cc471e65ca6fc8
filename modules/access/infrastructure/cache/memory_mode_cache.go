package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

// MemoryModeCache is the default in-process isolation-mode cache. Expiry is
// checked on read; nothing sweeps in the background, which is fine at one
// small entry per tenant.
type MemoryModeCache struct {
	mu      sync.Mutex
	entries map[string]memoryModeEntry
	now     func() time.Time
}

type memoryModeEntry struct {
	mode      types.IsolationMode
	expiresAt time.Time
}

func NewMemoryModeCache() *MemoryModeCache {
	return &MemoryModeCache{entries: map[string]memoryModeEntry{}, now: time.Now}
}

func (c *MemoryModeCache) Get(_ context.Context, tenantID string) (types.IsolationMode, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[tenantID]
	if !ok {
		return "", false, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, tenantID)
		return "", false, nil
	}
	return e.mode, true, nil
}

func (c *MemoryModeCache) Set(_ context.Context, tenantID string, mode types.IsolationMode, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = memoryModeEntry{mode: mode, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryModeCache) Invalidate(_ context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

var _ ports.ModeCache = (*MemoryModeCache)(nil)
