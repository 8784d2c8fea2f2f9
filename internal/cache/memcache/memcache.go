// Package memcache is an in-process BytesCache for deployments that run
// without redis. Entries expire lazily on read.
package memcache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

type MemCache struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

func New() *MemCache {
	return &MemCache{
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *MemCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	v := make([]byte, len(value))
	copy(v, value)
	c.mu.Lock()
	c.m[key] = entry{value: v, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}
