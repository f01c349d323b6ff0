package cache

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/bluele/gcache"
)

// DefaultMemoryEntries is the LRU capacity used when none is given.
const DefaultMemoryEntries = 1024

// MemoryCache is an in-process LRU cache.
type MemoryCache struct {
	lru gcache.Cache
}

// NewMemoryCache creates an LRU cache holding at most size entries.
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	return &MemoryCache{lru: gcache.New(size).LRU().Build()}
}

// Get returns a copy of the stored bytes.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.lru.Get(key)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(data), true, nil
}

// Set stores a copy of data.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl > 0 {
		return c.lru.SetWithExpire(key, slices.Clone(data), ttl)
	}
	return c.lru.Set(key, slices.Clone(data))
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int { return c.lru.Len(true) }

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
