package cache

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultLRUSize = 512

type lruEntry struct {
	data      []byte
	expiresAt time.Time
}

// LRUCache is the in-process Cache used when Redis is not configured.
// Entries expire lazily on read.
type LRUCache struct {
	cache *lru.Cache[string, lruEntry]
	now   func() time.Time
}

func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		size = defaultLRUSize
	}
	// lru.New only fails on a non-positive size.
	c, _ := lru.New[string, lruEntry](size)
	return &LRUCache{cache: c, now: time.Now}
}

func (c *LRUCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	e, ok := c.cache.Get(key)
	if !ok {
		return false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.cache.Remove(key)
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		c.cache.Remove(key)
		return false, nil
	}
	return true, nil
}

func (c *LRUCache) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	e := lruEntry{data: b}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.cache.Add(key, e)
	return nil
}

func (c *LRUCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.cache.Remove(k)
	}
	return nil
}

func (c *LRUCache) Len() int { return c.cache.Len() }
