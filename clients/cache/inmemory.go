package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// InMemoryCache is a size bounded LRU cache local to the process.
// The lru cache does its own locking. Expired entries are reported as
// missing and stay in place until overwritten or evicted, so a read
// never removes a value a concurrent Set just stored.
type InMemoryCache struct {
	data *lru.Cache[string, cacheItem]
	now  func() time.Time
}

var _ Cache = (*InMemoryCache)(nil)

type cacheItem struct {
	data       []byte
	expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewInMemoryCache returns a cache holding at most size entries
func NewInMemoryCache(size int) (*InMemoryCache, error) {
	data, err := lru.New[string, cacheItem](size)
	if err != nil {
		return nil, fmt.Errorf("error creating in memory cache of size %d: %w", size, err)
	}

	return &InMemoryCache{
		data: data,
		now:  time.Now,
	}, nil
}

func (c *InMemoryCache) Set(ctx context.Context, key string, data []byte, expiration time.Duration) error {
	item := cacheItem{
		data: append([]byte(nil), data...),
	}
	if expiration != -1 {
		item.expiration = c.now().Add(expiration)
	}
	c.data.Add(key, item)

	return nil
}

func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	item, ok := c.data.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if item.expired(c.now()) {
		return nil, ErrNotFound
	}

	return item.data, nil
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.data.Remove(key)
	return nil
}

// Len returns the number of entries held, including expired ones
func (c *InMemoryCache) Len() int {
	return c.data.Len()
}

func (c *InMemoryCache) Healthcheck(ctx context.Context) error {
	return nil
}
