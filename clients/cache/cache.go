// Package cache provides the storage backends for cached sub-request
// responses along with the codecs used to serialize them.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("value not found in the cache")

// Cache stores opaque values by key with a per value expiration.
// An expiration of -1 means the value never expires.
type Cache interface {
	Set(ctx context.Context, key string, data []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Healthcheck(ctx context.Context) error
}
