package cachemdw

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kava-labs/kava-batch-service/clients/cache"
	"github.com/kava-labs/kava-batch-service/decode"
	"github.com/kava-labs/kava-batch-service/logging"
)

// ServiceCache is responsible for caching sub-request responses and provides the
// corresponding handler decorator
// ServiceCache can work with any underlying storage which implements simple cache.Cache interface
type ServiceCache struct {
	cacheClient cache.Cache
	codec       cache.Codec
	// cachePrefix is used as prefix for any key in the cache
	cachePrefix  string
	cacheEnabled bool
	// TTL should be either greater than zero or equal to -1, -1 means cache indefinitely
	cacheTTL time.Duration

	*logging.ServiceLogger
}

func NewServiceCache(
	cacheClient cache.Cache,
	codec cache.Codec,
	cachePrefix string,
	cacheEnabled bool,
	cacheTTL time.Duration,
	logger *logging.ServiceLogger,
) *ServiceCache {
	if codec == nil {
		codec = cache.JSONCodec{}
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &ServiceCache{
		cacheClient:   cacheClient,
		codec:         codec,
		cachePrefix:   cachePrefix,
		cacheEnabled:  cacheEnabled,
		cacheTTL:      cacheTTL,
		ServiceLogger: logger,
	}
}

// IsCacheable checks if a sub-request is cacheable.
// Only GET requests that don't opt out through Cache-Control are cached.
func IsCacheable(req *http.Request) bool {
	if req == nil || req.URL == nil {
		return false
	}

	if req.Method != http.MethodGet {
		return false
	}

	cacheControl := strings.ToLower(req.Header.Get("Cache-Control"))
	if strings.Contains(cacheControl, "no-store") || strings.Contains(cacheControl, "no-cache") {
		return false
	}

	return true
}

// IsCacheableResponse checks if a record can be stored, only 200 responses are
func IsCacheableResponse(record decode.ResponseRecord) bool {
	return record.StatusCode == http.StatusOK
}

// GetCachedRecord calculates cache key for request and then tries to get it from cache.
func (c *ServiceCache) GetCachedRecord(
	ctx context.Context,
	req *http.Request,
) (*decode.ResponseRecord, error) {
	// if request isn't cacheable - there is no point to try to get it from cache so exit early with an error
	if !IsCacheable(req) {
		return nil, ErrRequestIsNotCacheable
	}

	key, err := GetQueryKey(c.cachePrefix, req)
	if err != nil {
		return nil, err
	}

	encoded, err := c.cacheClient.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	record, err := c.codec.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("can't decode cached %s record: %w", c.codec.Name(), err)
	}
	if record.Headers == nil {
		record.Headers = map[string]string{}
	}

	return record, nil
}

// CacheRecord calculates cache key for request and then saves record to the cache.
func (c *ServiceCache) CacheRecord(
	ctx context.Context,
	req *http.Request,
	record decode.ResponseRecord,
) error {
	// don't cache uncacheable requests
	if !IsCacheable(req) {
		return ErrRequestIsNotCacheable
	}

	// don't cache uncacheable responses
	if !IsCacheableResponse(record) {
		return ErrResponseIsNotCacheable
	}

	key, err := GetQueryKey(c.cachePrefix, req)
	if err != nil {
		return err
	}

	encoded, err := c.codec.Encode(&record)
	if err != nil {
		return err
	}

	return c.cacheClient.Set(ctx, key, encoded, c.cacheTTL)
}

func (c *ServiceCache) Healthcheck(ctx context.Context) error {
	return c.cacheClient.Healthcheck(ctx)
}

func (c *ServiceCache) IsCacheEnabled() bool {
	return c.cacheEnabled
}
