package cachemdw

import (
	"context"
	"errors"
	"net/http"

	"github.com/kava-labs/kava-batch-service/clients/cache"
	"github.com/kava-labs/kava-batch-service/decode"
)

const (
	CacheHeaderKey          = "X-Kava-Batch-Cache-Status"
	CacheHitHeaderValue     = "HIT"
	CacheMissHeaderValue    = "MISS"
	CachePartialHeaderValue = "PARTIAL"
)

// Handler executes a single sub-request
type Handler interface {
	Handle(ctx context.Context, req *http.Request) (decode.ResponseRecord, error)
}

type cachingHandler struct {
	cache *ServiceCache
	next  Handler
}

// CachingMiddleware returns a Handler which works in the following way:
//   - if cache is disabled or request isn't cacheable - forwards to next
//   - tries to get the record from the cache, returns it marked as a HIT if present
//   - otherwise forwards to next and caches its record if the response is cacheable,
//     the returned record is marked as a MISS
func (c *ServiceCache) CachingMiddleware(next Handler) Handler {
	return &cachingHandler{cache: c, next: next}
}

func (h *cachingHandler) Handle(ctx context.Context, req *http.Request) (decode.ResponseRecord, error) {
	c := h.cache

	// if cache is not enabled - do nothing and forward to next handler
	if !c.cacheEnabled || !IsCacheable(req) {
		return h.next.Handle(ctx, req)
	}

	cached, err := c.GetCachedRecord(ctx, req)
	if err == nil {
		cached.Headers[CacheHeaderKey] = CacheHitHeaderValue
		return *cached, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		// log unexpected error
		c.Logger.Error().
			Err(err).
			Str("url", req.URL.String()).
			Msg("error during getting response from cache")
	}

	record, err := h.next.Handle(ctx, req)
	if err != nil {
		return record, err
	}

	if IsCacheableResponse(record) {
		if err := c.CacheRecord(ctx, req, record); err != nil {
			c.Logger.Error().Msgf("can't cache response: %v", err)
		}
	}

	if record.Headers == nil {
		record.Headers = map[string]string{}
	}
	record.Headers[CacheHeaderKey] = CacheMissHeaderValue

	return record, nil
}

// IsCacheHitRecord reports whether record was served from the cache
func IsCacheHitRecord(record decode.ResponseRecord) bool {
	return record.Headers[CacheHeaderKey] == CacheHitHeaderValue
}
