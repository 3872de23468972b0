// Package cachemdw caches the responses of GET sub-requests and provides the
// corresponding request handler decorator.
// package can work with any underlying storage which implements simple cache.Cache interface
//
// CachingMiddleware wraps the host request handler: a cacheable request is looked up
// in the cache first and on a miss the response of the wrapped handler is stored
// if it is a 200. Records served from the cache carry the cache status header.
package cachemdw
