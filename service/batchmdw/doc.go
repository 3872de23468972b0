// Package batchmdw is responsible for the middleware used to handle batch requests.
//
// The primary export is CreateBatchProcessingMiddleware which decodes the batch payload,
// translates each descriptor into an *http.Request and dispatches it to the host
// RequestHandler as if it were a single request. The responses are then combined into
// a single JSON array, in request order, before being sent to the client.
//
// A failure of a single request never fails the batch: translation errors, handler
// errors and handler panics become a 500 record and an expired sub-request timeout
// becomes a 504 record at that request's position.
//
// When the sub-response cache is enabled the cache status header will be set to:
//   - `HIT` when all requests are cache hits
//   - `MISS` when all requests are cache misses
//   - `PARTIAL` when there is a mix of cache hits and misses
package batchmdw
