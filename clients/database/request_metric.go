// Package database defines the storage contract for sub-request metrics.
// Implementations live in the postgres and noop sub packages.
package database

import "time"

// SubRequestMetric contains metrics for a single request
// dispatched as part of a batch
type SubRequestMetric struct {
	ID                          int64
	BatchID                     string
	Position                    int
	Method                      string
	Path                        string
	StatusCode                  int
	ResponseLatencyMilliseconds int64
	RequestTime                 time.Time
	UserAgent                   *string
	Hostname                    string
	CacheHit                    bool
}
