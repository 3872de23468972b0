package database

import "context"

// MetricsDatabase stores the metrics recorded for every dispatched sub-request
type MetricsDatabase interface {
	SaveSubRequestMetrics(ctx context.Context, metrics []*SubRequestMetric) error
	ListSubRequestMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]*SubRequestMetric, int64, error)
	DeleteSubRequestMetricsOlderThanNDays(ctx context.Context, n int64) error
	HealthCheck() error
}
