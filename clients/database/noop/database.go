package noop

import (
	"context"

	"github.com/kava-labs/kava-batch-service/clients/database"
)

// Noop is a database client that does nothing, used when
// metric collection is disabled
type Noop struct{}

var _ database.MetricsDatabase = (*Noop)(nil)

func New() *Noop {
	return &Noop{}
}

func (e *Noop) SaveSubRequestMetrics(ctx context.Context, metrics []*database.SubRequestMetric) error {
	return nil
}

func (e *Noop) ListSubRequestMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]*database.SubRequestMetric, int64, error) {
	return []*database.SubRequestMetric{}, 0, nil
}

func (e *Noop) DeleteSubRequestMetricsOlderThanNDays(ctx context.Context, n int64) error {
	return nil
}

func (e *Noop) HealthCheck() error {
	return nil
}
