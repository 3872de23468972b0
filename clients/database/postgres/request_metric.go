package postgres

import (
	"context"
	"fmt"

	"github.com/kava-labs/kava-batch-service/clients/database"
)

const (
	SubRequestMetricsTableName = "sub_request_metrics"
)

// SaveSubRequestMetrics inserts all metrics of a batch in one statement,
// returning error (if any)
func (c *Client) SaveSubRequestMetrics(ctx context.Context, metrics []*database.SubRequestMetric) error {
	if c.db == nil {
		return ErrNotConnected
	}
	if len(metrics) == 0 {
		return nil
	}

	rows := make([]*SubRequestMetric, 0, len(metrics))
	for _, metric := range metrics {
		rows = append(rows, convertSubRequestMetric(metric))
	}

	_, err := c.db.NewInsert().Model(&rows).Exec(ctx)

	return err
}

// ListSubRequestMetricsWithPagination returns a page of max
// `limit` SubRequestMetrics from the offset specified by `cursor`
// error (if any) along with a cursor to use to fetch the next page
// if the cursor is 0 no more pages exists
func (c *Client) ListSubRequestMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]*database.SubRequestMetric, int64, error) {
	if c.db == nil {
		return nil, 0, ErrNotConnected
	}

	var rows []SubRequestMetric
	var nextCursor int64

	err := c.db.NewSelect().Model(&rows).Where("id > ?", cursor).Order("id ASC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	// a full page means there may be more rows after the last id
	if limit > 0 && len(rows) == limit {
		nextCursor = rows[len(rows)-1].ID
	}

	metrics := make([]*database.SubRequestMetric, 0, len(rows))
	for i := range rows {
		metrics = append(metrics, rows[i].ToSubRequestMetric())
	}

	return metrics, nextCursor, nil
}

// DeleteSubRequestMetricsOlderThanNDays deletes all sub-request
// metrics older than the specified days, returning error (if any)
func (c *Client) DeleteSubRequestMetricsOlderThanNDays(ctx context.Context, n int64) error {
	if c.db == nil {
		return ErrNotConnected
	}

	_, err := c.db.NewDelete().Model((*SubRequestMetric)(nil)).Where(fmt.Sprintf("request_time < now() - interval '%d' day", n)).Exec(ctx)

	return err
}
