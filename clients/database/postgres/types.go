package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/kava-labs/kava-batch-service/clients/database"
)

// SubRequestMetric is the bun model of a sub_request_metrics row
type SubRequestMetric struct {
	bun.BaseModel `bun:"table:sub_request_metrics,alias:srm"`

	ID                          int64 `bun:",pk,autoincrement"`
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

func (srm *SubRequestMetric) ToSubRequestMetric() *database.SubRequestMetric {
	return &database.SubRequestMetric{
		ID:                          srm.ID,
		BatchID:                     srm.BatchID,
		Position:                    srm.Position,
		Method:                      srm.Method,
		Path:                        srm.Path,
		StatusCode:                  srm.StatusCode,
		ResponseLatencyMilliseconds: srm.ResponseLatencyMilliseconds,
		RequestTime:                 srm.RequestTime,
		UserAgent:                   srm.UserAgent,
		Hostname:                    srm.Hostname,
		CacheHit:                    srm.CacheHit,
	}
}

func convertSubRequestMetric(metric *database.SubRequestMetric) *SubRequestMetric {
	return &SubRequestMetric{
		ID:                          metric.ID,
		BatchID:                     metric.BatchID,
		Position:                    metric.Position,
		Method:                      metric.Method,
		Path:                        metric.Path,
		StatusCode:                  metric.StatusCode,
		ResponseLatencyMilliseconds: metric.ResponseLatencyMilliseconds,
		RequestTime:                 metric.RequestTime,
		UserAgent:                   metric.UserAgent,
		Hostname:                    metric.Hostname,
		CacheHit:                    metric.CacheHit,
	}
}
