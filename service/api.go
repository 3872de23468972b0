package service

import (
	"time"

	"github.com/kava-labs/kava-batch-service/clients/database"
)

// BatchRequest is one request of a batch as sent by a client
type BatchRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// BatchRequestEnvelope is the body of a call to the batch endpoint
type BatchRequestEnvelope struct {
	Batch []BatchRequest `json:"batch"`
}

// MetricsStatusResponse wraps values
// returned by calls to /status/metrics
type MetricsStatusResponse struct {
	Metrics []SubRequestMetricResponse `json:"metrics"`
	// NextCursor is passed as ?cursor= to fetch the following page, zero when there is none
	NextCursor int64 `json:"next_cursor"`
}

type SubRequestMetricResponse struct {
	ID                          int64     `json:"id"`
	BatchID                     string    `json:"batch_id"`
	Position                    int       `json:"position"`
	Method                      string    `json:"method"`
	Path                        string    `json:"path"`
	StatusCode                  int       `json:"status_code"`
	ResponseLatencyMilliseconds int64     `json:"response_latency_milliseconds"`
	RequestTime                 time.Time `json:"request_time"`
	UserAgent                   *string   `json:"user_agent,omitempty"`
	Hostname                    string    `json:"hostname"`
	CacheHit                    bool      `json:"cache_hit"`
}

func newSubRequestMetricResponse(metric *database.SubRequestMetric) SubRequestMetricResponse {
	return SubRequestMetricResponse{
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
