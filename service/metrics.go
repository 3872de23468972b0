package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kava-labs/kava-batch-service/clients/database"
	"github.com/kava-labs/kava-batch-service/decode"
	"github.com/kava-labs/kava-batch-service/service/cachemdw"
)

// recordBatchMetrics stores one metric per sub-request in the background,
// it runs after the batch response has been written
func (s *BatchService) recordBatchMetrics(r *http.Request, batchID string, result *decode.BatchResult) {
	metrics := SubRequestMetrics(r, batchID, result)
	if len(metrics) == 0 {
		return
	}

	s.pendingMetrics.Add(1)
	go func() {
		defer s.pendingMetrics.Done()

		ctx, cancel := context.WithTimeout(context.Background(), metricSaveTimeout)
		defer cancel()

		if err := s.Database.SaveSubRequestMetrics(ctx, metrics); err != nil {
			s.Error().Str("batch_id", batchID).Err(err).Msg("error saving sub-request metrics")
			return
		}

		s.Trace().Str("batch_id", batchID).Int("count", len(metrics)).Msg("saved sub-request metrics")
	}()
}

// SubRequestMetrics describes every sub-request of result as a metric
func SubRequestMetrics(r *http.Request, batchID string, result *decode.BatchResult) []*database.SubRequestMetric {
	var userAgent *string
	if ua := r.UserAgent(); ua != "" {
		userAgent = &ua
	}

	metrics := make([]*database.SubRequestMetric, 0, len(result.Records))
	for i, record := range result.Records {
		metric := &database.SubRequestMetric{
			BatchID:     batchID,
			Position:    i,
			StatusCode:  record.StatusCode,
			RequestTime: result.StartedAt,
			UserAgent:   userAgent,
			Hostname:    r.Host,
			CacheHit:    cachemdw.IsCacheHitRecord(record),
		}

		if i < len(result.Requests) {
			metric.Method = result.Requests[i].Method
			metric.Path = requestPath(result.Requests[i].URL)
		}
		if i < len(result.Latencies) {
			metric.ResponseLatencyMilliseconds = result.Latencies[i].Milliseconds()
		}

		metrics = append(metrics, metric)
	}

	return metrics
}

func requestPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Path
}
