package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultMetricsPageSize = 100
	maxMetricsPageSize     = 1000
)

// createHealthcheckHandler creates a health check handler function that
// will respond 200 ok if the batch service is able to connect to
// it's dependencies and functioning as expected
func createHealthcheckHandler(service *BatchService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var combinedErrors error

		service.Debug().Msg("/healthcheck called")

		// check that the database is reachable
		err := service.Database.HealthCheck()
		if err != nil {
			service.Error().
				Err(err).
				Msg("database healthcheck failed")

			errMsg := fmt.Errorf("batch service unable to connect to database: %v", err)
			combinedErrors = errors.Join(combinedErrors, errMsg)
		}

		if service.Cache.IsCacheEnabled() {
			// check that the cache is reachable
			err := service.Cache.Healthcheck(r.Context())
			if err != nil {
				service.Error().
					Err(err).
					Msg("cache healthcheck failed")

				errMsg := fmt.Errorf("batch service unable to connect to cache: %v", err)
				combinedErrors = errors.Join(combinedErrors, errMsg)
			}
		}

		if combinedErrors != nil {
			w.WriteHeader(http.StatusInternalServerError)

			w.Write([]byte(combinedErrors.Error()))

			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("batch service is healthy"))
	}
}

// createServicecheckHandler creates a service check handler function that
// will respond 200 ok if the batch service is running
func createServicecheckHandler(service *BatchService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		service.Debug().Msg("/servicecheck called")

		w.WriteHeader(http.StatusOK)

		w.Write([]byte("batch service is in service"))
	}
}

// createMetricsStatusHandler creates a handler responding with a page of
// stored sub-request metrics, ?cursor= and ?limit= select the page
func createMetricsStatusHandler(service *BatchService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		service.Debug().Msg("/status/metrics called")

		cursor, limit, err := parsePagination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		metrics, nextCursor, err := service.Database.ListSubRequestMetricsWithPagination(r.Context(), cursor, limit)
		if err != nil {
			service.Error().Err(err).Msg("error listing sub-request metrics")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		response := MetricsStatusResponse{
			Metrics:    make([]SubRequestMetricResponse, 0, len(metrics)),
			NextCursor: nextCursor,
		}
		for _, metric := range metrics {
			response.Metrics = append(response.Metrics, newSubRequestMetricResponse(metric))
		}

		// return response for client
		if err := MarshalJSONResponse(&response, w); err != nil {
			service.Error().Msg(fmt.Sprintf("error %s encoding %+v to json", err, response))
		}
	}
}

func parsePagination(r *http.Request) (int64, int, error) {
	var (
		cursor int64
		limit  = defaultMetricsPageSize
		err    error
	)

	query := r.URL.Query()

	if raw := query.Get("cursor"); raw != "" {
		cursor, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || cursor < 0 {
			return 0, 0, fmt.Errorf("invalid cursor %q", raw)
		}
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("invalid limit %q", raw)
		}
		if limit > maxMetricsPageSize {
			limit = maxMetricsPageSize
		}
	}

	return cursor, limit, nil
}

// MarshalJSONResponse marshals an interface into the response body and sets JSON content type headers
func MarshalJSONResponse(obj interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		return err
	}
	return nil
}
