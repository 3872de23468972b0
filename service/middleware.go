package service

import (
	"net/http"
	"time"

	"github.com/urfave/negroni"

	"github.com/kava-labs/kava-batch-service/logging"
)

// createRequestLoggingMiddleware returns a middleware that logs every request
// served by the service once its response has been written
func createRequestLoggingMiddleware(serviceLogger *logging.ServiceLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startedAt := time.Now()

			// wrap the response writer so status and size can be read after the fact
			lrw := negroni.NewResponseWriter(w)

			next.ServeHTTP(lrw, r)

			serviceLogger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("host", r.Host).
				Int("status", lrw.Status()).
				Int("size", lrw.Size()).
				Dur("latency", time.Since(startedAt)).
				Msg("served request")
		})
	}
}
