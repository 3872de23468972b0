package service

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/kava-labs/kava-batch-service/logging"
)

// newBackendProxy creates the reverse proxy serving every non batch request,
// and every sub-request of a batch, from the backend at target
func newBackendProxy(target *url.URL, serviceLogger *logging.ServiceLogger) *httputil.ReverseProxy {
	serviceLogger.Debug().Str("backend", target.String()).Msg("creating reverse proxy for batch backend")

	proxy := httputil.NewSingleHostReverseProxy(target)

	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		// the backend sees its own host, the caller's host is kept for logging
		if r.Header.Get("X-Forwarded-Host") == "" && r.Host != "" {
			r.Header.Set("X-Forwarded-Host", r.Host)
		}
		r.Host = target.Host
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		serviceLogger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("error proxying request to backend")

		w.WriteHeader(http.StatusBadGateway)
	}

	return proxy
}
