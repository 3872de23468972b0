package service_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/kava-batch-service/config"
	"github.com/kava-labs/kava-batch-service/logging"
	"github.com/kava-labs/kava-batch-service/service"
	"github.com/kava-labs/kava-batch-service/service/cachemdw"
)

var testDefaultContext = context.TODO()

// newBackend starts the application the service proxies to
func newBackend(t *testing.T) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/views/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Success!"))
	})
	r.Post("/views/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	})
	r.HandleFunc("/echo/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get(r.URL.Query().Get("header"))))
	})

	backend := httptest.NewServer(r)
	t.Cleanup(backend.Close)

	return backend
}

func newTestConfig(backendURL string) config.Config {
	return config.Config{
		LogLevel:                "ERROR",
		BatchServicePort:        "0",
		BatchEndpointPath:       "/api/v1/batch/",
		BatchBackendURL:         backendURL,
		BatchMaxLimit:           5,
		BatchHeadersToInclude:   []string{"User-Agent", "Cookie"},
		BatchDefaultContentType: "application/json",
		BatchExecutionStrategy:  "pooled",
		BatchWorkerCount:        3,
		CacheBackend:            config.CACHE_BACKEND_IN_MEMORY,
		CacheCodec:              "json",
		CachePrefix:             "batch",
		CacheTTL:                time.Minute,
		CacheInMemorySize:       64,
	}
}

func newTestService(t *testing.T, serviceConfig config.Config) (*service.BatchService, *service.BatchServiceClient, *httptest.Server) {
	batchService, err := service.New(testDefaultContext, serviceConfig, logging.Nop())
	require.NoError(t, err)

	server := httptest.NewServer(batchService.Handler())
	t.Cleanup(func() {
		server.Close()
		batchService.Shutdown(context.Background())
	})

	client, err := service.NewBatchServiceClient(service.BatchServiceClientConfig{
		BatchServiceHostname: server.URL,
		BatchEndpointPath:    serviceConfig.BatchEndpointPath,
	})
	require.NoError(t, err)

	return batchService, client, server
}

func TestUnitTestNewWithValidParamsCreatesBatchServiceWithoutError(t *testing.T) {
	backend := newBackend(t)

	for _, strategy := range []string{"sequential", "pooled"} {
		serviceConfig := newTestConfig(backend.URL)
		serviceConfig.BatchExecutionStrategy = strategy

		batchService, err := service.New(testDefaultContext, serviceConfig, logging.Nop())
		assert.Nil(t, err)
		assert.NoError(t, batchService.Shutdown(context.Background()))
	}
}

func TestUnitTestNewWithInvalidParamsReturnsError(t *testing.T) {
	backend := newBackend(t)

	testCases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "relative backend url", mutate: func(c *config.Config) { c.BatchBackendURL = "/backend" }},
		{name: "unknown strategy", mutate: func(c *config.Config) { c.BatchExecutionStrategy = "forked" }},
		{name: "no workers", mutate: func(c *config.Config) { c.BatchWorkerCount = 0 }},
		{name: "no batch limit", mutate: func(c *config.Config) { c.BatchMaxLimit = 0 }},
		{name: "unknown codec", mutate: func(c *config.Config) { c.CacheCodec = "xml" }},
		{name: "unknown cache backend", mutate: func(c *config.Config) {
			c.CacheEnabled = true
			c.CacheBackend = "memcached"
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			serviceConfig := newTestConfig(backend.URL)
			tc.mutate(&serviceConfig)

			_, err := service.New(testDefaultContext, serviceConfig, logging.Nop())
			require.Error(t, err)
		})
	}
}

func TestUnitTestBatchIsDispatchedToBackend(t *testing.T) {
	backend := newBackend(t)
	_, client, _ := newTestService(t, newTestConfig(backend.URL))

	records, err := client.Batch(testDefaultContext, []service.BatchRequest{
		{Method: "get", URL: "/views/"},
		{Method: "post", URL: "/views/", Body: `{"name":"kava"}`},
		{Method: "get", URL: "/missing/"},
		{Method: "get", URL: "/echo/?header=Content-Type"},
		{Method: "post", URL: "/api/v1/batch/", Body: `[]`},
	})
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, http.StatusOK, records[0].StatusCode)
	assert.Equal(t, "Success!", records[0].Body)

	assert.Equal(t, http.StatusCreated, records[1].StatusCode)
	assert.Equal(t, `{"name":"kava"}`, records[1].Body)

	assert.Equal(t, http.StatusNotFound, records[2].StatusCode)

	assert.Equal(t, "application/json", records[3].Body)

	assert.Equal(t, http.StatusBadRequest, records[4].StatusCode)
	assert.Equal(t, "Nested batch requests are not supported.", records[4].Body)
}

func TestUnitTestBatchOverLimitIsRejected(t *testing.T) {
	backend := newBackend(t)
	_, client, _ := newTestService(t, newTestConfig(backend.URL))

	requests := make([]service.BatchRequest, 6)
	for i := range requests {
		requests[i] = service.BatchRequest{Method: "get", URL: "/views/"}
	}

	_, err := client.Batch(testDefaultContext, requests)
	require.Error(t, err)

	var requestErr *service.RequestError
	require.ErrorAs(t, err, &requestErr)
	assert.Equal(t, http.StatusBadRequest, requestErr.StatusCode)
	assert.Contains(t, requestErr.Error(), "You can batch maximum of 5 requests.")
}

func TestUnitTestOversizedBatchBodyIsRejected(t *testing.T) {
	backend := newBackend(t)
	serviceConfig := newTestConfig(backend.URL)
	serviceConfig.BatchMaxBodyBytes = 64
	_, client, _ := newTestService(t, serviceConfig)

	_, err := client.Batch(testDefaultContext, []service.BatchRequest{
		{Method: "post", URL: "/views/", Body: strings.Repeat("x", 128)},
	})
	require.Error(t, err)

	var requestErr *service.RequestError
	require.ErrorAs(t, err, &requestErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, requestErr.StatusCode)
	assert.Contains(t, requestErr.Error(), "larger than 64 bytes")
}

func TestUnitTestNonBatchRequestsAreProxied(t *testing.T) {
	backend := newBackend(t)
	_, _, server := newTestService(t, newTestConfig(backend.URL))

	response, err := http.Get(server.URL + "/views/")
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "Success!", string(body))
}

func TestUnitTestUnreachableBackendIsReportedPerRecord(t *testing.T) {
	backend := newBackend(t)
	backendURL := backend.URL
	backend.Close()

	_, client, _ := newTestService(t, newTestConfig(backendURL))

	records, err := client.Batch(testDefaultContext, []service.BatchRequest{{Method: "get", URL: "/views/"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusBadGateway, records[0].StatusCode)
}

func TestUnitTestHealthAndServiceChecks(t *testing.T) {
	backend := newBackend(t)

	serviceConfig := newTestConfig(backend.URL)
	serviceConfig.CacheEnabled = true
	_, _, server := newTestService(t, serviceConfig)

	for _, path := range []string{service.HealthcheckPath, service.ServicecheckPath} {
		response, err := http.Get(server.URL + path)
		require.NoError(t, err)
		response.Body.Close()

		assert.Equal(t, http.StatusOK, response.StatusCode, path)
	}
}

func TestUnitTestRepeatedGetsAreServedFromCache(t *testing.T) {
	backend := newBackend(t)

	serviceConfig := newTestConfig(backend.URL)
	serviceConfig.CacheEnabled = true
	_, _, server := newTestService(t, serviceConfig)

	post := func() *http.Response {
		request, err := service.CreateRequest(testDefaultContext, http.MethodPost, server.URL+serviceConfig.BatchEndpointPath, service.BatchRequestEnvelope{
			Batch: []service.BatchRequest{{Method: "get", URL: "/views/"}},
		})
		require.NoError(t, err)

		response, err := http.DefaultClient.Do(request)
		require.NoError(t, err)
		response.Body.Close()

		return response
	}

	assert.Equal(t, cachemdw.CacheMissHeaderValue, post().Header.Get(cachemdw.CacheHeaderKey))
	assert.Equal(t, cachemdw.CacheHitHeaderValue, post().Header.Get(cachemdw.CacheHeaderKey))
}

func TestUnitTestMetricsStatusWithoutDatabase(t *testing.T) {
	backend := newBackend(t)
	_, client, server := newTestService(t, newTestConfig(backend.URL))

	status, err := client.GetMetricsStatus(testDefaultContext, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, status.Metrics)
	assert.Zero(t, status.NextCursor)

	response, err := http.Get(server.URL + service.MetricsStatusPath + "?limit=-1")
	require.NoError(t, err)
	response.Body.Close()
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestUnitTestBatchesAreRejectedAfterShutdown(t *testing.T) {
	backend := newBackend(t)

	batchService, err := service.New(testDefaultContext, newTestConfig(backend.URL), logging.Nop())
	require.NoError(t, err)
	require.NoError(t, batchService.Shutdown(context.Background()))

	request, err := service.CreateRequest(testDefaultContext, http.MethodPost, "/api/v1/batch/", service.BatchRequestEnvelope{
		Batch: []service.BatchRequest{{Method: "get", URL: "/views/"}},
	})
	require.NoError(t, err)

	response := httptest.NewRecorder()
	batchService.Handler().ServeHTTP(response, request)
	assert.Equal(t, http.StatusServiceUnavailable, response.Code)
}
