// package service provides functions and methods
// for creating and running the api of the batch service
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-chi/chi/v5"

	"github.com/kava-labs/kava-batch-service/clients/cache"
	"github.com/kava-labs/kava-batch-service/clients/database"
	"github.com/kava-labs/kava-batch-service/clients/database/noop"
	"github.com/kava-labs/kava-batch-service/clients/database/postgres"
	"github.com/kava-labs/kava-batch-service/clients/database/postgres/migrations"
	"github.com/kava-labs/kava-batch-service/config"
	"github.com/kava-labs/kava-batch-service/executor"
	"github.com/kava-labs/kava-batch-service/logging"
	"github.com/kava-labs/kava-batch-service/service/batchmdw"
	"github.com/kava-labs/kava-batch-service/service/cachemdw"
)

const (
	HealthcheckPath   = "/healthcheck"
	ServicecheckPath  = "/servicecheck"
	MetricsStatusPath = "/status/metrics"

	metricSaveTimeout = 10 * time.Second
)

// BatchService represents an instance of the batch service API
type BatchService struct {
	Database   database.MetricsDatabase
	Cache      *cachemdw.ServiceCache
	Dispatcher *batchmdw.Dispatcher

	router     chi.Router
	httpServer *http.Server
	// closers release dependencies on shutdown, in creation order
	closers []io.Closer
	// pendingMetrics tracks metric writes still running after their
	// batch response was sent
	pendingMetrics sync.WaitGroup

	*logging.ServiceLogger
}

// New returns a new BatchService with the specified config and error (if any)
func New(ctx context.Context, serviceConfig config.Config, serviceLogger *logging.ServiceLogger) (*BatchService, error) {
	service := &BatchService{
		ServiceLogger: serviceLogger,
	}

	backendURL, err := config.ParseBackendURL(serviceConfig.BatchBackendURL)
	if err != nil {
		return nil, fmt.Errorf("invalid batch backend url: %w", err)
	}

	service.Database, err = createDatabaseClient(ctx, serviceConfig, serviceLogger)
	if err != nil {
		return nil, err
	}
	if closer, ok := service.Database.(io.Closer); ok {
		service.closers = append(service.closers, closer)
	}

	cacheClient, err := createCacheClient(ctx, serviceConfig, serviceLogger)
	if err != nil {
		service.close()
		return nil, err
	}
	if closer, ok := cacheClient.(io.Closer); ok {
		service.closers = append(service.closers, closer)
	}

	codec, err := cache.GetCodec(serviceConfig.CacheCodec)
	if err != nil {
		service.close()
		return nil, err
	}

	service.Cache = cachemdw.NewServiceCache(
		cacheClient,
		codec,
		serviceConfig.CachePrefix,
		serviceConfig.CacheEnabled,
		serviceConfig.CacheTTL,
		serviceLogger,
	)

	kind, err := executor.ParseKind(serviceConfig.BatchExecutionStrategy)
	if err != nil {
		service.close()
		return nil, err
	}

	strategy, err := executor.New(executor.Config{
		Strategy:    kind,
		WorkerCount: serviceConfig.BatchWorkerCount,
	})
	if err != nil {
		service.close()
		return nil, err
	}

	proxy := newBackendProxy(backendURL, serviceLogger)

	// sub-requests are served by the same handler as every other path,
	// through the cache, never by the batch endpoint itself
	var handler batchmdw.RequestHandler = batchmdw.HTTPHandler(proxy)
	if serviceConfig.CacheEnabled {
		handler = service.Cache.CachingMiddleware(handler)
	}
	handler = batchmdw.RejectNestedBatches(serviceConfig.BatchEndpointPath, handler)

	translator := batchmdw.NewTranslator(batchmdw.StdBuilder{}, batchmdw.TranslatorConfig{
		DefaultContentType: serviceConfig.BatchDefaultContentType,
		HeadersToInclude:   serviceConfig.BatchHeadersToInclude,
		UseHTTPS:           serviceConfig.BatchUseHTTPS,
	})

	service.Dispatcher, err = batchmdw.NewDispatcher(strategy, translator, handler, batchmdw.Config{
		MaxBatchSize:       serviceConfig.BatchMaxLimit,
		AddDurationHeader:  serviceConfig.BatchAddDurationHeader,
		DurationHeaderName: serviceConfig.BatchDurationHeaderName,
		SubRequestTimeout:  serviceConfig.BatchSubRequestTimeout,
	}, serviceLogger)
	if err != nil {
		closeStrategy(strategy)
		service.close()
		return nil, err
	}

	batchMiddlewareConfig := &batchmdw.BatchMiddlewareConfig{
		ServiceLogger: serviceLogger,
		CacheEnabled:  serviceConfig.CacheEnabled,
		MaxBodyBytes:  serviceConfig.BatchMaxBodyBytes,
	}
	if serviceConfig.MetricDatabaseEnabled {
		batchMiddlewareConfig.OnBatchComplete = service.recordBatchMetrics
	}

	// create an http router for registering handlers for a given route
	router := chi.NewRouter()
	router.Use(createRequestLoggingMiddleware(serviceLogger))

	router.HandleFunc(serviceConfig.BatchEndpointPath, batchmdw.CreateBatchProcessingMiddleware(service.Dispatcher, batchMiddlewareConfig))
	router.Get(HealthcheckPath, createHealthcheckHandler(service))
	router.Get(ServicecheckPath, createServicecheckHandler(service))
	router.Get(MetricsStatusPath, createMetricsStatusHandler(service))

	// register proxy handler as the default handler for any other request
	router.Handle("/*", proxy)

	service.router = router

	// create an http server for the caller to start at their own discretion
	service.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", serviceConfig.BatchServicePort),
		Handler:      router,
		ReadTimeout:  time.Duration(serviceConfig.HTTPReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(serviceConfig.HTTPWriteTimeoutSeconds) * time.Second,
	}

	return service, nil
}

// Handler returns the router serving every endpoint of the service
func (s *BatchService) Handler() http.Handler {
	return s.router
}

// Run runs the batch service, returning error (if any) in the event
// the batch service stops
func (s *BatchService) Run() error {
	s.Info().Str("addr", s.httpServer.Addr).Msg("starting batch service")

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Shutdown stops accepting requests, waits for in flight batches and
// metric writes and then releases the execution strategy and clients
func (s *BatchService) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.pendingMetrics.Wait()

	closeStrategy(s.Dispatcher.Strategy())

	return errors.Join(err, s.close())
}

func (s *BatchService) close() error {
	var combinedErrors error
	for _, closer := range s.closers {
		combinedErrors = errors.Join(combinedErrors, closer.Close())
	}
	s.closers = nil

	return combinedErrors
}

func closeStrategy(strategy executor.Strategy) {
	if closer, ok := strategy.(interface{ Close() error }); ok {
		closer.Close()
	}
}

// withRetries runs operation until it succeeds or maxRetries consecutive
// attempts have failed
func withRetries(ctx context.Context, maxRetries uint64, operation func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)

	return backoff.Retry(operation, policy)
}

// createDatabaseClient returns the metrics database for config, a noop
// database when metrics are disabled
func createDatabaseClient(ctx context.Context, serviceConfig config.Config, logger *logging.ServiceLogger) (database.MetricsDatabase, error) {
	if !serviceConfig.MetricDatabaseEnabled {
		logger.Info().Msg("metric database disabled, sub-request metrics will not be stored")
		return noop.New(), nil
	}

	client, err := postgres.NewClient(postgres.DatabaseConfig{
		DatabaseName:                     serviceConfig.DatabaseName,
		DatabaseEndpointURL:              serviceConfig.DatabaseEndpointURL,
		DatabaseUsername:                 serviceConfig.DatabaseUserName,
		DatabasePassword:                 serviceConfig.DatabasePassword,
		ReadTimeoutSeconds:               serviceConfig.DatabaseReadTimeoutSeconds,
		DatabaseMaxIdleConnections:       serviceConfig.DatabaseMaxIdleConnections,
		DatabaseConnectionMaxIdleSeconds: serviceConfig.DatabaseConnectionMaxIdleSeconds,
		DatabaseMaxOpenConnections:       serviceConfig.DatabaseMaxOpenConnections,
		SSLEnabled:                       serviceConfig.DatabaseSSLEnabled,
		QueryLoggingEnabled:              serviceConfig.DatabaseQueryLoggingEnabled,
		Logger:                           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating database client: %w", err)
	}

	err = withRetries(ctx, serviceConfig.DependencyConnectMaxRetries, func() error {
		err := client.HealthCheck()
		if err != nil {
			logger.Debug().Err(err).Msg("waiting for metric database")
		}
		return err
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to connect to metric database: %w", err)
	}

	if serviceConfig.RunDatabaseMigrations {
		applied, err := client.Migrate(ctx, migrations.Migrations)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("error running database migrations: %w", err)
		}
		logger.Info().Int("migrations", len(applied)).Msg("database migrations complete")
	}

	return client, nil
}

// createCacheClient returns the storage backing the sub-response cache,
// nil when caching is disabled
func createCacheClient(ctx context.Context, serviceConfig config.Config, logger *logging.ServiceLogger) (cache.Cache, error) {
	if !serviceConfig.CacheEnabled {
		return nil, nil
	}

	switch serviceConfig.CacheBackend {
	case config.CACHE_BACKEND_IN_MEMORY:
		return cache.NewInMemoryCache(serviceConfig.CacheInMemorySize)
	case config.CACHE_BACKEND_REDIS:
		redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
			Address:  serviceConfig.RedisEndpointURL,
			Password: serviceConfig.RedisPassword,
			DB:       serviceConfig.RedisDB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("error creating redis cache: %w", err)
		}

		err = withRetries(ctx, serviceConfig.DependencyConnectMaxRetries, func() error {
			return redisCache.Healthcheck(ctx)
		})
		if err != nil {
			redisCache.Close()
			return nil, fmt.Errorf("unable to connect to redis: %w", err)
		}

		return redisCache, nil
	}

	return nil, fmt.Errorf("unsupported cache backend %q", serviceConfig.CacheBackend)
}
