// package config provides functions and values
// for reading and validating kava batch service configuration
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds every value the batch service reads from its environment.
// It is parsed once at startup and treated as read-only afterwards.
// BatchBackendURL is the origin every non batch request (and therefore
// every sub-request) is proxied to.
type Config struct {
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"INFO"`
	BatchServicePort        string        `env:"BATCH_SERVICE_PORT" envDefault:"7777"`
	BatchEndpointPath       string        `env:"BATCH_ENDPOINT_PATH" envDefault:"/api/v1/batch/"`
	BatchBackendURL         string        `env:"BATCH_BACKEND_URL" envDefault:"http://localhost:8080"`
	BatchMaxLimit           int           `env:"BATCH_MAX_LIMIT" envDefault:"20"`
	BatchMaxBodyBytes       int64         `env:"BATCH_MAX_BODY_BYTES" envDefault:"1048576"`
	BatchHeadersToInclude   []string      `env:"BATCH_HEADERS_TO_INCLUDE" envDefault:"User-Agent,Cookie" envSeparator:","`
	BatchDefaultContentType string        `env:"BATCH_DEFAULT_CONTENT_TYPE" envDefault:"application/json"`
	BatchUseHTTPS           bool          `env:"BATCH_USE_HTTPS" envDefault:"false"`
	BatchExecutionStrategy  string        `env:"BATCH_EXECUTION_STRATEGY" envDefault:"sequential"`
	BatchWorkerCount        int           `env:"BATCH_WORKER_COUNT" envDefault:"10"`
	BatchAddDurationHeader  bool          `env:"BATCH_ADD_DURATION_HEADER" envDefault:"false"`
	BatchDurationHeaderName string        `env:"BATCH_DURATION_HEADER_NAME" envDefault:"X-Batch-Duration"`
	BatchSubRequestTimeout  time.Duration `env:"BATCH_SUB_REQUEST_TIMEOUT" envDefault:"0s"`

	HTTPReadTimeoutSeconds  int64 `env:"HTTP_READ_TIMEOUT_SECONDS" envDefault:"30"`
	HTTPWriteTimeoutSeconds int64 `env:"HTTP_WRITE_TIMEOUT_SECONDS" envDefault:"60"`

	CacheEnabled      bool          `env:"CACHE_ENABLED" envDefault:"false"`
	CacheBackend      string        `env:"CACHE_BACKEND" envDefault:"redis"`
	CacheCodec        string        `env:"CACHE_CODEC" envDefault:"json"`
	CachePrefix       string        `env:"CACHE_PREFIX" envDefault:"batch"`
	CacheTTL          time.Duration `env:"CACHE_TTL" envDefault:"10s"`
	CacheInMemorySize int           `env:"CACHE_IN_MEMORY_SIZE" envDefault:"1024"`
	RedisEndpointURL  string        `env:"REDIS_ENDPOINT_URL" envDefault:"localhost:6379"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`

	MetricDatabaseEnabled            bool   `env:"METRIC_DATABASE_ENABLED" envDefault:"false"`
	DatabaseName                     string `env:"DATABASE_NAME" envDefault:"postgres"`
	DatabaseEndpointURL              string `env:"DATABASE_ENDPOINT_URL" envDefault:"localhost:5432"`
	DatabaseUserName                 string `env:"DATABASE_USERNAME" envDefault:"postgres"`
	DatabasePassword                 string `env:"DATABASE_PASSWORD"`
	DatabaseSSLEnabled               bool   `env:"DATABASE_SSL_ENABLED" envDefault:"false"`
	DatabaseQueryLoggingEnabled      bool   `env:"DATABASE_QUERY_LOGGING_ENABLED" envDefault:"false"`
	DatabaseReadTimeoutSeconds       int64  `env:"DATABASE_READ_TIMEOUT_SECONDS" envDefault:"60"`
	DatabaseMaxIdleConnections       int64  `env:"DATABASE_MAX_IDLE_CONNECTIONS" envDefault:"5"`
	DatabaseConnectionMaxIdleSeconds int64  `env:"DATABASE_CONNECTION_MAX_IDLE_SECONDS" envDefault:"5"`
	DatabaseMaxOpenConnections       int64  `env:"DATABASE_MAX_OPEN_CONNECTIONS" envDefault:"20"`
	RunDatabaseMigrations            bool   `env:"RUN_DATABASE_MIGRATIONS" envDefault:"false"`

	DependencyConnectMaxRetries uint64 `env:"DEPENDENCY_CONNECT_MAX_RETRIES" envDefault:"5"`

	MetricPruningEnabled                      bool  `env:"METRIC_PRUNING_ENABLED" envDefault:"false"`
	MetricPruningRoutineIntervalSeconds       int64 `env:"METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS" envDefault:"86400"`
	MetricPruningRoutineDelayFirstRunSeconds  int64 `env:"METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS" envDefault:"10"`
	MetricPruningMaxRequestMetricsHistoryDays int64 `env:"METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS" envDefault:"45"`
}

const (
	LOG_LEVEL_ENVIRONMENT_KEY = "LOG_LEVEL"
	DEFAULT_LOG_LEVEL         = "INFO"

	BATCH_SERVICE_PORT_ENVIRONMENT_KEY         = "BATCH_SERVICE_PORT"
	BATCH_ENDPOINT_PATH_ENVIRONMENT_KEY        = "BATCH_ENDPOINT_PATH"
	BATCH_BACKEND_URL_ENVIRONMENT_KEY          = "BATCH_BACKEND_URL"
	BATCH_MAX_LIMIT_ENVIRONMENT_KEY            = "BATCH_MAX_LIMIT"
	BATCH_MAX_BODY_BYTES_ENVIRONMENT_KEY       = "BATCH_MAX_BODY_BYTES"
	BATCH_HEADERS_TO_INCLUDE_ENVIRONMENT_KEY   = "BATCH_HEADERS_TO_INCLUDE"
	BATCH_DEFAULT_CONTENT_TYPE_ENVIRONMENT_KEY = "BATCH_DEFAULT_CONTENT_TYPE"
	BATCH_EXECUTION_STRATEGY_ENVIRONMENT_KEY   = "BATCH_EXECUTION_STRATEGY"
	BATCH_WORKER_COUNT_ENVIRONMENT_KEY         = "BATCH_WORKER_COUNT"
	BATCH_DURATION_HEADER_NAME_ENVIRONMENT_KEY = "BATCH_DURATION_HEADER_NAME"
	BATCH_SUB_REQUEST_TIMEOUT_ENVIRONMENT_KEY  = "BATCH_SUB_REQUEST_TIMEOUT"

	CACHE_BACKEND_ENVIRONMENT_KEY        = "CACHE_BACKEND"
	CACHE_CODEC_ENVIRONMENT_KEY          = "CACHE_CODEC"
	CACHE_PREFIX_ENVIRONMENT_KEY         = "CACHE_PREFIX"
	CACHE_TTL_ENVIRONMENT_KEY            = "CACHE_TTL"
	CACHE_IN_MEMORY_SIZE_ENVIRONMENT_KEY = "CACHE_IN_MEMORY_SIZE"
	REDIS_ENDPOINT_URL_ENVIRONMENT_KEY   = "REDIS_ENDPOINT_URL"

	DATABASE_NAME_ENVIRONMENT_KEY                                   = "DATABASE_NAME"
	DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY                           = "DATABASE_ENDPOINT_URL"
	DATABASE_USERNAME_ENVIRONMENT_KEY                               = "DATABASE_USERNAME"
	METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS_ENVIRONMENT_KEY         = "METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS"
	METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY = "METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS"

	CACHE_BACKEND_REDIS     = "redis"
	CACHE_BACKEND_IN_MEMORY = "memory"
)

// ReadConfig attempts to parse service config from environment values
// the returned config may be invalid and should be validated via the `Validate`
// function of the Config package before use
func ReadConfig() (Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config from environment: %w", err)
	}

	// header names are matched canonically downstream, trim stray whitespace
	// from comma separated values like "User-Agent, Cookie"
	headers := make([]string, 0, len(cfg.BatchHeadersToInclude))
	for _, header := range cfg.BatchHeadersToInclude {
		if header = strings.TrimSpace(header); header != "" {
			headers = append(headers, header)
		}
	}
	cfg.BatchHeadersToInclude = headers

	return cfg, nil
}

// ParseBackendURL parses the backend origin the service proxies to
func ParseBackendURL(raw string) (*url.URL, error) {
	backendURL, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	if backendURL.Scheme == "" || backendURL.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", raw)
	}

	return backendURL, nil
}
