package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kava-labs/kava-batch-service/executor"
)

var (
	ValidLogLevels     = [4]string{"TRACE", "DEBUG", "INFO", "ERROR"}
	ValidCacheBackends = [2]string{CACHE_BACKEND_REDIS, CACHE_BACKEND_IN_MEMORY}
	ValidCacheCodecs   = [2]string{"json", "msgpack"}
)

// Validate validates the provided config
// returning a list of errors that can be unwrapped with `errors.Unwrap`
// or nil if the config is valid
func Validate(config Config) error {
	var validLogLevel bool
	var allErrs error

	for _, validLevel := range ValidLogLevels {
		if config.LogLevel == validLevel {
			validLogLevel = true
			break
		}
	}

	if !validLogLevel {
		allErrs = fmt.Errorf("invalid %s specified %s, supported values are %v", LOG_LEVEL_ENVIRONMENT_KEY, config.LogLevel, ValidLogLevels)
	}

	_, err := strconv.Atoi(config.BatchServicePort)

	if err != nil {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s", BATCH_SERVICE_PORT_ENVIRONMENT_KEY, config.BatchServicePort))
	}

	if !strings.HasPrefix(config.BatchEndpointPath, "/") {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must start with /", BATCH_ENDPOINT_PATH_ENVIRONMENT_KEY, config.BatchEndpointPath))
	}

	if _, err := ParseBackendURL(config.BatchBackendURL); err != nil {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s: %w", BATCH_BACKEND_URL_ENVIRONMENT_KEY, config.BatchBackendURL, err))
	}

	if config.BatchMaxLimit < 1 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be greater than zero", BATCH_MAX_LIMIT_ENVIRONMENT_KEY, config.BatchMaxLimit))
	}

	// zero disables the limit
	if config.BatchMaxBodyBytes < 0 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must not be negative", BATCH_MAX_BODY_BYTES_ENVIRONMENT_KEY, config.BatchMaxBodyBytes))
	}

	if config.BatchDefaultContentType == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", BATCH_DEFAULT_CONTENT_TYPE_ENVIRONMENT_KEY, config.BatchDefaultContentType))
	}

	kind, err := executor.ParseKind(config.BatchExecutionStrategy)
	if err != nil {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s: %w", BATCH_EXECUTION_STRATEGY_ENVIRONMENT_KEY, config.BatchExecutionStrategy, err))
	}

	if kind == executor.KindPooled && config.BatchWorkerCount < 1 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be greater than zero when using the %s strategy", BATCH_WORKER_COUNT_ENVIRONMENT_KEY, config.BatchWorkerCount, executor.KindPooled))
	}

	if config.BatchAddDurationHeader && strings.TrimSpace(config.BatchDurationHeaderName) == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", BATCH_DURATION_HEADER_NAME_ENVIRONMENT_KEY, config.BatchDurationHeaderName))
	}

	if config.BatchSubRequestTimeout < 0 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be negative", BATCH_SUB_REQUEST_TIMEOUT_ENVIRONMENT_KEY, config.BatchSubRequestTimeout))
	}

	if config.CacheEnabled {
		allErrs = errors.Join(allErrs, validateCache(config))
	}

	if config.MetricPruningEnabled {
		if config.MetricPruningRoutineIntervalSeconds < 1 {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be greater than zero", METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS_ENVIRONMENT_KEY, config.MetricPruningRoutineIntervalSeconds))
		}
		if config.MetricPruningMaxRequestMetricsHistoryDays < 1 {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be greater than zero", METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY, config.MetricPruningMaxRequestMetricsHistoryDays))
		}
	}

	if config.MetricDatabaseEnabled {
		allErrs = errors.Join(allErrs, validateDatabase(config))
	}

	return allErrs
}

func validateDatabase(config Config) error {
	var allErrs error

	if config.DatabaseEndpointURL == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY, config.DatabaseEndpointURL))
	}

	if config.DatabaseName == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", DATABASE_NAME_ENVIRONMENT_KEY, config.DatabaseName))
	}

	if config.DatabaseUserName == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", DATABASE_USERNAME_ENVIRONMENT_KEY, config.DatabaseUserName))
	}

	return allErrs
}

func validateCache(config Config) error {
	var allErrs error

	if !contains(ValidCacheBackends[:], config.CacheBackend) {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, supported values are %v", CACHE_BACKEND_ENVIRONMENT_KEY, config.CacheBackend, ValidCacheBackends))
	}
	if !contains(ValidCacheCodecs[:], config.CacheCodec) {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, supported values are %v", CACHE_CODEC_ENVIRONMENT_KEY, config.CacheCodec, ValidCacheCodecs))
	}
	if config.CacheBackend == CACHE_BACKEND_REDIS && config.RedisEndpointURL == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", REDIS_ENDPOINT_URL_ENVIRONMENT_KEY, config.RedisEndpointURL))
	}
	if config.CacheBackend == CACHE_BACKEND_IN_MEMORY && config.CacheInMemorySize < 1 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be greater than zero", CACHE_IN_MEMORY_SIZE_ENVIRONMENT_KEY, config.CacheInMemorySize))
	}
	if config.CacheTTL <= 0 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must be greater than zero", CACHE_TTL_ENVIRONMENT_KEY, config.CacheTTL))
	}
	if strings.Contains(config.CachePrefix, ":") {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not contain colon symbol", CACHE_PREFIX_ENVIRONMENT_KEY, config.CachePrefix))
	}
	if config.CachePrefix == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", CACHE_PREFIX_ENVIRONMENT_KEY, config.CachePrefix))
	}

	return allErrs
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
