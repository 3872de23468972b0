package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/kava-batch-service/config"
)

var (
	batchServicePort = "7777"
)

func TestUnitTestReadConfigReturnsConfigWithValuesFromEnv(t *testing.T) {
	setDefaultEnv(t)
	t.Setenv(config.BATCH_MAX_LIMIT_ENVIRONMENT_KEY, "3")
	t.Setenv(config.BATCH_EXECUTION_STRATEGY_ENVIRONMENT_KEY, "pooled")
	t.Setenv(config.BATCH_SUB_REQUEST_TIMEOUT_ENVIRONMENT_KEY, "250ms")
	t.Setenv(config.BATCH_HEADERS_TO_INCLUDE_ENVIRONMENT_KEY, "User-Agent, Cookie, ,X-Request-Id")
	t.Setenv(config.BATCH_MAX_BODY_BYTES_ENVIRONMENT_KEY, "4096")

	readConfig, err := config.ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.DEFAULT_LOG_LEVEL, readConfig.LogLevel)
	assert.Equal(t, batchServicePort, readConfig.BatchServicePort)
	assert.Equal(t, 3, readConfig.BatchMaxLimit)
	assert.Equal(t, "pooled", readConfig.BatchExecutionStrategy)
	assert.Equal(t, 250*time.Millisecond, readConfig.BatchSubRequestTimeout)
	assert.Equal(t, []string{"User-Agent", "Cookie", "X-Request-Id"}, readConfig.BatchHeadersToInclude)
	assert.Equal(t, int64(4096), readConfig.BatchMaxBodyBytes)
}

func TestUnitTestReadConfigReturnsErrorForUnparseableValue(t *testing.T) {
	setDefaultEnv(t)
	t.Setenv(config.BATCH_MAX_LIMIT_ENVIRONMENT_KEY, "twenty")

	_, err := config.ReadConfig()
	require.Error(t, err)
}

func TestUnitTestParseBackendURL(t *testing.T) {
	parsed, err := config.ParseBackendURL("http://backend:8080/prefix")
	require.NoError(t, err)
	assert.Equal(t, "backend:8080", parsed.Host)

	_, err = config.ParseBackendURL("backend:8080")
	require.Error(t, err)

	_, err = config.ParseBackendURL("/relative/path")
	require.Error(t, err)

	_, err = config.ParseBackendURL("http://kava.com/path%^")
	require.Error(t, err)
}

func setDefaultEnv(t *testing.T) {
	t.Setenv(config.BATCH_SERVICE_PORT_ENVIRONMENT_KEY, batchServicePort)
	t.Setenv(config.LOG_LEVEL_ENVIRONMENT_KEY, config.DEFAULT_LOG_LEVEL)
	t.Setenv(config.BATCH_BACKEND_URL_ENVIRONMENT_KEY, "http://localhost:8080")
}
