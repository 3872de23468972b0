package batchmdw

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kava-labs/kava-batch-service/decode"
	"github.com/kava-labs/kava-batch-service/service/cachemdw"
)

func TestUnitTestFakeResponseWriterDefaults(t *testing.T) {
	w := newFakeResponseWriter()

	record := w.record()
	require.Equal(t, http.StatusOK, record.StatusCode)
	require.Equal(t, "OK", record.ReasonPhrase)
	require.Empty(t, record.Body)
	require.NotNil(t, record.Headers)
}

func TestUnitTestFakeResponseWriterKeepsFirstStatus(t *testing.T) {
	w := newFakeResponseWriter()
	w.Header().Add("Vary", "Accept")
	w.Header().Add("Vary", "Cookie")

	w.WriteHeader(http.StatusNotFound)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("missing"))
	w.Flush()

	record := w.record()
	require.Equal(t, http.StatusNotFound, record.StatusCode)
	require.Equal(t, "Not Found", record.ReasonPhrase)
	require.Equal(t, "missing", record.Body)
	require.Equal(t, "Accept, Cookie", record.Headers["Vary"])
	// status was written explicitly so the type is not sniffed
	require.NotContains(t, record.Headers, "Content-Type")
}

func TestUnitTestFakeResponseWriterSniffsContentType(t *testing.T) {
	w := newFakeResponseWriter()
	w.Write([]byte("<html><body>hi</body></html>"))
	require.Equal(t, "text/html; charset=utf-8", w.record().Headers["Content-Type"])

	w = newFakeResponseWriter()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("<html></html>"))
	require.Equal(t, "application/json", w.record().Headers["Content-Type"])
}

func TestUnitTestCacheHitValue(t *testing.T) {
	require.Equal(t, cachemdw.CacheMissHeaderValue, cacheHitValue(0, 0))
	require.Equal(t, cachemdw.CacheMissHeaderValue, cacheHitValue(3, 0))
	require.Equal(t, cachemdw.CachePartialHeaderValue, cacheHitValue(3, 1))
	require.Equal(t, cachemdw.CacheHitHeaderValue, cacheHitValue(3, 3))
}

func TestUnitTestCountCacheHits(t *testing.T) {
	records := []decode.ResponseRecord{
		{Headers: map[string]string{cachemdw.CacheHeaderKey: cachemdw.CacheHitHeaderValue}},
		{Headers: map[string]string{cachemdw.CacheHeaderKey: cachemdw.CacheMissHeaderValue}},
		{Headers: map[string]string{}},
		{},
	}
	require.Equal(t, 1, countCacheHits(records))
}

func TestUnitTestAggregate(t *testing.T) {
	result := Aggregate(nil, nil)
	require.NotNil(t, result.Records)
	require.Empty(t, result.Records)
	require.Nil(t, result.Duration)
}
