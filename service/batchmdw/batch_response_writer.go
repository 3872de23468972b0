package batchmdw

import (
	"encoding/json"
	"net/http"

	"github.com/kava-labs/kava-batch-service/decode"
	"github.com/kava-labs/kava-batch-service/service/cachemdw"
)

// writeBatchResult marshals the records of result into a JSON array and
// writes them to w along with the batch level headers
func writeBatchResult(w http.ResponseWriter, result *decode.BatchResult, durationHeaderName string, cacheEnabled bool) error {
	res, err := json.Marshal(result.Records)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")

	if result.Duration != nil {
		w.Header().Set(durationHeaderName, FormatDuration(*result.Duration))
	}

	// write cache hit header based on results of all requests
	if cacheEnabled {
		w.Header().Set(cachemdw.CacheHeaderKey, cacheHitValue(len(result.Records), countCacheHits(result.Records)))
	}

	w.WriteHeader(http.StatusOK)
	_, err = w.Write(res)

	return err
}

// writeTextError writes message as the whole plain text body
func writeTextError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	w.Write([]byte(message))
}

func countCacheHits(records []decode.ResponseRecord) int {
	var hits int
	for _, record := range records {
		if cachemdw.IsCacheHitRecord(record) {
			hits++
		}
	}
	return hits
}

// cacheHitValue handles the combined response's CacheHeader
func cacheHitValue(totalNum, cacheHits int) string {
	// totalNum of 0 is an empty batch which is reported as a MISS
	if cacheHits == 0 || totalNum == 0 {
		// case 1. no results from cache => MISS
		return cachemdw.CacheMissHeaderValue
	} else if cacheHits == totalNum {
		// case 2: all results from cache => HIT
		return cachemdw.CacheHitHeaderValue
	}
	// case 3: some results from cache => PARTIAL
	return cachemdw.CachePartialHeaderValue
}
