package batchmdw

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/kava-labs/kava-batch-service/decode"
	"github.com/kava-labs/kava-batch-service/executor"
	"github.com/kava-labs/kava-batch-service/logging"
)

// BatchCompleteFunc is called once the batch response has been written
type BatchCompleteFunc func(r *http.Request, batchID string, result *decode.BatchResult)

type BatchMiddlewareConfig struct {
	ServiceLogger *logging.ServiceLogger

	// CacheEnabled adds the combined cache status header to responses
	CacheEnabled bool
	// MaxBodyBytes limits the size of a batch payload, zero means no limit
	MaxBodyBytes int64
	// OnBatchComplete is optional
	OnBatchComplete BatchCompleteFunc
}

// CreateBatchProcessingMiddleware returns the handler serving the batch endpoint
func CreateBatchProcessingMiddleware(dispatcher *Dispatcher, config *BatchMiddlewareConfig) http.HandlerFunc {
	logger := config.ServiceLogger
	if logger == nil {
		logger = logging.Nop()
	}
	durationHeaderName := dispatcher.Config().DurationHeaderName

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeTextError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
			return
		}

		body := io.Reader(r.Body)
		if config.MaxBodyBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, config.MaxBodyBytes)
		}

		payload, err := io.ReadAll(body)
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				writeTextError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Batch request body is larger than %d bytes.", maxBytesErr.Limit))
				return
			}
			writeTextError(w, http.StatusBadRequest, "Unable to read batch request body.")
			return
		}

		batchID := uuid.NewString()

		result, err := dispatcher.Dispatch(r.Context(), payload, AmbientFromRequest(r))
		if err != nil {
			switch {
			case errors.Is(err, decode.ErrBadBatchRequest):
				logger.Debug().Str("batch_id", batchID).Err(err).Msg("rejected batch request")
				writeTextError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, executor.ErrPoolClosed):
				logger.Error().Str("batch_id", batchID).Err(err).Msg("batch execution unavailable")
				writeTextError(w, http.StatusServiceUnavailable, "Batch execution is unavailable.")
			default:
				logger.Error().Str("batch_id", batchID).Err(err).Msg("batch execution failed")
				writeTextError(w, http.StatusInternalServerError, "Batch execution failed.")
			}
			return
		}

		logger.Debug().
			Str("batch_id", batchID).
			Int("size", len(result.Records)).
			Msg("dispatched batch")

		if err := writeBatchResult(w, result, durationHeaderName, config.CacheEnabled); err != nil {
			logger.Error().Str("batch_id", batchID).Err(err).Msg("error writing batch response")
			return
		}

		if config.OnBatchComplete != nil {
			config.OnBatchComplete(r, batchID, result)
		}
	}
}
