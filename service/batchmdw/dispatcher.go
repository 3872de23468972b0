package batchmdw

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kava-labs/kava-batch-service/decode"
	"github.com/kava-labs/kava-batch-service/executor"
	"github.com/kava-labs/kava-batch-service/logging"
)

const DefaultDurationHeaderName = "X-Batch-Duration"

// Config holds the dispatch settings, it is read-only once
// the Dispatcher is created
type Config struct {
	MaxBatchSize       int
	AddDurationHeader  bool
	DurationHeaderName string
	// SubRequestTimeout of zero means sub-requests are not timed out
	SubRequestTimeout time.Duration
}

// Dispatcher validates, translates and executes batches
type Dispatcher struct {
	translator *Translator
	handler    RequestHandler
	config     Config

	// held for reading for the whole execution of a batch so a replaced
	// strategy is never used after ReplaceStrategy returns
	mu       sync.RWMutex
	strategy executor.Strategy

	*logging.ServiceLogger
}

// subRequest is one translated element of a batch
type subRequest struct {
	request *http.Request
	err     error
}

type outcome struct {
	record  decode.ResponseRecord
	latency time.Duration
}

// NewDispatcher returns a dispatcher running handler under strategy
func NewDispatcher(
	strategy executor.Strategy,
	translator *Translator,
	handler RequestHandler,
	config Config,
	logger *logging.ServiceLogger,
) (*Dispatcher, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: strategy must not be nil", executor.ErrInvalidConfig)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: request handler must not be nil", executor.ErrInvalidConfig)
	}
	if config.MaxBatchSize < 1 {
		return nil, fmt.Errorf("%w: max batch size must be greater than zero, got %d", executor.ErrInvalidConfig, config.MaxBatchSize)
	}
	if config.SubRequestTimeout < 0 {
		return nil, fmt.Errorf("%w: sub-request timeout must not be negative, got %s", executor.ErrInvalidConfig, config.SubRequestTimeout)
	}
	if config.DurationHeaderName == "" {
		config.DurationHeaderName = DefaultDurationHeaderName
	}
	if translator == nil {
		translator = NewTranslator(nil, TranslatorConfig{})
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &Dispatcher{
		translator:    translator,
		handler:       handler,
		config:        config,
		strategy:      strategy,
		ServiceLogger: logger,
	}, nil
}

// Config returns the settings the dispatcher was created with
func (d *Dispatcher) Config() Config {
	return d.config
}

// Strategy returns the strategy currently in use
func (d *Dispatcher) Strategy() executor.Strategy {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.strategy
}

// ReplaceStrategy waits for in flight batches to finish, swaps in next
// and returns the previous strategy so the caller can stop it
func (d *Dispatcher) ReplaceStrategy(next executor.Strategy) executor.Strategy {
	d.mu.Lock()
	defer d.mu.Unlock()

	previous := d.strategy
	d.strategy = next

	d.Debug().
		Str("previous", fmt.Sprintf("%T", previous)).
		Str("next", fmt.Sprintf("%T", next)).
		Msg("replaced batch execution strategy")

	return previous
}

// Dispatch runs every request of payload and returns their records in
// request order. A *decode.BadBatchRequestError is returned when the payload
// is rejected, any other error comes from the execution strategy.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte, ambient AmbientContext) (*decode.BatchResult, error) {
	startedAt := time.Now()

	specs, err := decode.DecodeBatchRequest(payload, d.config.MaxBatchSize)
	if err != nil {
		return nil, err
	}

	subRequests := make([]subRequest, len(specs))
	for i, spec := range specs {
		req, err := d.translator.Translate(ctx, spec, ambient)
		if err != nil {
			d.Debug().Err(err).Int("position", i).Msg("error translating batch request")
		}
		subRequests[i] = subRequest{request: req, err: err}
	}

	d.mu.RLock()
	outcomes, err := executor.Map(ctx, d.strategy, subRequests, d.isolate)
	d.mu.RUnlock()

	if err != nil {
		return nil, fmt.Errorf("error executing batch of %d requests: %w", len(specs), err)
	}

	records := make([]decode.ResponseRecord, len(outcomes))
	latencies := make([]time.Duration, len(outcomes))
	for i, o := range outcomes {
		records[i] = o.record
		latencies[i] = o.latency
	}

	var batchDuration *time.Duration
	if d.config.AddDurationHeader {
		elapsed := time.Since(startedAt)
		batchDuration = &elapsed
	}

	result := Aggregate(records, batchDuration)
	result.Requests = specs
	result.Latencies = latencies
	result.StartedAt = startedAt

	return result, nil
}

// isolate runs one sub-request so that nothing it does can fail the batch
func (d *Dispatcher) isolate(ctx context.Context, sub subRequest) outcome {
	start := time.Now()

	var record decode.ResponseRecord
	if sub.err != nil {
		record = ErrorRecord(http.StatusInternalServerError, sub.err.Error())
	} else {
		record = d.execute(sub.request)
	}

	latency := time.Since(start)

	if d.config.AddDurationHeader {
		record.Headers[d.config.DurationHeaderName] = FormatDuration(latency)
	}

	return outcome{record: record, latency: latency}
}

func (d *Dispatcher) execute(req *http.Request) decode.ResponseRecord {
	if d.config.SubRequestTimeout <= 0 {
		return d.invoke(req)
	}

	ctx, cancel := context.WithTimeout(req.Context(), d.config.SubRequestTimeout)
	defer cancel()

	done := make(chan decode.ResponseRecord, 1)
	go func() {
		done <- d.invoke(req.WithContext(ctx))
	}()

	select {
	case record := <-done:
		return record
	case <-ctx.Done():
		d.Debug().Str("path", req.URL.Path).Dur("timeout", d.config.SubRequestTimeout).Msg("sub-request timed out")
		return ErrorRecord(http.StatusGatewayTimeout, fmt.Sprintf("sub-request timed out after %s", d.config.SubRequestTimeout))
	}
}

// invoke calls the handler converting a returned error or a panic
// into a 500 record
func (d *Dispatcher) invoke(req *http.Request) (record decode.ResponseRecord) {
	defer func() {
		if r := recover(); r != nil {
			d.Error().Str("path", req.URL.Path).Msg(fmt.Sprintf("recovered panic handling sub-request: %v", r))
			record = ErrorRecord(http.StatusInternalServerError, fmt.Sprint(r))
		}
	}()

	record, err := d.handler.Handle(req.Context(), req)
	if err != nil {
		return ErrorRecord(http.StatusInternalServerError, err.Error())
	}
	if record.Headers == nil {
		record.Headers = map[string]string{}
	}

	return record
}

// FormatDuration renders d in seconds with microsecond resolution
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.6f", d.Seconds())
}
