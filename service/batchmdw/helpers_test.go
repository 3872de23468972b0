package batchmdw_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/kava-batch-service/decode"
	"github.com/kava-labs/kava-batch-service/executor"
	"github.com/kava-labs/kava-batch-service/logging"
	"github.com/kava-labs/kava-batch-service/service/batchmdw"
)

const batchPath = "/api/v1/batch/"

// newHostApp returns the application sub-requests are dispatched to
func newHostApp() http.Handler {
	r := chi.NewRouter()

	r.Get("/views/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Success!"))
	})
	r.Head("/views/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/views/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	})
	updated := func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{"method": "PUT", "status": 202, "text": "Updated"}
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(data)
	}
	r.Put("/views/", updated)
	r.Patch("/views/", updated)
	r.Delete("/views/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("No Content!"))
	})

	r.HandleFunc("/echo/", func(w http.ResponseWriter, r *http.Request) {
		switch header := r.URL.Query().Get("header"); header {
		case "scheme":
			if r.TLS != nil {
				w.Write([]byte("https"))
				return
			}
			w.Write([]byte("http"))
		case "host":
			w.Write([]byte(r.Host))
		case "method":
			w.Write([]byte(r.Method))
		case "body":
			body, _ := io.ReadAll(r.Body)
			w.Write(body)
		default:
			w.Write([]byte(r.Header.Get(header)))
		}
	})

	r.Get("/exception/", func(w http.ResponseWriter, r *http.Request) {
		panic("exception")
	})

	return r
}

// forEachStrategy runs test once with every execution strategy
func forEachStrategy(t *testing.T, test func(t *testing.T, strategy executor.Strategy)) {
	for _, kind := range executor.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			strategy, err := executor.New(executor.Config{Strategy: kind, WorkerCount: 4})
			require.NoError(t, err)
			t.Cleanup(func() {
				if pool, ok := strategy.(*executor.Pooled); ok {
					pool.Close()
				}
			})

			test(t, strategy)
		})
	}
}

func newDispatcher(t *testing.T, strategy executor.Strategy, handler batchmdw.RequestHandler, config batchmdw.Config, translatorConfig batchmdw.TranslatorConfig) *batchmdw.Dispatcher {
	if config.MaxBatchSize == 0 {
		config.MaxBatchSize = 20
	}
	if translatorConfig.DefaultContentType == "" {
		translatorConfig.DefaultContentType = "application/json"
	}

	dispatcher, err := batchmdw.NewDispatcher(
		strategy,
		batchmdw.NewTranslator(batchmdw.StdBuilder{}, translatorConfig),
		handler,
		config,
		logging.Nop(),
	)
	require.NoError(t, err)

	return dispatcher
}

type batchItem struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body"`
}

func batchPayload(t *testing.T, items ...batchItem) []byte {
	payload, err := json.Marshal(map[string]any{"batch": items})
	require.NoError(t, err)
	return payload
}

func postBatch(t *testing.T, handler http.Handler, payload []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, batchPath, bytes.NewReader(payload))
	for name, values := range header {
		req.Header[name] = values
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	return recorder
}

func decodeRecords(t *testing.T, recorder *httptest.ResponseRecorder) []decode.ResponseRecord {
	var records []decode.ResponseRecord
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &records), recorder.Body.String())
	return records
}
