package batchmdw

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/kava-labs/kava-batch-service/decode"
)

// fakeResponseWriter is a custom implementation of http.ResponseWriter
// that captures everything a handler writes for one sub-request
type fakeResponseWriter struct {
	// body is the response body for the current request
	body *bytes.Buffer
	// header is the response headers for the current request
	header http.Header
	status int
}

var (
	_ http.ResponseWriter = &fakeResponseWriter{}
	_ http.Flusher        = &fakeResponseWriter{}
)

func newFakeResponseWriter() *fakeResponseWriter {
	return &fakeResponseWriter{
		header: make(http.Header),
		body:   new(bytes.Buffer),
	}
}

// Write implements the Write method of http.ResponseWriter
// it overrides the Write method to capture the response content for the current request
// the content type is sniffed when the handler writes without setting one
func (w *fakeResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		_, hasType := w.header["Content-Type"]
		if !hasType && w.header.Get("Transfer-Encoding") == "" {
			w.header.Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}

// Header implements the Header method of http.ResponseWriter
// it overrides the Header method to capture the response headers for the current request
func (w *fakeResponseWriter) Header() http.Header {
	return w.header
}

// WriteHeader implements the WriteHeader method of http.ResponseWriter
// only the first status written is kept, matching net/http
func (w *fakeResponseWriter) WriteHeader(status int) {
	if w.status != 0 {
		return
	}
	w.status = status
}

// Flush is a no-op, the whole body is kept until the handler returns
func (w *fakeResponseWriter) Flush() {}

// record converts what was written into a ResponseRecord, multi valued
// headers are joined with a comma
func (w *fakeResponseWriter) record() decode.ResponseRecord {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}

	headers := make(map[string]string, len(w.header))
	for name, values := range w.header {
		headers[name] = strings.Join(values, ", ")
	}

	return decode.ResponseRecord{
		StatusCode:   status,
		ReasonPhrase: http.StatusText(status),
		Headers:      headers,
		Body:         w.body.String(),
	}
}
