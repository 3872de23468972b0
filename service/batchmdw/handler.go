package batchmdw

import (
	"context"
	"net/http"

	"github.com/kava-labs/kava-batch-service/decode"
)

// RequestHandler executes a single translated request of a batch
type RequestHandler interface {
	Handle(ctx context.Context, req *http.Request) (decode.ResponseRecord, error)
}

// RequestHandlerFunc lets an ordinary function act as a RequestHandler
type RequestHandlerFunc func(ctx context.Context, req *http.Request) (decode.ResponseRecord, error)

func (f RequestHandlerFunc) Handle(ctx context.Context, req *http.Request) (decode.ResponseRecord, error) {
	return f(ctx, req)
}

// HTTPHandler adapts an http.Handler, such as a router or a reverse proxy,
// into a RequestHandler by capturing the response it writes
func HTTPHandler(h http.Handler) RequestHandler {
	return RequestHandlerFunc(func(ctx context.Context, req *http.Request) (decode.ResponseRecord, error) {
		frw := newFakeResponseWriter()
		h.ServeHTTP(frw, req.WithContext(ctx))
		return frw.record(), nil
	})
}

// RejectNestedBatches answers requests for the batch endpoint itself with a
// 400 record instead of passing them to next
func RejectNestedBatches(batchPath string, next RequestHandler) RequestHandler {
	return RequestHandlerFunc(func(ctx context.Context, req *http.Request) (decode.ResponseRecord, error) {
		if req.URL.Path == batchPath {
			return ErrorRecord(http.StatusBadRequest, "Nested batch requests are not supported."), nil
		}
		return next.Handle(ctx, req)
	})
}

// ErrorRecord returns a plain text record carrying message
func ErrorRecord(statusCode int, message string) decode.ResponseRecord {
	return decode.ResponseRecord{
		StatusCode:   statusCode,
		ReasonPhrase: http.StatusText(statusCode),
		Headers:      map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:         message,
	}
}
