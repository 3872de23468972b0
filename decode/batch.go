// Package decode parses batch request payloads into per request descriptors
// and defines the records a batch produces.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBadBatchRequest is matched by every BadBatchRequestError
var ErrBadBatchRequest = errors.New("bad batch request")

// BadBatchRequestReason classifies why a batch payload was rejected
type BadBatchRequestReason string

const (
	ReasonMalformed     BadBatchRequestReason = "malformed"
	ReasonNotAList      BadBatchRequestReason = "not-a-list"
	ReasonTooMany       BadBatchRequestReason = "too-many"
	ReasonMissingFields BadBatchRequestReason = "missing-fields"
	ReasonInvalidMethod BadBatchRequestReason = "invalid-method"
)

// ValidMethods are the lower cased request methods a batch may contain
var ValidMethods = []string{"get", "post", "put", "patch", "delete", "head", "options", "connect", "trace"}

// BadBatchRequestError is returned when the payload as a whole can not
// be dispatched. Index is the offending element, or -1 when the error
// is about the payload itself.
type BadBatchRequestError struct {
	Reason BadBatchRequestReason
	Limit  int
	Index  int
	Detail string
}

// Error returns the message sent back to the client
func (e *BadBatchRequestError) Error() string {
	switch e.Reason {
	case ReasonNotAList:
		return "The body of batch request should always be list!"
	case ReasonTooMany:
		return fmt.Sprintf("You can batch maximum of %d requests.", e.Limit)
	case ReasonMissingFields:
		return "Request definition should have url, method defined."
	case ReasonInvalidMethod:
		return "Invalid request method."
	default:
		if e.Detail != "" {
			return fmt.Sprintf("Batch request body is not valid JSON: %s", e.Detail)
		}
		return "Batch request body is not valid JSON."
	}
}

// Is allows errors.Is(err, ErrBadBatchRequest)
func (e *BadBatchRequestError) Is(target error) bool {
	return target == ErrBadBatchRequest
}

// BatchRequestSpec describes one request of a batch. Method is upper cased,
// Body is nil when the descriptor carries none.
type BatchRequestSpec struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// ResponseRecord is the serializable outcome of one request of a batch.
// Body carries the sub-response body as text, so a body that is not valid
// UTF-8 has each invalid byte replaced with U+FFFD when encoded to JSON.
type ResponseRecord struct {
	StatusCode   int               `json:"status_code" msgpack:"status_code"`
	ReasonPhrase string            `json:"reason_phrase" msgpack:"reason_phrase"`
	Headers      map[string]string `json:"headers" msgpack:"headers"`
	Body         string            `json:"body" msgpack:"body"`
}

// BatchResult holds one record per request, in request order. Duration is
// nil unless batch duration reporting is enabled.
// Requests, Latencies and StartedAt describe how the records were produced
// and are used for metrics, they are never sent to the client.
type BatchResult struct {
	Records  []ResponseRecord
	Duration *time.Duration

	Requests  []*BatchRequestSpec
	Latencies []time.Duration
	StartedAt time.Time
}

// batchEnvelope is the canonical {"batch": [...]} payload
type batchEnvelope struct {
	Batch json.RawMessage `json:"batch"`
}

type rawBatchRequest struct {
	URL     json.RawMessage `json:"url"`
	Method  json.RawMessage `json:"method"`
	Headers json.RawMessage `json:"headers"`
	Body    json.RawMessage `json:"body"`
}

// DecodeBatchRequest validates raw and returns its descriptors in order.
// Both {"batch": [...]} and a bare [...] are accepted. The first problem
// found rejects the whole batch with a *BadBatchRequestError.
func DecodeBatchRequest(raw []byte, maxBatchSize int) ([]*BatchRequestSpec, error) {
	trimmed := bytes.TrimSpace(raw)

	if !json.Valid(trimmed) {
		return nil, &BadBatchRequestError{Reason: ReasonMalformed, Index: -1}
	}

	list := trimmed
	if trimmed[0] == '{' {
		var envelope batchEnvelope
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, &BadBatchRequestError{Reason: ReasonMalformed, Index: -1, Detail: err.Error()}
		}
		list = bytes.TrimSpace(envelope.Batch)
	}

	if len(list) == 0 || list[0] != '[' {
		return nil, &BadBatchRequestError{Reason: ReasonNotAList, Index: -1}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(list, &elements); err != nil {
		return nil, &BadBatchRequestError{Reason: ReasonMalformed, Index: -1, Detail: err.Error()}
	}

	if len(elements) > maxBatchSize {
		return nil, &BadBatchRequestError{Reason: ReasonTooMany, Limit: maxBatchSize, Index: -1}
	}

	specs := make([]*BatchRequestSpec, 0, len(elements))
	for i, element := range elements {
		spec, err := decodeBatchElement(i, element)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	return specs, nil
}

func decodeBatchElement(index int, element json.RawMessage) (*BatchRequestSpec, error) {
	var raw rawBatchRequest

	element = bytes.TrimSpace(element)
	if len(element) == 0 || element[0] != '{' {
		return nil, &BadBatchRequestError{Reason: ReasonMissingFields, Index: index}
	}
	if err := json.Unmarshal(element, &raw); err != nil {
		return nil, &BadBatchRequestError{Reason: ReasonMalformed, Index: index, Detail: err.Error()}
	}

	url, urlOk := decodeString(raw.URL)
	method, methodOk := decodeString(raw.Method)
	if isAbsent(raw.URL) || isAbsent(raw.Method) || !urlOk {
		return nil, &BadBatchRequestError{Reason: ReasonMissingFields, Index: index}
	}
	if !methodOk || !IsValidMethod(method) {
		return nil, &BadBatchRequestError{Reason: ReasonInvalidMethod, Index: index}
	}

	headers, err := decodeHeaders(raw.Headers)
	if err != nil {
		return nil, &BadBatchRequestError{Reason: ReasonMalformed, Index: index, Detail: err.Error()}
	}

	return &BatchRequestSpec{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers,
		Body:    decodeBody(raw.Body),
	}, nil
}

// IsValidMethod reports whether method, in any case, may be batched
func IsValidMethod(method string) bool {
	method = strings.ToLower(method)
	for _, valid := range ValidMethods {
		if method == valid {
			return true
		}
	}
	return false
}

func isAbsent(value json.RawMessage) bool {
	return len(value) == 0 || string(value) == "null"
}

func decodeString(value json.RawMessage) (string, bool) {
	var decoded string
	if err := json.Unmarshal(value, &decoded); err != nil {
		return "", false
	}
	return decoded, true
}

// decodeHeaders accepts an object of header names to values, any value
// that is not a string is kept as its JSON text
func decodeHeaders(value json.RawMessage) (map[string]string, error) {
	headers := map[string]string{}
	if isAbsent(value) {
		return headers, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(value, &raw); err != nil {
		return nil, fmt.Errorf("headers must be an object: %w", err)
	}

	for name, rawValue := range raw {
		if decoded, ok := decodeString(rawValue); ok {
			headers[name] = decoded
			continue
		}
		headers[name] = string(rawValue)
	}

	return headers, nil
}

// decodeBody unquotes a JSON string body and keeps any other JSON value
// as its raw bytes
func decodeBody(value json.RawMessage) []byte {
	if isAbsent(value) {
		return nil
	}
	if decoded, ok := decodeString(value); ok {
		return []byte(decoded)
	}
	return []byte(value)
}
