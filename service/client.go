package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kava-labs/kava-batch-service/decode"
)

// BatchServiceClient provides a client
// for making requests and decoding responses
// to the batch service API
type BatchServiceClient struct {
	*http.Client
	config            BatchServiceClientConfig
	DebugLogResponses bool
}

// BatchServiceClientConfig wraps values used to
// create a new BatchServiceClient
type BatchServiceClientConfig struct {
	BatchServiceHostname string
	// BatchEndpointPath defaults to /api/v1/batch/
	BatchEndpointPath string
	DebugLogResponses bool
}

// NewBatchServiceClient creates a new BatchServiceClient
// using the provided config, returning the client and error (if any)
func NewBatchServiceClient(config BatchServiceClientConfig) (*BatchServiceClient, error) {
	if _, err := url.Parse(config.BatchServiceHostname); err != nil {
		return nil, fmt.Errorf("invalid batch service hostname %q: %w", config.BatchServiceHostname, err)
	}
	if config.BatchEndpointPath == "" {
		config.BatchEndpointPath = "/api/v1/batch/"
	}

	httpClient := &http.Client{}
	return &BatchServiceClient{
		Client:            httpClient,
		DebugLogResponses: config.DebugLogResponses,
		config:            config,
	}, nil
}

// Batch sends requests as one batch and returns a record per request in
// the order they were given
func (c *BatchServiceClient) Batch(ctx context.Context, requests []BatchRequest) ([]decode.ResponseRecord, error) {
	var records []decode.ResponseRecord

	request, err := CreateRequest(ctx, http.MethodPost, c.config.BatchServiceHostname+c.config.BatchEndpointPath, BatchRequestEnvelope{Batch: requests})
	if err != nil {
		return nil, err
	}

	err = Call(*c, request, &records)

	return records, err
}

// GetMetricsStatus calls `MetricsStatusPath` to get a page
// of stored sub-request metrics starting after cursor
func (c *BatchServiceClient) GetMetricsStatus(ctx context.Context, cursor int64, limit int) (MetricsStatusResponse, error) {
	var response MetricsStatusResponse

	query := url.Values{}
	query.Set("cursor", strconv.FormatInt(cursor, 10))
	query.Set("limit", strconv.Itoa(limit))

	request, err := CreateRequest(ctx, http.MethodGet, c.config.BatchServiceHostname+MetricsStatusPath+"?"+query.Encode(), nil)
	if err != nil {
		return response, err
	}

	err = Call(*c, request, &response)

	return response, err
}

// RequestError provides additional details about the failed request.
type RequestError struct {
	message    string
	URL        string
	StatusCode int
}

// Error implements the error interface for RequestError.
func (err *RequestError) Error() string {
	return err.message
}

// NewError creates a new RequestError
func NewError(message, url string, statusCode int) error {
	return &RequestError{message, url, statusCode}
}

// CreateRequest isolates duplicate code in creating http requests,
// params is encoded as the JSON body when non-nil
func CreateRequest(ctx context.Context, method string, path string, params interface{}) (*http.Request, error) {
	var buf bytes.Buffer
	if params != nil {
		if err := json.NewEncoder(&buf).Encode(params); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, path, &buf)
	if err != nil {
		return nil, &RequestError{
			URL:     path,
			message: err.Error(),
		}
	}

	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// Call makes an http request to a JSON HTTP api
// decoding the JSON response to the result interface if non-nil
// returning error (if any)
func Call(client BatchServiceClient, request *http.Request, result interface{}) error {
	response, err := client.Do(request)
	if err != nil {
		return &RequestError{
			URL:     request.URL.String(),
			message: err.Error(),
		}
	}

	defer response.Body.Close()

	if !(response.StatusCode >= 200 && response.StatusCode <= 299) {
		requestURL := request.URL.String()
		body, _ := io.ReadAll(response.Body)
		return &RequestError{
			StatusCode: response.StatusCode,
			URL:        requestURL,
			message:    fmt.Sprintf("request to %s error server http error %d: %s", requestURL, response.StatusCode, body),
		}
	}

	// If no result is expected, don't attempt to decode a potentially
	// empty response stream and avoid incurring EOF errors
	if result == nil {
		return nil
	}

	// Check if debug is on
	if client.DebugLogResponses {
		bodyBytes, err := io.ReadAll(response.Body)
		if err != nil {
			return &RequestError{
				URL:     request.URL.String(),
				message: err.Error(),
			}
		}
		fmt.Printf("Request Path %s \n Response Body %s \n  Response Status Code %d \n ", request.URL, string(bodyBytes), response.StatusCode)

		// Repopulate body with the data read
		response.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	if err := json.NewDecoder(response.Body).Decode(result); err != nil {
		return &RequestError{
			URL:     request.URL.String(),
			message: err.Error(),
		}
	}

	return nil
}
