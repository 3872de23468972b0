package batchmdw_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kava-labs/kava-batch-service/decode"
	"github.com/kava-labs/kava-batch-service/service/batchmdw"
)

// recordingBuilder keeps the parameters it was asked to build
type recordingBuilder struct {
	params []batchmdw.BuildParams
}

func (b *recordingBuilder) Build(ctx context.Context, params batchmdw.BuildParams) (*http.Request, error) {
	b.params = append(b.params, params)
	return batchmdw.StdBuilder{}.Build(ctx, params)
}

func TestUnitTestNormalizeHeaderName(t *testing.T) {
	for _, name := range []string{"content_type", "CONTENT_TYPE", "content-type", " Content-Type "} {
		require.Equal(t, "Content-Type", batchmdw.NormalizeHeaderName(name), name)
	}
	require.Equal(t, "X-Custom-Header", batchmdw.NormalizeHeaderName("x_custom_header"))
}

func TestUnitTestTranslateAliasedHeadersResolveDeterministically(t *testing.T) {
	translator := batchmdw.NewTranslator(nil, batchmdw.TranslatorConfig{})

	spec := &decode.BatchRequestSpec{
		Method: http.MethodGet,
		URL:    "/views/",
		Headers: map[string]string{
			"Content-Type": "a",
			"content_type": "b",
			"CONTENT-TYPE": "c",
		},
	}

	// "content_type" sorts after "CONTENT-TYPE" and "Content-Type"
	for i := 0; i < 50; i++ {
		req, err := translator.Translate(context.Background(), spec, batchmdw.AmbientContext{})
		require.NoError(t, err)
		require.Equal(t, []string{"b"}, req.Header.Values("Content-Type"))
	}
}

func TestUnitTestTranslateHeaderPrecedence(t *testing.T) {
	translator := batchmdw.NewTranslator(nil, batchmdw.TranslatorConfig{
		DefaultContentType: "application/json",
		HeadersToInclude:   []string{"user_agent", "Cookie"},
	})

	ambient := batchmdw.AmbientContext{
		Header: http.Header{
			"User-Agent":    []string{"batch-client/1.0"},
			"Cookie":        []string{"session=abc"},
			"Authorization": []string{"Bearer secret"},
		},
	}

	req, err := translator.Translate(context.Background(), &decode.BatchRequestSpec{
		Method:  http.MethodPost,
		URL:     "/views/",
		Headers: map[string]string{"USER_AGENT": "sub-request/2.0", "x_custom": "custom"},
		Body:    []byte("{}"),
	}, ambient)
	require.NoError(t, err)

	// descriptor wins over ambient
	require.Equal(t, "sub-request/2.0", req.Header.Get("User-Agent"))
	// allow-listed ambient header fills in
	require.Equal(t, "session=abc", req.Header.Get("Cookie"))
	// ambient headers outside the allow-list are not inherited
	require.Empty(t, req.Header.Get("Authorization"))
	require.Equal(t, "custom", req.Header.Get("X-Custom"))
	require.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestUnitTestTranslateKeepsDescriptorContentType(t *testing.T) {
	translator := batchmdw.NewTranslator(nil, batchmdw.TranslatorConfig{DefaultContentType: "application/json"})

	req, err := translator.Translate(context.Background(), &decode.BatchRequestSpec{
		Method:  http.MethodPost,
		URL:     "/views/",
		Headers: map[string]string{"content_type": "text/plain"},
	}, batchmdw.AmbientContext{})
	require.NoError(t, err)
	require.Equal(t, "text/plain", req.Header.Get("Content-Type"))
}

func TestUnitTestTranslateDropsBodyForGetAndOptions(t *testing.T) {
	builder := &recordingBuilder{}
	translator := batchmdw.NewTranslator(builder, batchmdw.TranslatorConfig{})

	for _, method := range []string{http.MethodGet, http.MethodOptions, http.MethodPost} {
		req, err := translator.Translate(context.Background(), &decode.BatchRequestSpec{
			Method: method,
			URL:    "/echo/?header=body",
			Body:   []byte("ignored unless posted"),
		}, batchmdw.AmbientContext{})
		require.NoError(t, err)

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)

		if method == http.MethodPost {
			require.Equal(t, "ignored unless posted", string(body))
			continue
		}
		require.Empty(t, body, method)
	}

	require.Len(t, builder.params, 3)
	require.Nil(t, builder.params[0].Body)
	require.Nil(t, builder.params[1].Body)
}

func TestUnitTestTranslateRejectsInvalidURLBeforeBuilding(t *testing.T) {
	builder := &recordingBuilder{}
	translator := batchmdw.NewTranslator(builder, batchmdw.TranslatorConfig{})

	_, err := translator.Translate(context.Background(), &decode.BatchRequestSpec{
		Method: http.MethodGet,
		URL:    "http://[::1",
	}, batchmdw.AmbientContext{})
	require.Error(t, err)
	require.Empty(t, builder.params)
}

func TestUnitTestStdBuilderInheritsAmbientConnection(t *testing.T) {
	translator := batchmdw.NewTranslator(nil, batchmdw.TranslatorConfig{})

	req, err := translator.Translate(context.Background(), &decode.BatchRequestSpec{
		Method: http.MethodGet,
		URL:    "/views/?page=2",
	}, batchmdw.AmbientContext{Host: "batch.example", RemoteAddr: "10.0.0.1:4242"})
	require.NoError(t, err)

	require.Equal(t, "batch.example", req.Host)
	require.Equal(t, "10.0.0.1:4242", req.RemoteAddr)
	require.Equal(t, "/views/?page=2", req.RequestURI)
	require.Nil(t, req.TLS)

	req, err = translator.Translate(context.Background(), &decode.BatchRequestSpec{
		Method: http.MethodGet,
		URL:    "http://other.example/views/",
	}, batchmdw.AmbientContext{Host: "batch.example"})
	require.NoError(t, err)
	require.Equal(t, "other.example", req.Host)
}

func TestUnitTestStdBuilderMarksRequestsSecure(t *testing.T) {
	translator := batchmdw.NewTranslator(nil, batchmdw.TranslatorConfig{UseHTTPS: true})

	req, err := translator.Translate(context.Background(), &decode.BatchRequestSpec{
		Method: http.MethodGet,
		URL:    "/echo/?header=scheme",
	}, batchmdw.AmbientContext{Host: "batch.example"})
	require.NoError(t, err)

	require.NotNil(t, req.TLS)
	require.Equal(t, "https", req.URL.Scheme)
	require.Equal(t, "batch.example", req.URL.Host)

	record, err := batchmdw.HTTPHandler(newHostApp()).Handle(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "https", record.Body)
}
