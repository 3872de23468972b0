package batchmdw

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/kava-labs/kava-batch-service/decode"
)

// AmbientContext is what a sub-request inherits from the batch request
type AmbientContext struct {
	Header     http.Header
	Host       string
	RemoteAddr string
}

// AmbientFromRequest captures the ambient context of the outer batch request
func AmbientFromRequest(r *http.Request) AmbientContext {
	return AmbientContext{
		Header:     r.Header.Clone(),
		Host:       r.Host,
		RemoteAddr: r.RemoteAddr,
	}
}

// BuildParams is a fully translated descriptor ready to be built
type BuildParams struct {
	Method     string
	URL        *url.URL
	Header     http.Header
	Body       []byte
	Host       string
	RemoteAddr string
	UseHTTPS   bool
}

// Builder turns translated parameters into a request the host can serve
type Builder interface {
	Build(ctx context.Context, params BuildParams) (*http.Request, error)
}

// StdBuilder builds server side style requests with net/http
type StdBuilder struct{}

var _ Builder = StdBuilder{}

func (StdBuilder) Build(ctx context.Context, params BuildParams) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if len(params.Body) > 0 {
		body = bytes.NewReader(params.Body)
	}

	req, err := http.NewRequestWithContext(ctx, params.Method, params.URL.String(), body)
	if err != nil {
		return nil, err
	}

	req.Header = params.Header
	req.RequestURI = params.URL.RequestURI()
	req.RemoteAddr = params.RemoteAddr
	req.Host = params.Host
	if params.URL.Host != "" {
		req.Host = params.URL.Host
	}

	if params.UseHTTPS {
		req.URL.Scheme = "https"
		if req.URL.Host == "" {
			req.URL.Host = req.Host
		}
		req.TLS = &tls.ConnectionState{ServerName: req.Host}
	}

	return req, nil
}

// TranslatorConfig holds the translation policy
type TranslatorConfig struct {
	DefaultContentType string
	HeadersToInclude   []string
	UseHTTPS           bool
}

// Translator applies the translation policy to a descriptor and
// hands the result to a Builder
type Translator struct {
	builder            Builder
	defaultContentType string
	headersToInclude   []string
	useHTTPS           bool
}

// NewTranslator returns a translator using builder, a nil builder
// means StdBuilder
func NewTranslator(builder Builder, config TranslatorConfig) *Translator {
	if builder == nil {
		builder = StdBuilder{}
	}

	headers := make([]string, 0, len(config.HeadersToInclude))
	for _, name := range config.HeadersToInclude {
		headers = append(headers, NormalizeHeaderName(name))
	}

	return &Translator{
		builder:            builder,
		defaultContentType: config.DefaultContentType,
		headersToInclude:   headers,
		useHTTPS:           config.UseHTTPS,
	}
}

// NormalizeHeaderName maps content_type, CONTENT_TYPE and content-type
// to Content-Type
func NormalizeHeaderName(name string) string {
	return http.CanonicalHeaderKey(strings.ReplaceAll(strings.TrimSpace(name), "_", "-"))
}

// Translate builds the request for spec. Headers set by the descriptor
// always win over headers inherited from ambient. When several descriptor
// names normalize to the same header, the name sorting last wins.
func (t *Translator) Translate(ctx context.Context, spec *decode.BatchRequestSpec, ambient AmbientContext) (*http.Request, error) {
	target, err := url.Parse(spec.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request url %q: %w", spec.URL, err)
	}

	names := make([]string, 0, len(spec.Headers))
	for name := range spec.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(http.Header, len(spec.Headers)+len(t.headersToInclude)+1)
	for _, name := range names {
		header.Set(NormalizeHeaderName(name), spec.Headers[name])
	}

	if header.Get("Content-Type") == "" && t.defaultContentType != "" {
		header.Set("Content-Type", t.defaultContentType)
	}

	for _, name := range t.headersToInclude {
		if _, set := header[name]; set {
			continue
		}
		if values := ambient.Header.Values(name); len(values) > 0 {
			header[name] = append([]string(nil), values...)
		}
	}

	body := spec.Body
	if spec.Method == http.MethodGet || spec.Method == http.MethodOptions {
		body = nil
	}

	return t.builder.Build(ctx, BuildParams{
		Method:     spec.Method,
		URL:        target,
		Header:     header,
		Body:       body,
		Host:       ambient.Host,
		RemoteAddr: ambient.RemoteAddr,
		UseHTTPS:   t.useHTTPS,
	})
}
