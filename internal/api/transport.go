package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// TransportOptions are the per-call settings the executor hands to a Transport.
type TransportOptions struct {
	Timeout time.Duration
	Gzip    bool
}

// Transport performs a single GET and returns the full response body.
// Implementations fully consume and release the response before returning.
type Transport interface {
	Get(ctx context.Context, rawURL string, opts TransportOptions) ([]byte, error)
}

// HTTPTransport is the default Transport backed by net/http. Every call uses
// a fresh connection: keep-alive and idle pooling are disabled.
type HTTPTransport struct {
	HTTP      *http.Client
	UserAgent string
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates an HTTPTransport with TLS 1.2 minimum and
// keep-alive disabled.
func NewHTTPTransport(userAgent string) *HTTPTransport {
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12
	transport.TLSClientConfig.InsecureSkipVerify = false
	transport.DisableKeepAlives = true
	transport.MaxIdleConns = 0
	transport.MaxIdleConnsPerHost = -1
	// Compression is negotiated explicitly per call.
	transport.DisableCompression = true

	return &HTTPTransport{
		HTTP:      &http.Client{Transport: transport},
		UserAgent: userAgent,
	}
}

// Get issues the request and reads the body, inflating it when the server
// labels it gzip.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string, opts TransportOptions) ([]byte, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Close = true
	req.Header.Set("Accept", "application/json")
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	if opts.Gzip {
		req.Header.Set("Accept-Encoding", "gzip")
	}

	resp, err := t.HTTP.Do(req)
	if err != nil {
		// url.Error carries the request URL, token included.
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = RedactURL(ue.URL)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", ErrNoStatus, err)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(strings.TrimSpace(resp.Header.Get("Content-Encoding")), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &ProtocolError{Reason: "invalid gzip body", StatusCode: resp.StatusCode, Err: err}
		}
		defer func() { _ = zr.Close() }()
		body = zr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}
