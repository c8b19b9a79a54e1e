package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vkcli/vk-cli/internal/debug"
	"github.com/vkcli/vk-cli/internal/validation"
)

// Client is the vk.com API client.
//
// Gzip, retry limit and connection timeout may be changed at any time; each
// call snapshots them when it starts, so a change never affects a call
// already in flight.
type Client struct {
	token      string
	baseURL    string
	apiVersion string
	lang       string
	transport  Transport
	limiter    *rate.Limiter

	skipURLValidation bool // internal flag for testing only
	validatedBaseURL  bool
	validateMu        sync.Mutex

	mu         sync.RWMutex
	gzip       bool
	retryLimit int
	timeout    time.Duration
	retryDelay time.Duration
}

// Compile-time interface implementation check
var _ Requester = (*Client)(nil)

var validateBaseURL = validation.ValidateBaseURL

// Option customizes a Client at construction.
type Option func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// New creates a client for the given access token. cfg is validated and
// copied; DefaultConfig() is the usual starting point.
func New(token string, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		token:      token,
		baseURL:    cfg.BaseURL,
		apiVersion: cfg.APIVersion,
		lang:       cfg.Lang,
		gzip:       cfg.Gzip,
		retryLimit: cfg.RetryLimit,
		timeout:    time.Duration(cfg.ConnectionTimeout) * time.Millisecond,
		retryDelay: cfg.RetryDelay,
	}
	c.limiter = newLimiter(cfg.RequestsPerSecond)
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(cfg.UserAgent)
	}
	return c, nil
}

// newTestClient creates a client with URL validation disabled for testing
func newTestClient(baseURL, token string, t Transport) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	c, err := New(token, cfg, WithTransport(t))
	if err != nil {
		panic(err)
	}
	c.skipURLValidation = true
	return c
}

// SetGzip toggles requesting gzip-compressed responses.
func (c *Client) SetGzip(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gzip = enabled
}

// Gzip reports whether gzip responses are requested.
func (c *Client) Gzip() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gzip
}

// SetRetryLimit sets the maximum attempts per call. Values below 1 are
// rejected and the previous limit is kept.
func (c *Client) SetRetryLimit(limit int) error {
	if limit < 1 {
		return invalid("retry limit", "must be at least 1, got %d", limit)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryLimit = limit
	return nil
}

// RetryLimit returns the maximum attempts per call.
func (c *Client) RetryLimit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.retryLimit
}

// SetConnectionTimeout sets the per-attempt timeout in milliseconds. Zero and
// negative values are rejected and the previous timeout is kept.
func (c *Client) SetConnectionTimeout(ms int) error {
	if ms <= 0 {
		return invalid("connection timeout", "must be positive, got %d", ms)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = time.Duration(ms) * time.Millisecond
	return nil
}

// ConnectionTimeout returns the per-attempt timeout in milliseconds.
func (c *Client) ConnectionTimeout() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int(c.timeout / time.Millisecond)
}

// SetRetryDelay sets the pause between attempts.
func (c *Client) SetRetryDelay(d time.Duration) error {
	if d < 0 {
		return invalid("retry delay", "must not be negative, got %s", d)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryDelay = d
	return nil
}

// BaseURL returns the method endpoint prefix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type callSettings struct {
	gzip       bool
	retryLimit int
	timeout    time.Duration
	retryDelay time.Duration
}

func (c *Client) snapshot() callSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return callSettings{
		gzip:       c.gzip,
		retryLimit: c.retryLimit,
		timeout:    c.timeout,
		retryDelay: c.retryDelay,
	}
}

func (c *Client) ensureBaseURLValidated() error {
	if c.skipURLValidation {
		return nil
	}

	c.validateMu.Lock()
	defer c.validateMu.Unlock()

	if c.validatedBaseURL {
		return nil
	}

	if err := validateBaseURL(c.baseURL); err != nil {
		return fmt.Errorf("URL validation failed: %w", err)
	}

	c.validatedBaseURL = true
	return nil
}

// prepare adds the client-wide parameters without touching the caller's set.
func (c *Client) prepare(p *Params) *Params {
	if c.apiVersion == "" && c.lang == "" {
		return p
	}
	p = p.Clone()
	if _, ok := p.Get("v"); !ok {
		p.Put("v", c.apiVersion)
	}
	if _, ok := p.Get("lang"); !ok {
		p.Put("lang", c.lang)
	}
	return p
}

// RequestURL returns the URL a call with p would request.
func (c *Client) RequestURL(p *Params) string {
	return BuildRequestURL(c.baseURL, c.prepare(p), c.token)
}

// Execute sends one API call and returns the unwrapped envelope. Network
// failures are retried up to the retry limit when they are TLS or socket
// failures; API errors in the envelope are returned as *APIError.
func (c *Client) Execute(ctx context.Context, p *Params) (*Envelope, error) {
	if p == nil || p.Method() == "" {
		return nil, invalid("method", "must not be empty")
	}
	if err := c.ensureBaseURLValidated(); err != nil {
		return nil, err
	}

	if answer, ok := captchaFromContext(ctx); ok {
		p = p.WithCaptcha(answer.sid, answer.key)
	}

	settings := c.snapshot()
	requestURL := c.RequestURL(p)
	requestID := uuid.NewString()

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	if debug.IsEnabled(ctx) {
		slog.Debug("api request", "request_id", requestID, "method", p.Method(), "url", RedactURL(requestURL), "gzip", settings.gzip)
	}

	start := time.Now()
	body, err := c.send(ctx, requestURL, settings, requestID)
	if err != nil {
		if debug.IsEnabled(ctx) {
			slog.Debug("api request failed", "request_id", requestID, "method", p.Method(), "duration", time.Since(start), "error", err)
		}
		return nil, err
	}

	env, err := parseEnvelope(body)
	if debug.IsEnabled(ctx) {
		slog.Debug("api request complete", "request_id", requestID, "method", p.Method(), "bytes", len(body), "duration", time.Since(start), "api_error", err != nil)
	}
	if err != nil {
		return nil, err
	}
	return env, nil
}

// Call is Execute for callers that build parameters from user input.
func (c *Client) Call(ctx context.Context, method string, args map[string]string) (*Envelope, error) {
	p := NewParams(method)
	for k, v := range args {
		p.Put(k, v)
	}
	return c.Execute(ctx, p)
}

func (c *Client) send(ctx context.Context, requestURL string, s callSettings, requestID string) ([]byte, error) {
	opts := TransportOptions{Timeout: s.timeout, Gzip: s.gzip}
	for attempt := 1; ; attempt++ {
		body, err := c.transport.Get(ctx, requestURL, opts)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, ErrNoStatus) {
			return nil, &ProtocolError{Reason: "indeterminate response status", Err: err}
		}
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			return nil, &ProtocolError{Reason: "unexpected HTTP status", StatusCode: statusErr.StatusCode, Err: err}
		}
		var protoErr *ProtocolError
		if errors.As(err, &protoErr) {
			return nil, err
		}

		kind := classifyTransportError(ctx, err)
		if !kind.Retryable() || attempt >= s.retryLimit {
			return nil, &TransportError{Kind: kind, Attempts: attempt, Err: err}
		}

		slog.Warn("request failed, retrying", "request_id", requestID, "kind", string(kind), "attempt", attempt+1, "limit", s.retryLimit)
		if err := sleepWithContext(ctx, s.retryDelay); err != nil {
			return nil, &TransportError{Kind: TransportCanceled, Attempts: attempt, Err: err}
		}
	}
}
