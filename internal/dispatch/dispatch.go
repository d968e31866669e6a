// Package dispatch sends provider API requests on behalf of stored
// credentials. Adapters hand it an auth index instead of a token; the
// dispatcher resolves the credential and attaches the bearer header, so
// token material never crosses into the quota core.
package dispatch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	qderrors "github.com/quotadeck/quotadeck/internal/errors"
	"github.com/quotadeck/quotadeck/internal/logging"
)

// Request is a provider API call. Body may be nil for GET requests.
type Request struct {
	AuthIndex string
	Method    string
	URL       string
	Headers   map[string]string
	Body      []byte
}

// Response carries the status code and raw body of a completed exchange.
// Non-2xx statuses are returned here, not as errors; only transport
// failures error out.
type Response struct {
	StatusCode int
	Body       []byte
}

// TokenSource resolves an auth index to a bearer token. Implemented by the
// credential store.
type TokenSource interface {
	AccessToken(ctx context.Context, authIndex string) (string, error)
}

// Doer abstracts the HTTP client so tests can stub the wire.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher executes requests with rotating browser-like headers.
type Dispatcher struct {
	client Doer
	tokens TokenSource
	logger *logging.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClient overrides the HTTP client, mainly for tests.
func WithClient(client Doer) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *logging.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher backed by the rotating client.
func New(tokens TokenSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: NewRotatingClient(),
		tokens: tokens,
		logger: logging.NewLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send executes the request and reads the full body. The provider name is
// only used to label transport errors.
func (d *Dispatcher) Send(ctx context.Context, provider string, req Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &qderrors.ErrTransport{Provider: provider, Err: err}
	}

	if req.AuthIndex != "" && d.tokens != nil {
		token, err := d.tokens.AccessToken(ctx, req.AuthIndex)
		if err != nil {
			return nil, &qderrors.ErrTransport{Provider: provider, Err: err}
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	started := time.Now()
	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		d.logger.WarnWithContext(ctx, "request failed",
			"provider", provider, "url", req.URL, "error", err.Error())
		return nil, &qderrors.ErrTransport{Provider: provider, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &qderrors.ErrTransport{Provider: provider, Status: httpResp.StatusCode, Err: err}
	}

	d.logger.DebugWithContext(ctx, "request complete",
		"provider", provider, "url", req.URL,
		"status", httpResp.StatusCode, "elapsed_ms", time.Since(started).Milliseconds())

	return &Response{StatusCode: httpResp.StatusCode, Body: data}, nil
}
