package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

const (
	DefaultTimeout = 15 * time.Second
	UploadTimeout  = 30 * time.Second

	maxBodySize = 4 << 20
)

// UnauthorizedHandler is notified when a protected request is answered with 401
type UnauthorizedHandler func(ctx context.Context, err error)

// Client is the single request pipeline every service call goes through
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      ports.TokenStore
	probe      ports.NetworkProbe
	logger     logrus.FieldLogger
	headers    Headers
	timeout    time.Duration
	pipeline   RoundTripFunc

	mu           sync.RWMutex
	unauthorized []UnauthorizedHandler
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithProbe(probe ports.NetworkProbe) Option {
	return func(c *Client) {
		c.probe = probe
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithHeaders(h Headers) Option {
	return func(c *Client) {
		c.headers = h
	}
}

// WithDefaultTimeout changes the per-request deadline used when a call does
// not pass WithTimeout
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a client for the API rooted at baseURL. Credentials are
// read from store on every protected request.
func NewClient(baseURL string, store ports.TokenStore, opts ...Option) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: DefaultTransport()},
		store:      store,
		logger:     logger,
		headers:    Headers{AppVersion: "1.0.0", Environment: "production"},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.pipeline = Chain(c.send,
		HeadersMiddleware(c.headers),
		RequestIDMiddleware(),
		LoggingMiddleware(c.logger),
		ReachabilityMiddleware(c.probe),
		AuthenticationMiddleware(c.store),
	)
	return c
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// BaseURL returns the API root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnUnauthorized registers a handler for 401 responses on protected endpoints
func (c *Client) OnUnauthorized(handler UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unauthorized = append(c.unauthorized, handler)
}

func (c *Client) notifyUnauthorized(ctx context.Context, err error) {
	c.mu.RLock()
	handlers := make([]UnauthorizedHandler, len(c.unauthorized))
	copy(handlers, c.unauthorized)
	c.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, err)
	}
}

type requestOptions struct {
	bearer  string
	timeout time.Duration
	query   url.Values
}

// RequestOption adjusts a single call
type RequestOption func(*requestOptions)

// WithBearer sends token instead of the stored credential
func WithBearer(token string) RequestOption {
	return func(o *requestOptions) {
		o.bearer = token
	}
}

// WithTimeout overrides the deadline of a single call
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.timeout = d
	}
}

// WithQuery adds query parameters to the request URL
func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) {
		o.query = q
	}
}

func (c *Client) Get(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, out, opts...)
}

func (c *Client) Patch(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPatch, endpoint, body, out, opts...)
}

// Do sends one request through the pipeline and decodes a 2xx JSON body into
// out. Any other outcome is returned as *Error, except cancellation of ctx
// which is returned as ctx.Err().
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any, opts ...RequestOption) error {
	ro := requestOptions{timeout: c.timeout}
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.timeout <= 0 {
		ro.timeout = c.timeout
	}

	reqCtx, cancel := context.WithTimeout(ctx, ro.timeout)
	defer cancel()
	reqCtx = withEndpoint(reqCtx, endpoint)
	sent := &sentCredential{}
	reqCtx = withSentCredential(reqCtx, sent)
	if ro.bearer != "" {
		reqCtx = withBearer(reqCtx, ro.bearer)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + endpoint
	if len(ro.query) > 0 {
		target += "?" + ro.query.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.pipeline(req)
	if cerr := ctx.Err(); errors.Is(cerr, context.Canceled) {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return cerr
	}
	if err != nil {
		return c.classifyFailure(method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return c.classifyFailure(method, endpoint, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
		return nil
	}

	apiErr := &Error{
		Kind:       classifyStatus(resp.StatusCode),
		Method:     method,
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Message:    extractMessage(raw),
		Body:       raw,
		Token:      sent.token,
	}
	if apiErr.Kind == KindUnauthorized && !IsPublic(endpoint) {
		c.notifyUnauthorized(context.WithoutCancel(ctx), apiErr)
	}
	return apiErr
}

func (c *Client) classifyFailure(method, endpoint string, err error) error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Method == "" {
			apiErr.Method = method
			apiErr.Endpoint = endpoint
		}
		return apiErr
	}
	if errors.Is(err, core.ErrStoreOperationFailed) {
		return err
	}

	kind := KindNetworkUnreachable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Method: method, Endpoint: endpoint, Err: err}
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= http.StatusInternalServerError:
		return KindServerError
	default:
		return KindClientError
	}
}

func extractMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
