// Package remote is the client's single gateway to the reading server's
// REST API. It unwraps the {code, message, data, timestamp} envelope,
// normalises every failure into *RemoteError and shares identical in-flight
// reads between callers.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	"github.com/legado-reader/legado-client/internal/id"
	"github.com/legado-reader/legado-client/internal/ratelimit"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "legado-client/1.0"

	// maxBodySize caps response bodies, covers included.
	maxBodySize = 16 << 20
)

// TokenSource supplies the bearer token for each request. An empty string
// sends no Authorization header.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// ClientID is sent as X-Client-Id to identify this installation.
	ClientID string
	// Limiter throttles requests per host. Nil disables throttling.
	Limiter *ratelimit.KeyedRateLimiter
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client issues API calls. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	limiter   *ratelimit.KeyedRateLimiter
	userAgent string
	clientID  string
	logger    *slog.Logger

	tokens atomic.Pointer[TokenSource]
	flight singleflight.Group
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		base:      base,
		http:      httpClient,
		limiter:   cfg.Limiter,
		userAgent: userAgent,
		clientID:  cfg.ClientID,
		logger:    logger,
	}, nil
}

// SetTokenSource installs the bearer token source. The session store is
// built on top of the client, so it is attached after construction.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens.Store(&ts)
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) token() string {
	if ts := c.tokens.Load(); ts != nil && *ts != nil {
		return (*ts).Token()
	}
	return ""
}

// call describes one API request.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
}

func (r call) op() string {
	return r.method + " " + r.path
}

// dedupKey identifies a logical resource: method, path and the query with
// keys and values sorted.
func (r call) dedupKey() string {
	if len(r.query) == 0 {
		return r.method + " " + r.path
	}
	normalized := make(url.Values, len(r.query))
	for k, vs := range r.query {
		sorted := slices.Clone(vs)
		slices.Sort(sorted)
		normalized[k] = sorted
	}
	return r.method + " " + r.path + "?" + normalized.Encode()
}

// get performs a deduplicated read and decodes the envelope data into T.
func get[T any](ctx context.Context, c *Client, path string, query url.Values) Result[T] {
	req := call{method: http.MethodGet, path: path, query: query}
	data, err := c.shared(ctx, req)
	if err != nil {
		return Result[T]{Err: err}
	}
	out, err := decodeData[T](req.op(), data)
	return Result[T]{Data: out, Err: err}
}

// send performs a write. Writes are never deduplicated.
func send[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) Result[T] {
	req := call{method: method, path: path, query: query, body: body}
	data, err := c.execute(ctx, req)
	if err != nil {
		return Result[T]{Err: err}
	}
	out, err := decodeData[T](req.op(), data)
	return Result[T]{Data: out, Err: err}
}

// shared joins an identical in-flight read or starts one. The shared request
// is detached from the first caller's cancellation so a caller giving up
// does not fail the others; each caller still returns when its own ctx ends.
func (c *Client) shared(ctx context.Context, req call) (json.RawMessage, error) {
	key := req.dedupKey()
	ch := c.flight.DoChan(key, func() (any, error) {
		return c.execute(context.WithoutCancel(ctx), req)
	})

	select {
	case <-ctx.Done():
		return nil, transportError(req.op(), 0, "request canceled", ctx.Err())
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("joined in-flight request", "key", key)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		data, _ := res.Val.(json.RawMessage)
		return data, nil
	}
}

// execute sends one request and unwraps the envelope. Single attempt.
func (c *Client) execute(ctx context.Context, req call) (json.RawMessage, error) {
	op := req.op()

	u := c.base.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	status, body, err := c.roundTrip(ctx, req.method, u, req.body, "application/json")
	if err != nil {
		return nil, transportError(op, 0, "server unreachable", err)
	}
	return unwrapEnvelope(op, status, body)
}

// roundTrip performs the HTTP exchange and returns the status and body.
func (c *Client) roundTrip(ctx context.Context, method string, u *url.URL, payload any, accept string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, u.Host); err != nil {
			return 0, nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		body = bytes.NewReader(p)
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	requestID := id.Request.Must()
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-Id", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.clientID != "" {
		httpReq.Header.Set("X-Client-Id", c.clientID)
	}
	if tok := c.token(); tok != "" && u.Host == c.base.Host {
		httpReq.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed",
			"method", method, "path", u.Path, "request_id", requestID, "error", err)
		return 0, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxBodySize {
		return resp.StatusCode, nil, errors.New("response body too large")
	}

	c.logger.Debug("api request",
		"method", method,
		"path", u.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	return resp.StatusCode, data, nil
}

// FetchRaw downloads an absolute URL without envelope handling. Used for
// cover images. Identical concurrent fetches are shared.
func (c *Client) FetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	op := "GET " + rawURL
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, transportError(op, 0, "invalid url", err)
	}

	ch := c.flight.DoChan("RAW "+u.String(), func() (any, error) {
		status, body, err := c.roundTrip(context.WithoutCancel(ctx), http.MethodGet, u, nil, "*/*")
		if err != nil {
			return nil, transportError(op, 0, "fetch failed", err)
		}
		if status < 200 || status > 299 {
			return nil, transportError(op, status, statusMessage(status, nil), nil)
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, transportError(op, 0, "request canceled", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		body, _ := res.Val.([]byte)
		return body, nil
	}
}
