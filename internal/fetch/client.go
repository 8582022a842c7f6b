// Package fetch is the resilient HTTP retrieval layer used by every
// provider: per-call timeouts, linear retry with rate-limit aware backoff,
// rate-limit header reporting and an optional response cache.
//
// The layer reports upstream quota through RateLimitSnapshot but never
// throttles on its own; pacing is the provider adapters' job.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"statbridge/internal/cache"
)

const (
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBodyBytes bounds a single upstream payload.
	DefaultMaxBodyBytes = 64 << 20
)

// Request describes one GET.
type Request struct {
	URL     string
	Headers map[string]string
	// Timeout overrides the client default for this call.
	Timeout time.Duration
	// CacheTTL overrides the client default; negative disables caching.
	CacheTTL time.Duration
}

// Response is a successful (2xx) upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
	RateLimit  *RateLimitSnapshot
	FromCache  bool
}

// Recorder receives fetch events. platform/metrics implements it.
type Recorder interface {
	ObserveFetch(host string, status int, elapsed time.Duration)
	FetchRetry(host string, rateLimited bool)
}

// Client performs upstream GETs.
type Client struct {
	http     *http.Client
	timeout  time.Duration
	maxBody  int64
	policy   Policy
	store    cache.Store
	cacheTTL time.Duration
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
	now      func() time.Time
	inflight singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithMaxBodyBytes caps how much of a 2xx body is read. Larger bodies fail
// with ErrBodyTooLarge.
func WithMaxBodyBytes(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxBody = n
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(cl *Client) {
		cl.policy = p
	}
}

// WithCache enables response caching for Get with the given default TTL.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.store = store
		cl.cacheTTL = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithRecorder(r Recorder) Option {
	return func(cl *Client) {
		cl.recorder = r
	}
}

// NewClient builds a client whose transport transparently negotiates gzip
// and zstd with upstreams.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Transport: gzhttp.Transport(http.DefaultTransport)},
		timeout: DefaultTimeout,
		maxBody: DefaultMaxBodyBytes,
		policy:  DefaultPolicy(),
		logger:  slog.New(slog.DiscardHandler),
		tracer:  otel.Tracer("statbridge/internal/fetch"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch issues a single GET without retry or cache. The call is cancelled
// once it exceeds the request or client timeout. Non-2xx responses return
// an *HTTPError carrying status, reason and URL.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host := hostOf(req.URL)
	ctx, span := c.tracer.Start(ctx, "fetch.get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", req.URL)),
	)
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, NonRetryable(fmt.Errorf("build request: %w", err))
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := c.now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(host, 0, start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return nil, &HTTPError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	snapshot := ExtractRateLimit(resp.Header, c.now())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		c.observe(host, resp.StatusCode, start)
		span.SetStatus(codes.Error, resp.Status)
		return nil, newStatusError(req.URL, resp, snapshot)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	c.observe(host, resp.StatusCode, start)
	if err != nil {
		span.RecordError(err)
		return nil, &HTTPError{URL: req.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		span.SetStatus(codes.Error, "body too large")
		return nil, NonRetryable(&HTTPError{
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("body exceeds %d bytes", c.maxBody),
			URL:        req.URL,
			RateLimit:  snapshot,
			Err:        ErrBodyTooLarge,
		})
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        req.URL,
		RateLimit:  snapshot,
	}, nil
}

// FetchWithRetry wraps Fetch in the client's retry policy.
func (c *Client) FetchWithRetry(ctx context.Context, req Request) (*Response, error) {
	host := hostOf(req.URL)
	policy := c.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		limited := IsRateLimited(err)
		if c.recorder != nil {
			c.recorder.FetchRetry(host, limited)
		}
		c.logger.WarnContext(ctx, "upstream fetch failed, retrying",
			"url", req.URL,
			"attempt", attempt,
			"delay", delay,
			"rate_limited", limited,
			"error", err,
		)
	}
	return Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
		return c.Fetch(ctx, req)
	})
}

// Get is the entry point providers use: cache lookup, then a single
// coalesced retried fetch per distinct cache key, then cache fill.
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	key := CacheKey(req)
	ttl := c.cacheTTL
	if req.CacheTTL != 0 {
		ttl = req.CacheTTL
	}
	cacheable := c.store != nil && ttl > 0

	if cacheable {
		if body, ok, err := c.store.Get(ctx, key); err == nil && ok {
			return &Response{StatusCode: http.StatusOK, Body: body, URL: req.URL, FromCache: true}, nil
		}
	}

	v, err, _ := c.inflight.Do(key, func() (any, error) {
		resp, err := c.FetchWithRetry(ctx, req)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if err := c.store.Set(ctx, key, resp.Body, ttl); err != nil {
				c.logger.WarnContext(ctx, "response cache write failed", "url", req.URL, "error", err)
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

// CacheKey identifies a cacheable request: URL plus the Accept header,
// since the same URL may serve different representations.
func CacheKey(req Request) string {
	accept := ""
	for k, v := range req.Headers {
		if http.CanonicalHeaderKey(k) == "Accept" {
			accept = v
		}
	}
	return "GET " + req.URL + " " + accept
}

func (c *Client) observe(host string, status int, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveFetch(host, status, c.now().Sub(start))
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
