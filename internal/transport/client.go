package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Client is the low-level HTTP transport used by Fetcher.
type Client interface {
	// Do sends an HTTP request and returns the fully read response.
	Do(ctx context.Context, req *Request) (*Response, error)

	// SetRateLimit sets the maximum requests per second.
	SetRateLimit(rps float64)

	// Stats returns transport statistics.
	Stats() *TransportStats
}

// TransportStats holds aggregate statistics for the transport client.
type TransportStats struct {
	TotalRequests int64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// ClientOptions holds configuration for creating a new DefaultClient.
type ClientOptions struct {
	// Timeout bounds the total duration of each request.
	Timeout time.Duration

	// ProxyURL is the proxy URL (HTTP or SOCKS5).
	ProxyURL string

	// FollowRedirects controls whether redirects are followed.
	FollowRedirects bool

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// UserAgent is sent with every request unless RandomUserAgent is set.
	UserAgent string

	// RandomUserAgent picks a new User-Agent for every request.
	RandomUserAgent bool

	// MaxRPS is the maximum requests per second (0 = unlimited).
	MaxRPS float64

	// MaxConns caps the number of requests in flight across all hosts
	// (0 = unlimited).
	MaxConns int
}

// DefaultClient is the default implementation of the Client interface,
// backed by net/http.
type DefaultClient struct {
	httpClient *http.Client
	opts       ClientOptions
	conns      *semaphore.Weighted

	limiterMu sync.RWMutex
	limiter   *rate.Limiter

	mu              sync.RWMutex
	totalRequests   int64
	totalDurationNs int64
}

// NewClient creates a new DefaultClient with the given options.
func NewClient(opts ClientOptions) (*DefaultClient, error) {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec
		},
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
	if opts.MaxConns > 0 {
		base.MaxConnsPerHost = opts.MaxConns
	}

	if opts.ProxyURL != "" {
		proxyURL, err := parseProxyURL(opts.ProxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: NewDecodingTransport(base),
		Timeout:   opts.Timeout,
	}
	if !opts.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	dc := &DefaultClient{
		httpClient: client,
		opts:       opts,
	}
	if opts.MaxConns > 0 {
		dc.conns = semaphore.NewWeighted(int64(opts.MaxConns))
	}
	dc.SetRateLimit(opts.MaxRPS)

	return dc, nil
}

// Do sends an HTTP request and returns the response. It applies the
// connection cap, rate limiting, headers and timing measurement, and reads
// the whole body, decoding it to UTF-8.
func (c *DefaultClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.conns != nil {
		if err := c.conns.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer c.conns.Release(1)
	}

	c.limiterMu.RLock()
	limiter := c.limiter
	c.limiterMu.RUnlock()
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var bodyReader io.Reader
	if req.Body != "" {
		bodyReader = strings.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		switch {
		case c.opts.RandomUserAgent:
			httpReq.Header.Set("User-Agent", RandomUserAgent())
		case c.opts.UserAgent != "":
			httpReq.Header.Set("User-Agent", c.opts.UserAgent)
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       decodeCharset(raw, httpResp.Header.Get("Content-Type")),
		Duration:   duration,
		URL:        httpResp.Request.URL.String(),
	}

	c.mu.Lock()
	c.totalRequests++
	c.totalDurationNs += duration.Nanoseconds()
	c.mu.Unlock()

	return resp, nil
}

func parseProxyURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL: missing scheme or host")
	}
	return parsed, nil
}

// SetRateLimit sets the maximum number of requests per second.
// A value of 0 or less disables rate limiting.
func (c *DefaultClient) SetRateLimit(rps float64) {
	c.limiterMu.Lock()
	defer c.limiterMu.Unlock()
	if rps <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// Stats returns aggregate transport statistics.
func (c *DefaultClient) Stats() *TransportStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := &TransportStats{
		TotalRequests: c.totalRequests,
		TotalDuration: time.Duration(c.totalDurationNs),
	}
	if c.totalRequests > 0 {
		stats.AvgDuration = time.Duration(c.totalDurationNs / c.totalRequests)
	}
	return stats
}
