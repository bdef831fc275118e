package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnexpectedStatus is returned for any response other than 200 OK.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrEmptyBody is returned for a 200 response whose body is blank.
	ErrEmptyBody = errors.New("empty response body")

	// ErrFetchFailed is returned once every attempt of Fetch has failed.
	ErrFetchFailed = errors.New("fetch failed")
)

// Fetcher implements the scanner's view of HTTP: a reachability probe, a
// GET with linear-backoff retries and form submission. Failures are logged
// here and reported to callers as errors; none of them are fatal.
type Fetcher struct {
	client Client
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewFetcher returns a Fetcher using client for all requests.
func NewFetcher(client Client, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client: client,
		logger: logger,
		sleep:  Sleep,
	}
}

// RequestCount returns how many requests the underlying client has sent.
func (f *Fetcher) RequestCount() int64 {
	return f.client.Stats().TotalRequests
}

// HeadProbe reports whether url answers a HEAD request with 200 OK.
func (f *Fetcher) HeadProbe(ctx context.Context, url string) bool {
	resp, err := f.client.Do(ctx, &Request{Method: http.MethodHead, URL: url})
	if err != nil {
		f.logger.Warn("connection error", zap.String("url", url), zap.Error(err))
		return false
	}
	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("site not reachable", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// Fetch GETs url, making up to retries+1 attempts. Only a 200 response with
// a non-blank body is accepted. Before attempt n+1 it sleeps delay*n.
func (f *Fetcher) Fetch(ctx context.Context, url string, retries int, delay time.Duration) (string, error) {
	if retries < 0 {
		retries = 0
	}
	attempts := retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := f.client.Do(ctx, &Request{Method: http.MethodGet, URL: url})
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			f.logger.Warn("error fetching page",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Int("attempts", attempts), zap.Error(err))
		case resp.StatusCode != http.StatusOK:
			lastErr = fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
			f.logger.Warn("unexpected status",
				zap.String("url", url), zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt), zap.Int("attempts", attempts))
		case resp.IsBlank():
			lastErr = ErrEmptyBody
			f.logger.Warn("empty response",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Int("attempts", attempts))
		default:
			return resp.BodyString(), nil
		}

		if attempt < attempts {
			if err := f.sleep(ctx, delay*time.Duration(attempt)); err != nil {
				return "", err
			}
		}
	}

	f.logger.Error("failed to fetch page", zap.String("url", url), zap.Int("attempts", attempts))
	return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrFetchFailed, url, attempts, lastErr)
}

// SubmitForm sends data to action. Method "post" sends a form-encoded body;
// anything else sends data as query parameters merged into the action URL.
// The response body is returned whatever the status code.
func (f *Fetcher) SubmitForm(ctx context.Context, action string, data url.Values, method string) (string, error) {
	req := &Request{Method: http.MethodGet, URL: action}
	if strings.EqualFold(method, http.MethodPost) {
		req.Method = http.MethodPost
		req.Body = data.Encode()
		req.ContentType = "application/x-www-form-urlencoded"
	} else {
		target, err := mergeQuery(action, data)
		if err != nil {
			f.logger.Warn("error submitting form", zap.String("url", action), zap.Error(err))
			return "", err
		}
		req.URL = target
	}

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		f.logger.Warn("error submitting form", zap.String("url", action), zap.Error(err))
		return "", err
	}
	return resp.BodyString(), nil
}

func mergeQuery(rawURL string, data url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse form action: %w", err)
	}
	q := u.Query()
	for name, values := range data {
		for _, v := range values {
			q.Add(name, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Sleep pauses for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
