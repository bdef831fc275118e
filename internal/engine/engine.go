// Package engine provides the crawl and test orchestration pipeline: the
// batch orchestrator fans targets out, a breadth-first crawler walks each
// origin, and every discovered form is tested for stored XSS.
package engine

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// HTTPClient is the HTTP surface the engine needs. transport.Fetcher
// implements it.
type HTTPClient interface {
	// HeadProbe reports whether url answers HEAD with 200 OK.
	HeadProbe(ctx context.Context, url string) bool

	// Fetch GETs url with up to retries extra attempts and linear backoff.
	Fetch(ctx context.Context, url string, retries int, delay time.Duration) (string, error)

	// SubmitForm sends data to action using method ("get" or "post").
	SubmitForm(ctx context.Context, action string, data url.Values, method string) (string, error)
}

// RequestCounter is implemented by clients that count the requests they
// send. transport.Fetcher implements it.
type RequestCounter interface {
	RequestCount() int64
}

// Finding is a form confirmed to store a payload unescaped.
type Finding struct {
	// URL is the form's action URL.
	URL     string
	Payload string

	// Page is the page the form was found on and re-fetched from.
	Page   string
	Method string

	// Target is the crawl root the form was reached from.
	Target string

	// Evidence names the rule that confirmed the finding.
	Evidence string
	FoundAt  time.Time
}

// FindingSink receives findings as they are confirmed. Implementations must
// be safe for concurrent use; each call is one complete record.
type FindingSink interface {
	Record(ctx context.Context, f Finding) error
}

// Counters aggregates crawl results.
type Counters struct {
	Vulnerable int
	Errors     int
	Pages      int
}

// Add sums o into c.
func (c *Counters) Add(o Counters) {
	c.Vulnerable += o.Vulnerable
	c.Errors += o.Errors
	c.Pages += o.Pages
}

// Progress is reported after each batch.
type Progress struct {
	Batch   int
	Targets int
	Totals  Counters
}

// RunResult is the outcome of a full run.
type RunResult struct {
	Totals  Counters
	Targets int
	Batches int

	// Requests is the number of HTTP requests sent during the run, when the
	// client reports it.
	Requests  int64
	StartTime time.Time
	EndTime   time.Time
}

// Elapsed returns the wall time of the run.
func (r *RunResult) Elapsed() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// ExpandTargets turns one user input into crawl roots. A URL with an http
// or https scheme is used as is; anything else is tried over both schemes.
func ExpandTargets(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return []string{input}
	}
	return []string{"http://" + input, "https://" + input}
}
