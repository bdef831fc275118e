// Package transport is the HTTP layer of the scanner: a pooled, rate
// limited client and the Fetcher built on it that probes, fetches with
// retries and submits forms.
package transport

// Request represents an HTTP request to be sent by the transport client.
type Request struct {
	// Method is the HTTP method (GET, HEAD, POST).
	Method string

	// URL is the target URL, including any query string.
	URL string

	// Headers contains custom HTTP headers to include.
	Headers map[string]string

	// Body is the request body content.
	Body string

	// ContentType is the Content-Type header value.
	ContentType string
}
