package transport

import (
	"net/http"
	"strings"
	"time"
)

// Response represents an HTTP response received from the transport client.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers contains the response headers.
	Headers http.Header

	// Body is the decompressed body, converted to UTF-8.
	Body []byte

	// Duration is the round-trip time including reading the body.
	Duration time.Duration

	// URL is the final URL after any redirects.
	URL string
}

// BodyString returns the response body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// IsBlank reports whether the body is empty once whitespace is trimmed.
func (r *Response) IsBlank() bool {
	return strings.TrimSpace(string(r.Body)) == ""
}
