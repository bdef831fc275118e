package transport

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// DecodingTransport is an http.RoundTripper that advertises brotli and gzip
// support and transparently decompresses the response body.
type DecodingTransport struct {
	Base http.RoundTripper
}

// NewDecodingTransport wraps base, or http.DefaultTransport when base is nil.
func NewDecodingTransport(base http.RoundTripper) *DecodingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DecodingTransport{Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *DecodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip")
	}

	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if enc != "br" && enc != "gzip" {
		return resp, nil
	}
	if req.Method == http.MethodHead || resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	resp.Body = &decodingBody{src: resp.Body, encoding: enc}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// decodingBody defers creating the decompressor until the first Read so an
// empty compressed body surfaces as a read error instead of a RoundTrip one.
type decodingBody struct {
	src      io.ReadCloser
	encoding string
	r        io.Reader
	err      error
}

func (b *decodingBody) Read(p []byte) (int, error) {
	if b.r == nil && b.err == nil {
		switch b.encoding {
		case "br":
			b.r = brotli.NewReader(b.src)
		case "gzip":
			zr, err := gzip.NewReader(b.src)
			if err != nil {
				b.err = err
			} else {
				b.r = zr
			}
		}
	}
	if b.err != nil {
		return 0, b.err
	}
	return b.r.Read(p)
}

func (b *decodingBody) Close() error {
	if zr, ok := b.r.(*gzip.Reader); ok {
		_ = zr.Close()
	}
	return b.src.Close()
}

// decodeCharset converts body to UTF-8 using the Content-Type charset, a
// <meta> declaration or content sniffing. The raw bytes are returned when
// no conversion is possible.
func decodeCharset(body []byte, contentType string) []byte {
	if len(body) == 0 {
		return body
	}
	ct := strings.ToLower(contentType)
	if ct != "" && !strings.HasPrefix(ct, "text/") && !strings.Contains(ct, "html") && !strings.Contains(ct, "xml") {
		return body
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}
