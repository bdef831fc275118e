// Package detector decides whether re-fetched page content shows a submitted
// payload rendered where a browser would execute it.
package detector

import (
	"regexp"
	"strings"
)

// Signature is a pattern tied to the rendered shape of one built-in payload.
type Signature struct {
	Name    string
	Pattern *regexp.Regexp
}

// signatures are matched case-insensitively against the raw response text.
var signatures = []Signature{
	{Name: "script-alert", Pattern: regexp.MustCompile(`(?i)<script[^>]*>alert\("XSSTest"\)</script>`)},
	{Name: "img-onerror", Pattern: regexp.MustCompile(`(?i)<img[^>]*src=x[^>]*onerror=alert\("XSSTest"\)`)},
	{Name: "svg-onload", Pattern: regexp.MustCompile(`(?i)<svg[^>]*onload=alert\("XSSTest"\)`)},
	{Name: "iframe-javascript", Pattern: regexp.MustCompile("(?i)<iframe[^>]*src=\"javascript:alert\\(`XSSTest`\\)\"")},
}

// markers are the execution contexts that make a literal payload echo count.
var markers = []string{"<script>", "onload=", "onerror=", "javascript:"}

// FindSignature returns the first signature matching content.
func FindSignature(content string) (Signature, bool) {
	for _, sig := range signatures {
		if sig.Pattern.MatchString(content) {
			return sig, true
		}
	}
	return Signature{}, false
}

// findMarker returns the first execution marker present in lowered content.
func findMarker(lowered string) (string, bool) {
	for _, m := range markers {
		if strings.Contains(lowered, m) {
			return m, true
		}
	}
	return "", false
}
