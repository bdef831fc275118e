package report

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/0x6d61/xssleech/internal/engine"
)

// TextSink appends one `<url> - Payload: <payload>` line per finding.
type TextSink struct {
	path string
	mu   sync.Mutex
}

// Format returns "text".
func (s *TextSink) Format() string {
	return "text"
}

// Record appends f to the output file.
func (s *TextSink) Record(ctx context.Context, f engine.Finding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return appendLine(&s.mu, s.path, []byte(FormatLine(f)))
}

// Close is a no-op; the file is closed after every record.
func (s *TextSink) Close() error {
	return nil
}

// FormatLine renders f in the output file format, newline included.
func FormatLine(f engine.Finding) string {
	return fmt.Sprintf("%s - Payload: %s\n", f.URL, f.Payload)
}

// ScanSettings is what the pre-scan configuration summary shows.
type ScanSettings struct {
	Concurrency int
	Delay       time.Duration
	Retries     int
	Depth       int
	MaxPages    int
	VerifyDelay time.Duration
}

// WriteConfig writes the pre-scan configuration block.
func WriteConfig(w io.Writer, s ScanSettings) {
	fmt.Fprintf(w, " | Concurrency: %d\n", s.Concurrency)
	fmt.Fprintf(w, " | Delay: %ss\n", seconds(s.Delay))
	fmt.Fprintf(w, " | Retries: %d\n", s.Retries)
	fmt.Fprintf(w, " | Depth: %d\n", s.Depth)
	fmt.Fprintf(w, " | Max pages: %d\n", s.MaxPages)
	fmt.Fprintf(w, " | Verification delay: %ss\n\n", seconds(s.VerifyDelay))
}

// WriteSummary writes the post-scan totals block.
func WriteSummary(w io.Writer, r *engine.RunResult) {
	fmt.Fprintf(w, " | Pages crawled: %d\n", r.Totals.Pages)
	fmt.Fprintf(w, " | Vulnerabilities: %d\n", r.Totals.Vulnerable)
	fmt.Fprintf(w, " | Errors encountered: %d\n", r.Totals.Errors)
	fmt.Fprintf(w, " | HTTP requests: %d\n", r.Requests)
	fmt.Fprintf(w, " | Time taken: %.2f seconds\n\n", r.Elapsed().Seconds())
}

// seconds formats d without trailing zeros: 1s -> "1", 1.5s -> "1.5".
func seconds(d time.Duration) string {
	return fmt.Sprintf("%g", d.Seconds())
}
