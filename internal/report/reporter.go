// Package report writes confirmed findings to the output file and renders
// the console configuration and totals summaries.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/0x6d61/xssleech/internal/engine"
)

// Sink receives findings as they are confirmed. Every Record call is one
// complete, atomically appended record.
type Sink interface {
	engine.FindingSink

	// Format returns the format name (e.g., "text", "json").
	Format() string

	// Close releases any resources held by the sink.
	Close() error
}

// New creates a file sink by format name ("text" or "json"). The file at
// path is created or truncated immediately. The format name is
// case-insensitive.
func New(format, path string) (Sink, error) {
	switch strings.ToLower(format) {
	case "text", "":
		if err := truncate(path); err != nil {
			return nil, err
		}
		return &TextSink{path: path}, nil
	case "json":
		if err := truncate(path); err != nil {
			return nil, err
		}
		return &JSONSink{path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}

func truncate(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("report: truncate %s: %w", path, err)
	}
	return f.Close()
}

// appendLine opens path, appends line and closes it again, so concurrent
// appenders never interleave partial records.
func appendLine(mu *sync.Mutex, path string, line []byte) error {
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("report: open %s: %w", path, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return f.Close()
}

// MultiSink fans every finding out to several sinks.
type MultiSink []engine.FindingSink

// Record forwards f to every sink and joins their errors.
func (m MultiSink) Record(ctx context.Context, f engine.Finding) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
