package report

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/0x6d61/xssleech/internal/engine"
)

func TestTextSink_LineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	s, err := New("text", path)
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{`<script>alert("XSSTest")</script>`, `<svg/onload=alert("XSSTest")>`} {
		if err := s.Record(context.Background(), newTestFinding(p)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got := readLines(t, path)
	want := []string{
		`http://example.com/sign - Payload: <script>alert("XSSTest")</script>`,
		`http://example.com/sign - Payload: <svg/onload=alert("XSSTest")>`,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTextSink_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	s, err := New("text", path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Record(context.Background(), newTestFinding(fmt.Sprintf("p%02d", i))); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()

	lines := readLines(t, path)
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
	sort.Strings(lines)
	for i, line := range lines {
		want := fmt.Sprintf("http://example.com/sign - Payload: p%02d", i)
		if line != want {
			t.Errorf("line %d = %q, want %q", i, line, want)
		}
	}
}

func TestTextSink_CancelledContext(t *testing.T) {
	s, err := New("text", filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Record(ctx, newTestFinding("x")); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestWriteConfig(t *testing.T) {
	var buf bytes.Buffer
	WriteConfig(&buf, ScanSettings{
		Concurrency: 15,
		Delay:       1500 * time.Millisecond,
		Retries:     1,
		Depth:       2,
		MaxPages:    20,
		VerifyDelay: 3 * time.Second,
	})

	want := " | Concurrency: 15\n" +
		" | Delay: 1.5s\n" +
		" | Retries: 1\n" +
		" | Depth: 2\n" +
		" | Max pages: 20\n" +
		" | Verification delay: 3s\n\n"
	if buf.String() != want {
		t.Errorf("WriteConfig output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestWriteSummary(t *testing.T) {
	start := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
	res := &engine.RunResult{
		Totals:    engine.Counters{Vulnerable: 2, Errors: 3, Pages: 17},
		Requests:  412,
		StartTime: start,
		EndTime:   start.Add(12*time.Second + 346*time.Millisecond),
	}

	var buf bytes.Buffer
	WriteSummary(&buf, res)

	want := " | Pages crawled: 17\n" +
		" | Vulnerabilities: 2\n" +
		" | Errors encountered: 3\n" +
		" | HTTP requests: 412\n" +
		" | Time taken: 12.35 seconds\n\n"
	if buf.String() != want {
		t.Errorf("WriteSummary output:\n%q\nwant:\n%q", buf.String(), want)
	}
}
