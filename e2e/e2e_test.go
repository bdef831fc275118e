//go:build e2e

// Package e2e contains end-to-end tests that require the guestbook test
// application in testenv/guestbook to be running.
//
// Run with:
//
//	cd testenv/guestbook && go run . &
//	XSSLEECH_E2E_URL=http://localhost:8080 go test -v -tags e2e -count=1 -timeout 120s ./e2e/...
package e2e_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/0x6d61/xssleech/internal/engine"
	"github.com/0x6d61/xssleech/internal/payload"
	"github.com/0x6d61/xssleech/internal/report"
	"github.com/0x6d61/xssleech/internal/transport"
)

const defaultE2EURL = "http://localhost:18080"

// e2eBaseURL returns the base URL of the test environment.
// If the server is unreachable, the test is skipped automatically.
func e2eBaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("XSSLEECH_E2E_URL")
	if url == "" {
		url = defaultE2EURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
	if err != nil {
		t.Skipf("cannot build health-check request for %s: %v", url, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Skipf("E2E server not available at %s (start testenv/guestbook): %v", url, err)
	}
	resp.Body.Close()
	return url
}

type collectSink struct {
	mu       sync.Mutex
	findings []engine.Finding
}

func (s *collectSink) Record(ctx context.Context, f engine.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings = append(s.findings, f)
	return nil
}

func (s *collectSink) urls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.findings {
		out = append(out, f.URL)
	}
	slices.Sort(out)
	return out
}

func newE2EScanner(t *testing.T, depth int, sinks ...engine.FindingSink) *engine.Scanner {
	t.Helper()
	client, err := transport.NewClient(transport.ClientOptions{
		Timeout:            30 * time.Second,
		FollowRedirects:    true,
		InsecureSkipVerify: true,
		UserAgent:          transport.RandomUserAgent(),
		MaxConns:           5,
	})
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	cfg := engine.DefaultScanConfig()
	cfg.Concurrency = 5
	cfg.Delay = 0
	cfg.VerifyDelay = 200 * time.Millisecond
	cfg.Depth = depth

	return engine.NewScanner(transport.NewFetcher(client, logger), cfg, payload.Defaults(),
		engine.WithLogger(logger),
		engine.WithFindingSink(report.MultiSink(sinks)),
	)
}

func TestE2E_CrawlFindsVulnerableBoards(t *testing.T) {
	base := e2eBaseURL(t)
	sink := &collectSink{}
	scanner := newE2EScanner(t, 1, sink)

	result, err := scanner.Run(context.Background(), slices.Values([]string{base + "/"}))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Totals.Vulnerable)
	assert.Equal(t, 4, result.Totals.Pages)
	assert.Equal(t, []string{base + "/comments/add", base + "/guestbook/sign"}, sink.urls())
}

func TestE2E_SafeBoardIsNotReported(t *testing.T) {
	base := e2eBaseURL(t)
	sink := &collectSink{}
	scanner := newE2EScanner(t, 0, sink)

	result, err := scanner.Run(context.Background(), slices.Values([]string{base + "/safe"}))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Totals.Vulnerable)
	assert.Equal(t, 1, result.Totals.Pages)
	assert.Empty(t, sink.urls())
}

func TestE2E_OutputFile(t *testing.T) {
	base := e2eBaseURL(t)
	path := filepath.Join(t.TempDir(), "found.txt")
	fileSink, err := report.New("text", path)
	require.NoError(t, err)
	defer fileSink.Close()

	scanner := newE2EScanner(t, 0, fileSink)
	_, err = scanner.Run(context.Background(), slices.Values([]string{base + "/guestbook"}))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], base+"/guestbook/sign - Payload: "), lines[0])
}
