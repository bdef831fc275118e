package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "http://site.test/"

func TestCrawlSinglePageWithoutForms(t *testing.T) {
	client := newFakeClient(map[string]string{
		root: `<html><body><a href="/a">a</a></body></html>`,
	})
	s, _ := newTestScanner(client, testConfig(), []string{"x"})

	got := s.crawl(context.Background(), root)

	assert.Equal(t, Counters{Vulnerable: 0, Errors: 0, Pages: 1}, got)
	assert.Equal(t, 0, client.fetchCount("http://site.test/a"), "depth 0 must not follow links")
}

func TestCrawlMaxPagesBoundsTraversal(t *testing.T) {
	var links strings.Builder
	pages := map[string]string{}
	for i := 0; i < 5; i++ {
		u := fmt.Sprintf("http://site.test/p%d", i)
		pages[u] = "<p>leaf</p>"
		fmt.Fprintf(&links, `<a href="/p%d">p</a>`, i)
	}
	pages[root] = "<html>" + links.String() + "</html>"
	client := newFakeClient(pages)

	cfg := testConfig()
	cfg.MaxPages = 1
	cfg.Depth = 5
	s, _ := newTestScanner(client, cfg, nil)

	got := s.crawl(context.Background(), root)

	assert.Equal(t, 1, got.Pages)
	for i := 0; i < 5; i++ {
		assert.Zero(t, client.fetchCount(fmt.Sprintf("http://site.test/p%d", i)))
	}
}

func TestCrawlFollowsLinksBreadthFirst(t *testing.T) {
	client := newFakeClient(map[string]string{
		root:                      `<a href="/a">a</a><a href="/b">b</a>`,
		"http://site.test/a":      `<a href="/a/deep">deep</a>`,
		"http://site.test/b":      `<p>b</p>`,
		"http://site.test/a/deep": `<p>deep</p>`,
	})
	cfg := testConfig()
	cfg.Depth = 2
	s, _ := newTestScanner(client, cfg, nil)

	got := s.crawl(context.Background(), root)

	assert.Equal(t, 4, got.Pages)
	assert.Equal(t, []string{
		root,
		"http://site.test/a",
		"http://site.test/b",
		"http://site.test/a/deep",
	}, client.heads)
}

func TestCrawlDepthLimitsLinkFollowing(t *testing.T) {
	client := newFakeClient(map[string]string{
		root:                 `<a href="/a">a</a>`,
		"http://site.test/a": `<a href="/b">b</a>`,
		"http://site.test/b": `<p>b</p>`,
	})
	cfg := testConfig()
	cfg.Depth = 1
	s, _ := newTestScanner(client, cfg, nil)

	got := s.crawl(context.Background(), root)

	assert.Equal(t, 2, got.Pages)
	assert.Zero(t, client.fetchCount("http://site.test/b"))
}

func TestCrawlNeverRevisits(t *testing.T) {
	client := newFakeClient(map[string]string{
		root:                 `<a href="/a">a</a><a href="/b">b</a><a href="/">self</a>`,
		"http://site.test/a": `<a href="/b">b</a><a href="/">home</a>`,
		"http://site.test/b": `<a href="/a">a</a><a href="/b">self</a>`,
	})
	cfg := testConfig()
	cfg.Depth = 10
	s, _ := newTestScanner(client, cfg, nil)

	got := s.crawl(context.Background(), root)

	assert.Equal(t, 3, got.Pages)
	for _, u := range []string{root, "http://site.test/a", "http://site.test/b"} {
		assert.Equal(t, 1, client.fetchCount(u), u)
	}
	// b is queued twice (from / and from a) but processed once.
	assert.Len(t, client.heads, 3)
}

func TestCrawlIgnoresOtherHosts(t *testing.T) {
	client := newFakeClient(map[string]string{
		root:                 `<a href="http://other.test/">x</a><a href="https://site.test/">tls</a>`,
		"http://other.test/": `<p>other</p>`,
		"https://site.test/": `<p>tls</p>`,
	})
	cfg := testConfig()
	cfg.Depth = 1
	s, _ := newTestScanner(client, cfg, nil)

	got := s.crawl(context.Background(), root)

	assert.Equal(t, 2, got.Pages, "same host over https is followed")
	assert.Zero(t, client.fetchCount("http://other.test/"))
}

func TestCrawlUnreachableCountsError(t *testing.T) {
	client := newFakeClient(map[string]string{})
	cfg := testConfig()
	s, sl := newTestScanner(client, cfg, nil)

	got := s.crawl(context.Background(), root)

	assert.Equal(t, Counters{Errors: 1}, got)
	assert.Zero(t, client.fetchCount(root), "no GET after a failed probe")
	assert.Equal(t, 1, sl.count(cfg.Delay), "the inter-page delay still applies")
}

func TestCrawlFetchFailureCountsError(t *testing.T) {
	client := newFakeClient(map[string]string{
		root:                  `<a href="/gone">gone</a><a href="/ok">ok</a>`,
		"http://site.test/ok": `<p>ok</p>`,
	})
	client.pages["http://site.test/gone"] = ""
	cfg := testConfig()
	cfg.Depth = 1
	s, sl := newTestScanner(client, cfg, nil)

	got := s.crawl(context.Background(), root)

	assert.Equal(t, Counters{Errors: 1, Pages: 2}, got)
	assert.Equal(t, 3, sl.count(cfg.Delay))
}

func TestCrawlInvalidTarget(t *testing.T) {
	s, _ := newTestScanner(newFakeClient(nil), testConfig(), nil)
	assert.Equal(t, Counters{Errors: 1}, s.crawl(context.Background(), "http://[::1"))
}

func TestCrawlStopsWhenCancelled(t *testing.T) {
	client := newFakeClient(map[string]string{root: `<p>x</p>`})
	s, _ := newTestScanner(client, testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := s.crawl(ctx, root)
	assert.Equal(t, Counters{}, got)
	require.Empty(t, client.heads)
}
