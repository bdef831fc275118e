package engine

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/0x6d61/xssleech/internal/extract"
)

type queued struct {
	url   string
	depth int
}

// crawlState belongs to a single crawl and is never shared.
type crawlState struct {
	target  string
	host    string
	visited map[string]struct{}
	queue   []queued
	Counters
}

// crawl walks one target breadth-first, in discovery order, until the queue
// is empty or MaxPages pages have been parsed.
func (s *Scanner) crawl(ctx context.Context, target string) Counters {
	u, err := url.Parse(target)
	if err != nil {
		s.logger.Warn("invalid target", zap.String("url", target), zap.Error(err))
		return Counters{Errors: 1}
	}

	st := &crawlState{
		target:  target,
		host:    u.Host,
		visited: make(map[string]struct{}),
		queue:   []queued{{url: target, depth: 0}},
	}

	for len(st.queue) > 0 && st.Pages < s.config.MaxPages {
		if ctx.Err() != nil {
			break
		}
		item := st.queue[0]
		st.queue = st.queue[1:]

		// Duplicates may sit in the queue; they collapse here.
		if _, seen := st.visited[item.url]; seen {
			continue
		}
		st.visited[item.url] = struct{}{}

		s.visit(ctx, st, item)

		if err := s.sleep(ctx, s.config.Delay); err != nil {
			break
		}
	}
	return st.Counters
}

func (s *Scanner) visit(ctx context.Context, st *crawlState, item queued) {
	if !s.client.HeadProbe(ctx, item.url) {
		s.logger.Warn("skipping, site not reachable", zap.String("url", item.url))
		st.Errors++
		return
	}

	s.logger.Info("crawling", zap.String("url", item.url), zap.Int("depth", item.depth))
	body, err := s.client.Fetch(ctx, item.url, s.config.Retries, s.config.Delay)
	if err != nil {
		st.Errors++
		return
	}

	page, err := extract.Parse(item.url, body)
	if err != nil {
		s.logger.Warn("error parsing HTML", zap.String("url", item.url), zap.Error(err))
		st.Errors++
		return
	}
	st.Pages++

	if forms := page.Forms(); len(forms) > 0 {
		s.logger.Info("found forms", zap.String("url", item.url), zap.Int("count", len(forms)))
		st.Add(s.testForms(ctx, st.target, forms))
	}

	if item.depth < s.config.Depth {
		for _, link := range page.SameDomainLinks(st.host) {
			if _, seen := st.visited[link]; !seen {
				st.queue = append(st.queue, queued{url: link, depth: item.depth + 1})
			}
		}
	}
}
