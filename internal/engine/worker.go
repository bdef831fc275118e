package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/0x6d61/xssleech/internal/extract"
)

// runBatch crawls every target concurrently and sums their counters. A
// target that panics contributes a single error.
func (s *Scanner) runBatch(ctx context.Context, targets []string) Counters {
	var (
		mu    sync.Mutex
		total Counters
		wg    sync.WaitGroup
	)

	for _, target := range targets {
		wg.Go(func() {
			c := s.processTarget(ctx, target)
			mu.Lock()
			total.Add(c)
			mu.Unlock()
		})
	}
	wg.Wait()
	return total
}

// processTarget wraps crawl so one bad target cannot take down the batch.
func (s *Scanner) processTarget(ctx context.Context, target string) (c Counters) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("error processing target",
				zap.String("url", target),
				zap.String("panic", fmt.Sprintf("%v", r)),
			)
			c = Counters{Errors: 1}
		}
	}()
	return s.crawl(ctx, target)
}

// testForms runs testForm for every form concurrently. A form test that
// panics counts as an error and is not vulnerable.
func (s *Scanner) testForms(ctx context.Context, target string, forms []extract.Form) Counters {
	hits, failed := fanOut(forms, func(f extract.Form) bool {
		return s.testForm(ctx, target, f)
	}, func(f extract.Form, r any) {
		s.logger.Warn("error testing form",
			zap.String("url", f.Action),
			zap.String("panic", fmt.Sprintf("%v", r)),
		)
	})
	return Counters{Vulnerable: hits, Errors: failed}
}

// fanOut runs fn for every item concurrently. It returns how many calls
// reported true and how many panicked; each panic is handed to onPanic.
func fanOut[T any](items []T, fn func(T) bool, onPanic func(T, any)) (hits, panics int) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, item := range items {
		wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					onPanic(item, r)
					mu.Lock()
					panics++
					mu.Unlock()
				}
			}()
			if fn(item) {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return hits, panics
}
