package engine

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/0x6d61/xssleech/internal/detector"
	"github.com/0x6d61/xssleech/internal/extract"
	"github.com/0x6d61/xssleech/internal/observability"
)

// testForm tries each payload against form until one is confirmed. It holds
// one slot of the global limiter for its whole duration.
func (s *Scanner) testForm(ctx context.Context, target string, form extract.Form) bool {
	if err := s.limiter.Acquire(ctx, 1); err != nil {
		return false
	}
	defer s.limiter.Release(1)

	s.logger.Info("testing form", zap.String("url", form.Action), zap.String("method", form.Method))

	for _, payload := range s.payloads {
		if ctx.Err() != nil {
			return false
		}
		if ev, ok := s.tryPayload(ctx, form, payload); ok {
			observability.Success(s.logger, "vulnerable",
				zap.String("url", form.Action),
				zap.String("payload", payload),
				zap.String("evidence", ev.String()),
			)
			s.record(ctx, Finding{
				URL:      form.Action,
				Payload:  payload,
				Page:     form.VerificationURL,
				Method:   form.Method,
				Target:   target,
				Evidence: ev.String(),
				FoundAt:  time.Now().UTC(),
			})
			return true
		}
		if err := s.sleep(ctx, s.config.Delay); err != nil {
			return false
		}
	}

	s.logger.Info("no stored XSS found", zap.String("url", form.Action))
	return false
}

// tryPayload submits payload, waits for it to persist and checks the
// verification page. Any failure, including a panic, is a non-match.
func (s *Scanner) tryPayload(ctx context.Context, form extract.Form, payload string) (ev detector.Evidence, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("error testing payload",
				zap.String("url", form.Action),
				zap.String("panic", fmt.Sprintf("%v", r)),
			)
			ev, ok = detector.Evidence{}, false
		}
	}()

	resp, err := s.client.SubmitForm(ctx, form.Action, submission(form, payload), form.Method)
	if err != nil || resp == "" {
		return detector.Evidence{}, false
	}

	if err := s.sleep(ctx, s.config.VerifyDelay); err != nil {
		return detector.Evidence{}, false
	}

	content, err := s.client.Fetch(ctx, form.VerificationURL, s.config.VerifyRetries, s.config.VerifyBackoff)
	if err != nil {
		return detector.Evidence{}, false
	}
	return s.verify(content, payload)
}

// submission builds the form data for one payload: hidden and submit fields
// keep their defaults, every other named field carries the payload.
func submission(form extract.Form, payload string) url.Values {
	data := url.Values{}
	for _, f := range form.Fields {
		if f.Name == "" {
			continue
		}
		switch f.Type {
		case "hidden", "submit":
			data.Set(f.Name, f.Value)
		default:
			data.Set(f.Name, payload)
		}
	}
	return data
}
