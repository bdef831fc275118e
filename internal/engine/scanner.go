package engine

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/0x6d61/xssleech/internal/detector"
	"github.com/0x6d61/xssleech/internal/transport"
)

// ScanConfig holds the crawl and test settings for a run.
type ScanConfig struct {
	Concurrency int           // global limit on concurrent form tests (default 15)
	Delay       time.Duration // pause between pages and between payloads
	Retries     int           // extra attempts for page fetches
	Depth       int           // link-following depth (0 = start page only)
	MaxPages    int           // page bound per target
	VerifyDelay time.Duration // wait between submission and re-fetch
	BatchSize   int           // inputs per batch (default 100)

	// VerifyRetries and VerifyBackoff govern the re-fetch after a
	// submission, independently of Retries and Delay.
	VerifyRetries int
	VerifyBackoff time.Duration
}

// DefaultScanConfig returns the stock settings.
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		Concurrency:   15,
		Delay:         time.Second,
		Retries:       1,
		Depth:         0,
		MaxPages:      20,
		VerifyDelay:   3 * time.Second,
		BatchSize:     100,
		VerifyRetries: 1,
		VerifyBackoff: time.Second,
	}
}

// VerifyFunc decides whether content confirms payload was stored.
type VerifyFunc func(content, payload string) (detector.Evidence, bool)

// --------------------------------------------------------------------------
// Scanner
// --------------------------------------------------------------------------

// Scanner runs stored-XSS scans. A Scanner is safe to reuse for
// consecutive runs but not for concurrent ones.
type Scanner struct {
	client   HTTPClient
	config   *ScanConfig
	payloads []string
	logger   *zap.Logger
	sink     FindingSink
	verify   VerifyFunc
	limiter  *semaphore.Weighted
	sleep    func(ctx context.Context, d time.Duration) error

	onProgress func(Progress)
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithFindingSink sets where confirmed findings are written.
func WithFindingSink(sink FindingSink) ScannerOption {
	return func(s *Scanner) {
		s.sink = sink
	}
}

// WithVerifier replaces the detector used to confirm findings.
func WithVerifier(fn VerifyFunc) ScannerOption {
	return func(s *Scanner) {
		s.verify = fn
	}
}

// WithProgressCallback sets a function called after every batch.
func WithProgressCallback(fn func(Progress)) ScannerOption {
	return func(s *Scanner) {
		s.onProgress = fn
	}
}

// NewScanner creates a scanner testing every form with payloads, in order.
func NewScanner(client HTTPClient, config *ScanConfig, payloads []string, opts ...ScannerOption) *Scanner {
	if config == nil {
		config = DefaultScanConfig()
	}
	cfg := *config
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}

	s := &Scanner{
		client:   client,
		config:   &cfg,
		payloads: append([]string(nil), payloads...),
		logger:   zap.NewNop(),
		verify:   detector.Inspect,
		sleep:    transport.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.limiter = semaphore.NewWeighted(int64(cfg.Concurrency))
	return s
}

// Run scans every input. Inputs are consumed lazily in batches; all targets
// of one batch run concurrently, bounded by the global limiter. Run returns
// the accumulated totals and, if ctx was cancelled, ctx.Err().
func (s *Scanner) Run(ctx context.Context, inputs iter.Seq[string]) (*RunResult, error) {
	result := &RunResult{StartTime: time.Now()}
	counter, counts := s.client.(RequestCounter)
	var sentBefore int64
	if counts {
		sentBefore = counter.RequestCount()
	}
	batch := make([]string, 0, s.config.BatchSize)

	flush := func() {
		targets := s.expand(batch)
		counters := s.runBatch(ctx, targets)
		result.Totals.Add(counters)
		result.Targets += len(targets)
		result.Batches++
		batch = batch[:0]
		if s.onProgress != nil {
			s.onProgress(Progress{Batch: result.Batches, Targets: result.Targets, Totals: result.Totals})
		}
	}

	for input := range inputs {
		if ctx.Err() != nil {
			break
		}
		batch = append(batch, input)
		if len(batch) >= s.config.BatchSize {
			flush()
		}
	}
	if len(batch) > 0 && ctx.Err() == nil {
		flush()
	}

	result.EndTime = time.Now()
	if counts {
		result.Requests = counter.RequestCount() - sentBefore
	}
	return result, ctx.Err()
}

func (s *Scanner) expand(inputs []string) []string {
	var targets []string
	for _, in := range inputs {
		targets = append(targets, ExpandTargets(in)...)
	}
	return targets
}

// record hands f to the sink. A confirmed finding is written even when the
// run is being cancelled.
func (s *Scanner) record(ctx context.Context, f Finding) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Record(context.WithoutCancel(ctx), f); err != nil {
		s.logger.Error("failed to record finding", zap.String("url", f.URL), zap.Error(err))
	}
}
