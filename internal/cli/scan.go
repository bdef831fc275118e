package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/0x6d61/xssleech/internal/config"
	"github.com/0x6d61/xssleech/internal/engine"
	"github.com/0x6d61/xssleech/internal/observability"
	"github.com/0x6d61/xssleech/internal/payload"
	"github.com/0x6d61/xssleech/internal/report"
	"github.com/0x6d61/xssleech/internal/session"
	"github.com/0x6d61/xssleech/internal/tamper"
	"github.com/0x6d61/xssleech/internal/transport"
)

// runScan is the root command handler. It wires up the full pipeline:
// config → transport → engine → report/session sinks.
func runScan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// ------------------------------------------------------------------ //
	// 1. Configuration
	// ------------------------------------------------------------------ //
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Logger, out)
	defer func() { _ = logger.Sync() }()

	if cfg.Scan.List != "" {
		if _, err := os.Stat(cfg.Scan.List); err != nil {
			return fmt.Errorf("URL list: %w", err)
		}
	}

	// ------------------------------------------------------------------ //
	// 2. Payloads
	// ------------------------------------------------------------------ //
	set, err := payload.Load(cfg.Scan.Payloads)
	if err != nil {
		return err
	}
	if set.Fallback != "" {
		logger.Warn(set.Fallback+", using built-in payloads", zap.String("path", set.Path))
	}
	chain, err := tamper.Parse(cfg.Scan.Tamper)
	if err != nil {
		return err
	}
	payloads := chain.ApplyAll(set.Payloads)

	// ------------------------------------------------------------------ //
	// 3. Transport client
	// ------------------------------------------------------------------ //
	userAgent := cfg.Network.UserAgent
	if userAgent == "" {
		userAgent = transport.RandomUserAgent()
	}
	client, err := transport.NewClient(transport.ClientOptions{
		Timeout:            config.Seconds(cfg.Network.Timeout),
		ProxyURL:           cfg.Network.Proxy,
		FollowRedirects:    true,
		InsecureSkipVerify: true,
		UserAgent:          userAgent,
		RandomUserAgent:    cfg.Network.RandomAgent,
		MaxRPS:             cfg.Network.RateLimit,
		MaxConns:           cfg.Scan.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	fetcher := transport.NewFetcher(client, logger)

	// ------------------------------------------------------------------ //
	// 4. Findings sinks (output file, run archive)
	// ------------------------------------------------------------------ //
	var sinks report.MultiSink
	if cfg.Output.File != "" {
		fileSink, err := report.New(cfg.Output.Format, cfg.Output.File)
		if err != nil {
			return err
		}
		defer fileSink.Close()
		sinks = append(sinks, fileSink)
	}

	var (
		store session.Store
		run   *session.Run
	)
	if cfg.Output.Database != "" {
		s, err := session.NewSQLiteStore(cfg.Output.Database)
		if err != nil {
			return fmt.Errorf("failed to open run archive %q: %w", cfg.Output.Database, err)
		}
		defer s.Close()
		store = s

		run = &session.Run{Inputs: describeInputs(cfg), Config: configSnapshot(cfg)}
		if err := store.BeginRun(context.Background(), run); err != nil {
			return err
		}
		sinks = append(sinks, session.Sink(store, run.ID))
	}

	// ------------------------------------------------------------------ //
	// 5. Scanner
	// ------------------------------------------------------------------ //
	scanCfg := scanConfig(cfg)
	opts := []engine.ScannerOption{
		engine.WithLogger(logger),
		engine.WithProgressCallback(func(p engine.Progress) {
			logger.Info(fmt.Sprintf("Progress: %d pages processed, %d confirmed vulnerabilities",
				p.Totals.Pages, p.Totals.Vulnerable),
				zap.Int("batch", p.Batch), zap.Int("targets", p.Targets))
		}),
	}
	if len(sinks) > 0 {
		opts = append(opts, engine.WithFindingSink(sinks))
	}
	scanner := engine.NewScanner(fetcher, scanCfg, payloads, opts...)

	// ------------------------------------------------------------------ //
	// 6. Configuration summary
	// ------------------------------------------------------------------ //
	logger.Info("Starting Scan")
	logger.Info(fmt.Sprintf("Using %d payloads", len(payloads)))
	if len(chain) > 0 {
		logger.Info("Tampering payloads", zap.Strings("tampers", chain.Names()))
	}
	if cfg.Output.File != "" {
		logger.Info("Saving results to " + cfg.Output.File)
	}
	if run != nil {
		logger.Info("Archiving run", zap.String("id", run.ID), zap.String("db", cfg.Output.Database))
	}
	logger.Info("Configuration:")
	report.WriteConfig(out, report.ScanSettings{
		Concurrency: scanCfg.Concurrency,
		Delay:       scanCfg.Delay,
		Retries:     scanCfg.Retries,
		Depth:       scanCfg.Depth,
		MaxPages:    scanCfg.MaxPages,
		VerifyDelay: scanCfg.VerifyDelay,
	})

	// ------------------------------------------------------------------ //
	// 7. Context (CTRL+C or SIGTERM aborts the scan)
	// ------------------------------------------------------------------ //
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ------------------------------------------------------------------ //
	// 8. Run
	// ------------------------------------------------------------------ //
	var result *engine.RunResult
	err = transport.Sleep(ctx, config.Seconds(cfg.Scan.StartDelay))
	if err == nil {
		result, err = scanner.Run(ctx, targetInputs(cfg.Scan.URL, cfg.Scan.List, logger))
	}

	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return fmt.Errorf("scan error: %w", err)
	}

	if store != nil {
		status := session.StatusCompleted
		if interrupted {
			status = session.StatusInterrupted
		}
		var totals engine.Counters
		if result != nil {
			totals = result.Totals
		}
		if err := store.FinishRun(context.Background(), run.ID, status, totals); err != nil {
			logger.Error("failed to archive run", zap.String("id", run.ID), zap.Error(err))
		}
	}

	// ------------------------------------------------------------------ //
	// 9. Summary
	// ------------------------------------------------------------------ //
	fmt.Fprintln(out)
	if interrupted {
		logger.Warn("Scan interrupted by user")
		return nil
	}
	observability.Success(logger, "Scan completed")
	report.WriteSummary(out, result)
	return nil
}

// newLogger returns the process logger when writing to stdout, or a private
// logger bound to out otherwise.
func newLogger(cfg config.LoggerConfig, out io.Writer) *zap.Logger {
	if out == os.Stdout {
		observability.InitializeLogger(cfg)
		return observability.GetLogger()
	}
	return observability.New(cfg, zapcore.Lock(zapcore.AddSync(out)), false)
}

func scanConfig(cfg *config.Config) *engine.ScanConfig {
	sc := engine.DefaultScanConfig()
	sc.Concurrency = cfg.Scan.Concurrency
	sc.Delay = config.Seconds(cfg.Scan.Delay)
	sc.Retries = cfg.Scan.Retries
	sc.Depth = cfg.Scan.Depth
	sc.MaxPages = cfg.Scan.MaxPages
	sc.VerifyDelay = config.Seconds(cfg.Scan.VerifyDelay)
	if cfg.Scan.BatchSize > 0 {
		sc.BatchSize = cfg.Scan.BatchSize
	}
	return sc
}

// targetInputs yields the -u value followed by every non-blank line of the
// -l file. The list is read lazily so large files are never held in memory.
func targetInputs(url, list string, logger *zap.Logger) iter.Seq[string] {
	return func(yield func(string) bool) {
		if url != "" {
			if !yield(url) {
				return
			}
		}
		if list == "" {
			return
		}

		f, err := os.Open(list)
		if err != nil {
			logger.Error("failed to open URL list", zap.String("path", list), zap.Error(err))
			return
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			logger.Error("failed to read URL list", zap.String("path", list), zap.Error(err))
		}
	}
}

func describeInputs(cfg *config.Config) string {
	var parts []string
	if cfg.Scan.URL != "" {
		parts = append(parts, cfg.Scan.URL)
	}
	if cfg.Scan.List != "" {
		parts = append(parts, "list:"+cfg.Scan.List)
	}
	return strings.Join(parts, " ")
}

func configSnapshot(cfg *config.Config) map[string]any {
	return map[string]any{
		"concurrency":  cfg.Scan.Concurrency,
		"delay":        cfg.Scan.Delay,
		"retries":      cfg.Scan.Retries,
		"depth":        cfg.Scan.Depth,
		"max_pages":    cfg.Scan.MaxPages,
		"verify_delay": cfg.Scan.VerifyDelay,
		"timeout":      cfg.Network.Timeout,
		"payloads":     cfg.Scan.Payloads,
		"tamper":       cfg.Scan.Tamper,
		"format":       cfg.Output.Format,
	}
}
