// Package observability owns the process-wide zap logger.
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/0x6d61/xssleech/internal/config"
)

// SuccessLevel marks confirmed findings. It sits below DebugLevel so that it
// never collides with zap's own levels and is enabled regardless of the
// configured minimum level.
const SuccessLevel = zapcore.Level(-2)

var (
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once
)

const (
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
	colorCyan   = "\x1b[36m"
	colorReset  = "\x1b[0m"
)

// Initialize sets up the global logger writing console output to
// consoleWriter. Only the first call has any effect until ResetForTest.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer, colored bool) {
	once.Do(func() {
		globalLogger.Store(New(cfg, consoleWriter, colored))
	})
}

// InitializeLogger initializes the global logger on stdout, colorizing level
// symbols when stdout is a terminal.
func InitializeLogger(cfg config.LoggerConfig) {
	colored := !cfg.NoColor && isatty.IsTerminal(os.Stdout.Fd())
	Initialize(cfg, zapcore.Lock(os.Stdout), colored)
}

// New builds a logger without touching the global instance.
func New(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer, colored bool) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}
	enabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l == SuccessLevel || level.Enabled(l)
	})

	var consoleEncoder zapcore.Encoder
	if cfg.Format == "json" {
		consoleEncoder = newJSONEncoder()
	} else {
		consoleEncoder = newConsoleEncoder(colored)
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, consoleWriter, enabler)}

	if cfg.LogFile != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(newJSONEncoder(), fileWriter, enabler))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.PanicLevel))
}

// ResetForTest clears the global logger so Initialize can run again.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

// Success logs a confirmed result at SuccessLevel.
func Success(logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.Log(SuccessLevel, msg, fields...)
}

// levelSymbol returns the bracketed console marker for a level.
func levelSymbol(l zapcore.Level) (string, string) {
	switch {
	case l == SuccessLevel:
		return "[+]", colorGreen
	case l == zapcore.DebugLevel:
		return "[~]", colorCyan
	case l == zapcore.InfoLevel:
		return "[*]", colorBlue
	case l == zapcore.WarnLevel:
		return "[!]", colorYellow
	default:
		return "[-]", colorRed
	}
}

func symbolLevelEncoder(colored bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		symbol, color := levelSymbol(l)
		if colored {
			enc.AppendString(color + symbol + colorReset)
			return
		}
		enc.AppendString(symbol)
	}
}

// LevelName is the lowercase level name used in JSON output.
func LevelName(l zapcore.Level) string {
	if l == SuccessLevel {
		return "success"
	}
	return l.String()
}

func newConsoleEncoder(colored bool) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = ""
	encoderConfig.NameKey = ""
	encoderConfig.CallerKey = ""
	encoderConfig.StacktraceKey = ""
	encoderConfig.ConsoleSeparator = " "
	encoderConfig.EncodeLevel = symbolLevelEncoder(colored)
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func newJSONEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	encoderConfig.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(LevelName(l))
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// GetLogger returns the global logger, or a no-op logger before Initialize.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	return zap.NewNop()
}

// Sync flushes the global logger, ignoring the errors stdout and stderr
// report on some platforms.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil {
		msg := err.Error()
		if !strings.Contains(msg, "sync /dev/stdout") &&
			!strings.Contains(msg, "invalid argument") &&
			!strings.Contains(msg, "inappropriate ioctl") &&
			!strings.Contains(msg, "operation not supported") {
			fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
		}
	}
}
