package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/0x6d61/xssleech/internal/config"
)

func newBufferedLogger(cfg config.LoggerConfig, colored bool) (*zap.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(cfg, zapcore.AddSync(buf), colored), buf
}

func TestConsoleSymbols(t *testing.T) {
	logger, buf := newBufferedLogger(config.LoggerConfig{Level: "debug", Format: "console"}, false)

	logger.Debug("debugging")
	logger.Info("crawling", zap.String("url", "http://example.com"))
	Success(logger, "vulnerable")
	logger.Warn("skipping")
	logger.Error("failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "[~] debugging", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[*] crawling"), lines[1])
	assert.Contains(t, lines[1], `"url": "http://example.com"`)
	assert.Equal(t, "[+] vulnerable", lines[2])
	assert.Equal(t, "[!] skipping", lines[3])
	assert.Equal(t, "[-] failed", lines[4])
}

func TestSuccessIgnoresMinimumLevel(t *testing.T) {
	logger, buf := newBufferedLogger(config.LoggerConfig{Level: "error", Format: "console"}, false)

	logger.Info("hidden")
	logger.Warn("hidden too")
	Success(logger, "finding")

	assert.Equal(t, "[+] finding\n", buf.String())
}

func TestColoredSymbols(t *testing.T) {
	logger, buf := newBufferedLogger(config.LoggerConfig{Level: "info"}, true)

	Success(logger, "found")
	logger.Warn("careful")

	out := buf.String()
	assert.Contains(t, out, colorGreen+"[+]"+colorReset)
	assert.Contains(t, out, colorYellow+"[!]"+colorReset)
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	logger, buf := newBufferedLogger(config.LoggerConfig{Level: "loud"}, false)

	logger.Debug("not shown")
	logger.Info("shown")

	assert.Equal(t, "[*] shown\n", buf.String())
}

func TestJSONLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	logger, _ := newBufferedLogger(config.LoggerConfig{Level: "info", LogFile: path, MaxSize: 1}, false)

	Success(logger, "vulnerable", zap.String("url", "http://example.com/sign"))
	logger.Info("done")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "success", entry["level"])
	assert.Equal(t, "vulnerable", entry["msg"])
	assert.Equal(t, "http://example.com/sign", entry["url"])
}

func TestGlobalLoggerLifecycle(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	assert.NotNil(t, GetLogger(), "a no-op logger is returned before initialization")

	buf := &bytes.Buffer{}
	Initialize(config.LoggerConfig{Level: "info"}, zapcore.AddSync(buf), false)
	Initialize(config.LoggerConfig{Level: "debug"}, zapcore.AddSync(&bytes.Buffer{}), false)

	GetLogger().Info("first wins")
	GetLogger().Debug("filtered")
	Sync()

	assert.Equal(t, "[*] first wins\n", buf.String())
}
