package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const baseYAML = `
environment: test
server:
  port: 8080
  read_timeout: 10s
scanner:
  symbols: [SPY, QQQ]
  interval: 1m
  bar_range: 5d
  bar_size: 5m
market:
  thresholds:
    MID_DAY:
      stock_move: 0.002
      spread_limit: 0.10
      strict: true
sink:
  backend: none
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseYAML))
	require.NoError(t, err)

	require.Equal(t, "test", cfg.Environment)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, []string{"SPY", "QQQ"}, cfg.Scanner.Symbols)
	require.Equal(t, time.Minute, cfg.Scanner.Interval)
	require.Equal(t, 0.10, cfg.Market.Thresholds["MID_DAY"].SpreadLimit)
	require.True(t, cfg.Market.Thresholds["MID_DAY"].Strict)
}

// The default config the binary boots with must always pass validation.
func TestLoadShippedDefaultConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Scanner.Symbols)
	for phase := range cfg.Market.Thresholds {
		require.Contains(t, []string{"PRE_MARKET", "OPENING_DRIVE", "MID_DAY", "POST_MARKET", "CLOSED"}, phase)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: test\nscanner:\n  symbols: []\n"))
	require.ErrorContains(t, err, "symbols")

	_, err = Load(writeConfig(t, "scanner:\n  symbols: [SPY]\n"))
	require.ErrorContains(t, err, "environment")

	_, err = Load(writeConfig(t, "environment: test\nscanner:\n  symbols: [SPY]\nsink:\n  backend: postgres\n"))
	require.ErrorContains(t, err, "sink.backend")

	_, err = Load(writeConfig(t, "environment: test\nscanner:\n  symbols: [SPY]\ndecision:\n  mode: http\n"))
	require.ErrorContains(t, err, "decision.url")

	_, err = Load(writeConfig(t, "environment: test\nscanner:\n  symbols: [SPY]\nmarket:\n  thresholds:\n    LUNCH:\n      strict: true\n"))
	require.ErrorContains(t, err, "unknown phase")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "AAPL,MSFT")
	t.Setenv("SINK_BACKEND", "kafka")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DECISION_URL", "http://adjudicator:9000")

	cfg, err := LoadWithEnv(writeConfig(t, baseYAML))
	require.NoError(t, err)

	require.Equal(t, []string{"AAPL", "MSFT"}, cfg.Scanner.Symbols)
	require.Equal(t, "kafka", cfg.Sink.Backend)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, "http", cfg.Decision.Mode)
	require.Equal(t, "http://adjudicator:9000", cfg.Decision.URL)
}
