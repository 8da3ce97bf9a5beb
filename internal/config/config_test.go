package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate(), "shipped defaults must be valid in monitor mode")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "full"
instruments = ["SOL/USDT"]

[monitor]
poll_interval = "2s"
min_spread_pct = 0.5

[venues.binance]
enabled = true
fee_pct = 0.075
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, []string{"SOL/USDT"}, cfg.Instruments)
	assert.Equal(t, 2*time.Second, cfg.Monitor.PollInterval.Duration)
	assert.Equal(t, 0.5, cfg.Monitor.MinSpreadPct)
	assert.Equal(t, 0.075, cfg.Venues["binance"].FeePct)
	// Untouched sections keep their defaults.
	assert.Equal(t, -100.0, cfg.Risk.DailyLossLimit)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "monitor"`), 0o600))

	t.Setenv("FILON_MODE", "trade")
	t.Setenv("FILON_TRADING_QUANTITY", "0.25")
	t.Setenv("FILON_SECRETS_PASSWORD", "pw")
	t.Setenv("FILON_MONITOR_POLL_INTERVAL", "7s")
	t.Setenv("FILON_INSTRUMENTS", "BTC/USDT, ETH/USDT")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "trade", cfg.Mode)
	assert.Equal(t, 0.25, cfg.Trading.Quantity)
	assert.Equal(t, "pw", cfg.Secrets.Password)
	assert.Equal(t, 7*time.Second, cfg.Monitor.PollInterval.Duration)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Instruments)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "yolo"
	cfg.Instruments = nil
	cfg.Risk.DailyLossLimit = 50
	cfg.Monitor.PollInterval = duration{0}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "at least one instrument")
	assert.Contains(t, err.Error(), "daily_loss_limit must be negative")
	assert.Contains(t, err.Error(), "poll_interval must be positive")
}

func TestValidateTradingModeNeedsSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Trading.Quantity = 0
	cfg.Secrets.Password = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity must be > 0")
	assert.Contains(t, err.Error(), "secrets: password is required")
}

func TestValidateNeedsTwoVenues(t *testing.T) {
	cfg := Defaults()
	cfg.Venues = map[string]VenueConfig{"binance": {Enabled: true}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two venues")
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Secrets.Password = "hunter2"
	cfg.Postgres.Password = "pgpass"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Secrets.Password)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// The original is untouched and isolated from the copy.
	assert.Equal(t, "hunter2", cfg.Secrets.Password)
	red.Instruments[0] = "XXX"
	assert.NotEqual(t, "XXX", cfg.Instruments[0])
}
