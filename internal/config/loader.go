package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FILON_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FILON_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Instruments ──
	setStringSlice(&cfg.Instruments, "FILON_INSTRUMENTS")

	// ── Monitor ──
	setDuration(&cfg.Monitor.PollInterval, "FILON_MONITOR_POLL_INTERVAL")
	setDuration(&cfg.Monitor.QuoteTimeout, "FILON_MONITOR_QUOTE_TIMEOUT")
	setFloat64(&cfg.Monitor.MinSpreadPct, "FILON_MONITOR_MIN_SPREAD_PCT")
	setFloat64(&cfg.Monitor.DefaultFeePct, "FILON_MONITOR_DEFAULT_FEE_PCT")

	// ── Trading ──
	setBool(&cfg.Trading.AutoTrade, "FILON_TRADING_AUTO_TRADE")
	setFloat64(&cfg.Trading.Quantity, "FILON_TRADING_QUANTITY")

	// ── Risk ──
	setFloat64(&cfg.Risk.DailyLossLimit, "FILON_RISK_DAILY_LOSS_LIMIT")
	setFloat64(&cfg.Risk.MaxExposure, "FILON_RISK_MAX_EXPOSURE")
	setInt(&cfg.Risk.MaxConsecutiveFailures, "FILON_RISK_MAX_CONSECUTIVE_FAILURES")

	// ── Inventory ──
	setBool(&cfg.Inventory.Enabled, "FILON_INVENTORY_ENABLED")
	setDuration(&cfg.Inventory.Interval, "FILON_INVENTORY_INTERVAL")
	setFloat64(&cfg.Inventory.DriftThresholdPct, "FILON_INVENTORY_DRIFT_THRESHOLD_PCT")

	// ── Secrets ──
	setStr(&cfg.Secrets.Path, "FILON_SECRETS_PATH")
	setStr(&cfg.Secrets.Password, "FILON_SECRETS_PASSWORD")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "FILON_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "FILON_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "FILON_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FILON_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FILON_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FILON_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FILON_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FILON_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FILON_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FILON_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FILON_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FILON_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FILON_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FILON_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FILON_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FILON_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FILON_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FILON_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.TTL, "FILON_REDIS_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FILON_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FILON_S3_REGION")
	setStr(&cfg.S3.Bucket, "FILON_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FILON_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FILON_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FILON_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FILON_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "FILON_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "FILON_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "FILON_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FILON_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FILON_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FILON_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.AuthToken, "FILON_SERVER_AUTH_TOKEN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FILON_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FILON_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FILON_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FILON_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "FILON_MODE")
	setStr(&cfg.LogLevel, "FILON_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
