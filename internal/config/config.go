// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FILON_* environment variables.
type Config struct {
	Instruments []string               `toml:"instruments"`
	Venues      map[string]VenueConfig `toml:"venues"`
	Monitor     MonitorConfig          `toml:"monitor"`
	Trading     TradingConfig          `toml:"trading"`
	Risk        RiskConfig             `toml:"risk"`
	Inventory   InventoryConfig        `toml:"inventory"`
	Secrets     SecretsConfig          `toml:"secrets"`
	Postgres    PostgresConfig         `toml:"postgres"`
	Redis       RedisConfig            `toml:"redis"`
	S3          S3Config               `toml:"s3"`
	Archive     ArchiveConfig          `toml:"archive"`
	Server      ServerConfig           `toml:"server"`
	Notify      NotifyConfig           `toml:"notify"`
	Mode        string                 `toml:"mode"`
	LogLevel    string                 `toml:"log_level"`
}

// VenueConfig holds per-venue parameters. Credentials live in the encrypted
// secrets store, never here.
type VenueConfig struct {
	Enabled bool `toml:"enabled"`
	// BaseURL overrides the venue's default API endpoint; empty uses the
	// production endpoint.
	BaseURL string `toml:"base_url"`
	// FeePct is the venue's taker fee in percentage points (0.1 = 0.1%).
	FeePct float64 `toml:"fee_pct"`
}

// MonitorConfig holds price polling parameters.
type MonitorConfig struct {
	PollInterval duration `toml:"poll_interval"`
	QuoteTimeout duration `toml:"quote_timeout"`
	// MinSpreadPct is the minimum net spread, in percentage points, for an
	// opportunity to be reported.
	MinSpreadPct float64 `toml:"min_spread_pct"`
	// DefaultFeePct is used for venues without an explicit fee_pct.
	DefaultFeePct float64 `toml:"default_fee_pct"`
}

// TradingConfig holds execution parameters.
type TradingConfig struct {
	// AutoTrade enables execution at startup; it can be flipped at runtime
	// through the API.
	AutoTrade bool `toml:"auto_trade"`
	// Quantity is the base-asset size of every trade.
	Quantity float64 `toml:"quantity"`
}

// RiskConfig holds the circuit-breaker limits.
type RiskConfig struct {
	// DailyLossLimit is the daily P&L floor and must be negative.
	DailyLossLimit float64 `toml:"daily_loss_limit"`
	MaxExposure    float64 `toml:"max_exposure"`
	// MaxConsecutiveFailures is the allowed failure streak; zero means the
	// built-in default.
	MaxConsecutiveFailures int `toml:"max_consecutive_failures"`
}

// InventoryConfig holds cross-venue balance tracking parameters.
type InventoryConfig struct {
	Enabled           bool     `toml:"enabled"`
	Interval          duration `toml:"interval"`
	DriftThresholdPct float64  `toml:"drift_threshold_pct"`
}

// SecretsConfig locates the encrypted credential store.
type SecretsConfig struct {
	Path string `toml:"path"`
	// Password is normally injected via FILON_SECRETS_PASSWORD.
	Password string `toml:"password"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	TTL        duration `toml:"ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig holds cold-archival parameters for aged trade records.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// AuthToken, when set, is required as a Bearer token (or X-API-Key
	// header) on every API request.
	AuthToken string `toml:"auth_token"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Instruments: []string{"BTC/USDT", "ETH/USDT"},
		Venues: map[string]VenueConfig{
			"binance": {Enabled: true, FeePct: 0.1},
			"kucoin":  {Enabled: true, FeePct: 0.1},
			"okx":     {Enabled: true, FeePct: 0.1},
			"gateio":  {Enabled: true, FeePct: 0.2},
		},
		Monitor: MonitorConfig{
			PollInterval:  duration{5 * time.Second},
			QuoteTimeout:  duration{3 * time.Second},
			MinSpreadPct:  0.3,
			DefaultFeePct: 0.1,
		},
		Trading: TradingConfig{
			AutoTrade: false,
			Quantity:  0.001,
		},
		Risk: RiskConfig{
			DailyLossLimit:         -100,
			MaxExposure:            1000,
			MaxConsecutiveFailures: 3,
		},
		Inventory: InventoryConfig{
			Enabled:           true,
			Interval:          duration{5 * time.Minute},
			DriftThresholdPct: 10,
		},
		Secrets: SecretsConfig{
			Path: "secrets.enc",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "filon",
			User:          "filon",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			TTL:        duration{time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "filon-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"trade", "trade_partial", "risk"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"trade":   true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// EnabledVenues returns the names of all enabled venues.
func (c *Config) EnabledVenues() []string {
	var out []string
	for name, v := range c.Venues {
		if v.Enabled {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, trade, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Instruments) == 0 {
		errs = append(errs, "instruments: at least one instrument is required")
	}
	for _, ins := range c.Instruments {
		if !strings.Contains(ins, "/") {
			errs = append(errs, fmt.Sprintf("instruments: %q must use BASE/QUOTE form (e.g. BTC/USDT)", ins))
		}
	}

	if len(c.EnabledVenues()) < 2 {
		errs = append(errs, "venues: at least two venues must be enabled for cross-venue detection")
	}
	for name, v := range c.Venues {
		if v.FeePct < 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: fee_pct must not be negative", name))
		}
	}

	if c.Monitor.PollInterval.Duration <= 0 {
		errs = append(errs, "monitor: poll_interval must be positive")
	}
	if c.Monitor.QuoteTimeout.Duration <= 0 {
		errs = append(errs, "monitor: quote_timeout must be positive")
	}
	if c.Monitor.QuoteTimeout.Duration > c.Monitor.PollInterval.Duration {
		errs = append(errs, "monitor: quote_timeout must not exceed poll_interval")
	}
	if c.Monitor.MinSpreadPct < 0 {
		errs = append(errs, "monitor: min_spread_pct must not be negative")
	}

	trading := c.Mode == "trade" || c.Mode == "full"
	if trading {
		if c.Trading.Quantity <= 0 {
			errs = append(errs, "trading: quantity must be > 0 for mode "+c.Mode)
		}
		if c.Secrets.Path == "" {
			errs = append(errs, "secrets: path is required for mode "+c.Mode)
		}
		if c.Secrets.Password == "" {
			errs = append(errs, "secrets: password is required for mode "+c.Mode+" (set FILON_SECRETS_PASSWORD)")
		}
	}

	if c.Risk.DailyLossLimit >= 0 {
		errs = append(errs, "risk: daily_loss_limit must be negative")
	}
	if c.Risk.MaxExposure <= 0 {
		errs = append(errs, "risk: max_exposure must be > 0")
	}
	if c.Risk.MaxConsecutiveFailures < 0 {
		errs = append(errs, "risk: max_consecutive_failures must not be negative")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Archive.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "archive: requires postgres to be enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
