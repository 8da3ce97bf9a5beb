package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/lucky2025-star/filon/internal/blob/s3"
	"github.com/lucky2025-star/filon/internal/cache/redis"
	"github.com/lucky2025-star/filon/internal/config"
	"github.com/lucky2025-star/filon/internal/domain"
	"github.com/lucky2025-star/filon/internal/engine"
	"github.com/lucky2025-star/filon/internal/gateway"
	"github.com/lucky2025-star/filon/internal/monitor"
	"github.com/lucky2025-star/filon/internal/notify"
	"github.com/lucky2025-star/filon/internal/risk"
	"github.com/lucky2025-star/filon/internal/secrets"
	"github.com/lucky2025-star/filon/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. Optional
// members (stores, cache, blob client) are nil when the corresponding
// subsystem is disabled in configuration.
type Dependencies struct {
	Gateways   *gateway.Manager
	Aggregator *monitor.Aggregator
	Detector   *engine.Detector
	Gate       *risk.Gate

	TradeStore   domain.TradeStore
	BalanceStore domain.BalanceStore
	Cache        domain.StateCache
	Blob         *s3blob.Client

	Notifier *notify.Notifier
}

// noCredentials is the credential source used when no secrets store is
// configured. Every venue then runs quote-only.
type noCredentials struct{}

func (noCredentials) Get(name string) (string, error) {
	return "", domain.ErrNotFound
}

// Wire constructs all concrete dependencies from the configuration and
// returns them with a cleanup function to be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// Credentials. The store is only opened when a password is available;
	// monitor mode typically runs without one and stays quote-only.
	var creds gateway.CredentialSource = noCredentials{}
	if cfg.Secrets.Path != "" && cfg.Secrets.Password != "" {
		store, err := secrets.Open(cfg.Secrets.Path, cfg.Secrets.Password)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: secrets: %w", err)
		}
		creds = store
	}

	// Venue gateways.
	venues := make(map[string]gateway.VenueSettings)
	feePct := make(map[string]float64)
	for _, name := range cfg.EnabledVenues() {
		vc := cfg.Venues[name]
		venues[name] = gateway.VenueSettings{BaseURL: vc.BaseURL}
		feePct[name] = vc.FeePct
	}
	gateways, err := gateway.NewManager(gateway.ManagerConfig{
		Venues: venues,
		Logger: logger,
	}, creds)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: gateways: %w", err)
	}
	deps.Gateways = gateways

	deps.Aggregator = monitor.NewAggregator(gateways, monitor.AggregatorConfig{
		QuoteTimeout: cfg.Monitor.QuoteTimeout.Duration,
		Logger:       logger,
	})
	deps.Detector = engine.NewDetector(engine.DetectorConfig{
		FeePct:        feePct,
		DefaultFeePct: cfg.Monitor.DefaultFeePct,
		Logger:        logger,
	})
	deps.Gate = risk.NewGate(risk.GateConfig{
		DailyLossLimit:         cfg.Risk.DailyLossLimit,
		MaxExposure:            cfg.Risk.MaxExposure,
		MaxConsecutiveFailures: cfg.Risk.MaxConsecutiveFailures,
	}, logger)

	// PostgreSQL audit stores.
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.BalanceStore = postgres.NewBalanceStore(pool)
	}

	// Redis state cache for external dashboards.
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewStateCache(redisClient, cfg.Redis.TTL.Duration)
	}

	// S3 for the trade archive.
	if cfg.Archive.Enabled {
		blobClient, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = blobClient.Close() })
		deps.Blob = blobClient
	}

	// Notifications.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
