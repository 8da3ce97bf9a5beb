package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/lucky2025-star/filon/internal/blob/s3"
	"github.com/lucky2025-star/filon/internal/bot"
	"github.com/lucky2025-star/filon/internal/executor"
	"github.com/lucky2025-star/filon/internal/inventory"
	"github.com/lucky2025-star/filon/internal/server"
	"github.com/lucky2025-star/filon/internal/server/handler"
	"github.com/lucky2025-star/filon/internal/server/ws"
)

// runOptions selects which subsystems a mode starts on top of the core
// poll/detect loop.
type runOptions struct {
	trading   bool
	inventory bool
	archive   bool
}

// MonitorMode runs detection only: no executor exists, so auto-trade cannot
// be enabled even through the API.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.run(ctx, deps, runOptions{})
}

// TradeMode runs detection plus execution.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")
	return a.run(ctx, deps, runOptions{trading: true})
}

// FullMode runs every subsystem: trading, inventory tracking, and the
// cold archive.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	return a.run(ctx, deps, runOptions{trading: true, inventory: true, archive: true})
}

// hubBroadcaster adapts the WebSocket hub to the loop's Broadcaster.
type hubBroadcaster struct {
	hub *ws.Hub
}

func (b hubBroadcaster) Broadcast(event bot.Event) {
	b.hub.Broadcast(event)
}

func (a *App) run(ctx context.Context, deps *Dependencies, opts runOptions) error {
	g, ctx := errgroup.WithContext(ctx)

	var hub *ws.Hub
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	var exec *executor.Executor
	if opts.trading {
		exec = executor.NewExecutor(deps.Gateways, a.logger)
	}

	loopDeps := bot.Deps{
		Aggregator: deps.Aggregator,
		Detector:   deps.Detector,
		Gate:       deps.Gate,
		Executor:   exec,
		Store:      deps.TradeStore,
		Cache:      deps.Cache,
		Notifier:   deps.Notifier,
	}
	if hub != nil {
		loopDeps.Broadcaster = hubBroadcaster{hub: hub}
	}

	loop, err := bot.New(bot.Config{
		Instruments:   a.cfg.Instruments,
		PollInterval:  a.cfg.Monitor.PollInterval.Duration,
		MinSpreadPct:  a.cfg.Monitor.MinSpreadPct,
		TradeQuantity: a.cfg.Trading.Quantity,
		AutoTrade:     opts.trading && a.cfg.Trading.AutoTrade,
		Logger:        a.logger,
	}, loopDeps)
	if err != nil {
		return err
	}
	g.Go(func() error {
		return loop.Run(ctx)
	})

	if opts.inventory && a.cfg.Inventory.Enabled {
		inv := inventory.NewManager(deps.Gateways, deps.BalanceStore, inventory.ManagerConfig{
			Interval:          a.cfg.Inventory.Interval.Duration,
			CallTimeout:       a.cfg.Monitor.QuoteTimeout.Duration,
			DriftThresholdPct: a.cfg.Inventory.DriftThresholdPct,
			Logger:            a.logger,
		}).WithPrices(deps.Aggregator)
		g.Go(func() error {
			return inv.RunLoop(ctx)
		})
	}

	if opts.archive && a.cfg.Archive.Enabled && deps.Blob != nil && deps.TradeStore != nil {
		arch := s3blob.NewArchiver(deps.Blob, deps.TradeStore, s3blob.ArchiverConfig{
			RetentionDays: a.cfg.Archive.RetentionDays,
			Interval:      a.cfg.Archive.Interval.Duration,
			Logger:        a.logger,
		})
		g.Go(func() error {
			return arch.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, loop, hub)
	}

	return g.Wait()
}

// startServer adds the HTTP server goroutines to the errgroup and shuts the
// server down when the context is cancelled.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, loop *bot.Loop, hub *ws.Hub) {
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(),
		Status:  handler.NewStatusHandler(loop, deps.Gate, a.cfg.Mode),
		Market:  handler.NewMarketHandler(loop),
		Risk:    handler.NewRiskHandler(deps.Gate, a.logger),
		Trades:  handler.NewTradeHandler(deps.TradeStore, deps.BalanceStore, deps.Gate, a.logger),
		Control: handler.NewControlHandler(loop, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		AuthToken:   a.cfg.Server.AuthToken,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
