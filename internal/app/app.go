// Package app provides the top-level application lifecycle for the triangular
// arbitrage bot. It wires together the connector, strategy engine, depth feed,
// kill switch, status server and notifications, and runs them under one
// errgroup until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantverse/triarb/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the run loops, and blocks until the
// context is cancelled or a loop fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("connector", a.cfg.Connector.Name),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	// Tick loop: periodic opportunity evaluation plus the kill switch check.
	g.Go(func() error {
		return a.tickLoop(ctx, deps)
	})

	// Event loop: drain connector order notifications into the engine.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-deps.Conn.Events():
				if !ok {
					return nil
				}
				deps.Engine.HandleEvent(ctx, ev)
			}
		}
	})

	// Depth feed.
	if deps.Feed != nil {
		g.Go(func() error {
			return deps.Feed.Run(ctx)
		})
	}

	// Status server.
	if deps.Server != nil {
		g.Go(func() error {
			return deps.Server.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return deps.Server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()

	// Leave no order outstanding on shutdown.
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	deps.Engine.Stop(stopCtx)

	return err
}

// tickLoop drives the engine at the configured interval and trips the kill
// switch when cumulative performance breaches the floor.
func (a *App) tickLoop(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(a.cfg.Strategy.TickInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			deps.Engine.OnTick(ctx)

			if deps.Guard.Check() {
				reason := fmt.Sprintf("kill switch: total profit %.4f%% breached floor %.4f%%",
					deps.Engine.TotalProfitPct(), a.cfg.Strategy.KillSwitchRate)
				deps.Engine.Stop(ctx)
				deps.Engine.Disable(reason)
				if deps.Notifier != nil {
					if err := deps.Notifier.Notify(ctx, "kill_switch", "Kill switch tripped", reason); err != nil {
						a.logger.WarnContext(ctx, "kill switch notification failed",
							slog.String("error", err.Error()))
					}
				}
			}
		}
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
