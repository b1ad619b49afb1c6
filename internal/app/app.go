// Package app wires the configured dependencies together and runs the
// scanner in one of its modes: a single scan cycle or a continuous watch
// loop on a refresh interval.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/polyarb/arbscan/internal/config"
)

// App is the top-level application. Construct it with New, run it with Run,
// and release resources with Close.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	deps    *Dependencies
	cleanup func()
}

// New builds an App from the given configuration, connecting to every
// enabled backend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, cleanup, err := Wire(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "app")),
		deps:    deps,
		cleanup: cleanup,
	}, nil
}

// Run executes the configured mode until it completes or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", a.cfg.Mode),
		slog.Duration("refresh_interval", a.cfg.Fetch.RefreshInterval.Duration),
	)

	switch a.cfg.Mode {
	case "scan":
		return a.runScan(ctx)
	case "watch":
		return a.runWatch(ctx)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}

// runScan performs a single refresh cycle and writes the detection result to
// stdout as JSON.
func (a *App) runScan(ctx context.Context) error {
	update, err := a.deps.Refresh.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}

	// Flush background snapshot writes before reporting.
	a.deps.Refresh.Wait()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(update); err != nil {
		return fmt.Errorf("app: encode result: %w", err)
	}

	a.deps.Notifier.AnnounceBest(ctx, update.Result.Best)
	return nil
}

// runWatch refreshes on the configured interval until ctx is canceled,
// announcing the best opportunity after each cycle.
func (a *App) runWatch(ctx context.Context) error {
	updates, unsubscribe := a.deps.Refresh.Subscribe()
	defer unsubscribe()

	a.deps.Scheduler.Start(ctx, a.cfg.Fetch.RefreshInterval.Duration)
	defer a.deps.Scheduler.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down",
				slog.Int64("persist_failures", a.deps.Refresh.PersistFailures()),
			)
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			a.deps.Notifier.AnnounceBest(ctx, update.Result.Best)
		}
	}
}

// Close releases every resource acquired during construction. Safe to call
// once after Run returns.
func (a *App) Close() {
	a.deps.Refresh.Wait()
	if a.cleanup != nil {
		a.cleanup()
	}
}
