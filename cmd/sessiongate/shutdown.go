package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/sessiongate/internal/config"
	"github.com/vyrodovalexey/sessiongate/internal/observability"
	"github.com/vyrodovalexey/sessiongate/internal/session"
)

// run starts the background components and the server, then blocks until
// a shutdown signal arrives.
func run(app *application, configPath string, logger observability.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.start(ctx, logger)
	watcher := startConfigWatcher(ctx, app, configPath, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", observability.String("address", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		logger.Error("http server error", observability.Error(err))
	}

	app.shutdown(watcher, logger)

	if len(errCh) > 0 {
		os.Exit(1)
	}
}

// start launches the background scavenger of repositories that have one.
func (a *application) start(ctx context.Context, logger observability.Logger) {
	if scavenger, ok := a.repository.(session.Scavenger); ok {
		scavenger.Start(ctx)
		logger.Info("session scavenger started",
			observability.Duration("interval", time.Duration(a.config.Sessions.ScavengeInterval)),
		)
	}
}

// startConfigWatcher starts the configuration watcher. Reloaded system
// mappings are pushed to the boundary.
func startConfigWatcher(
	ctx context.Context,
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(newCfg *config.Config) {
		logger.Info("configuration changed, reloading systems")
		app.boundary.UpdateSystems(newCfg.Systems)
	}, config.WithLogger(logger))
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}

	return watcher
}

// shutdown stops every component in reverse start order.
func (a *application) shutdown(watcher *config.Watcher, logger observability.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.config.Server.ShutdownTimeout))
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop http server gracefully", observability.Error(err))
		}
	}

	if scavenger, ok := a.repository.(session.Scavenger); ok {
		scavenger.Stop()
	}

	if err := a.repository.Close(); err != nil {
		logger.Error("failed to close session repository", observability.Error(err))
	}

	if err := a.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("sessiongate stopped")
}
