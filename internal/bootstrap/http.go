package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/leadforge/automation/config"
	httpx "github.com/leadforge/automation/internal/http"
)

// ServeHTTP builds the router, starts the HTTP server, and blocks until the
// context is cancelled, then shuts down gracefully within the configured
// timeout.
func ServeHTTP(ctx context.Context, cfg config.AppConfig, app *App, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	healthChecks := map[string]httpx.HealthChecker{
		"postgres": func(ctx context.Context) error { return app.DB.PingContext(ctx) },
	}
	if app.Redis != nil {
		healthChecks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Scheduler:       app.Scheduler,
		Worker:          app.Worker,
		Jobs:            app.Jobs,
		Automations:     app.Automations,
		Intents:         app.Intents,
		WorkerTickToken: cfg.Worker.TickToken,
		HealthChecks:    healthChecks,
		MetricsRegistry: app.MetricsRegistry,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
