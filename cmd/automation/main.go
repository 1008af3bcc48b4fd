// Command automation runs the marketing automation engine: the HTTP intake
// and operator API, the tick-driven worker, and the abandoned-checkout
// scanner, all in one process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/leadforge/automation/internal/adapters/ticker"
	"github.com/leadforge/automation/internal/bootstrap"
	"github.com/leadforge/automation/internal/devseed"
)

func main() {
	logger := bootstrap.InitLogger()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.ConnectDB(cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := bootstrap.RunMigrations(ctx, db, cfg.Postgres, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := bootstrap.ConnectRedis(cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("failed to close redis client", "error", err)
			}
		}()
	}

	app, err := bootstrap.BuildApp(bootstrap.BuildAppOptions{
		Config: cfg,
		DB:     db,
		Redis:  redisClient,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	if cfg.IsDev {
		if err := devseed.Seed(ctx, app.Automations, logger); err != nil {
			logger.Error("failed to seed development data", "error", err)
			os.Exit(1)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bootstrap.ServeHTTP(gctx, cfg, app, logger)
	})
	if cfg.Worker.InternalTickInterval > 0 {
		runner, err := ticker.NewRunner(ticker.RunnerOptions{
			Worker:   app.Worker,
			Interval: cfg.Worker.InternalTickInterval,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("failed to build tick runner", "error", err)
			os.Exit(1)
		}
		g.Go(func() error { return runner.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
