package bootstrap

import (
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/leadforge/automation/config"
	"github.com/leadforge/automation/internal/data"
	"github.com/leadforge/automation/internal/mail"
	"github.com/leadforge/automation/internal/observability/metrics"
	"github.com/leadforge/automation/internal/service"
)

// App bundles the wired services and shared infrastructure of one process.
type App struct {
	Scheduler       *service.SchedulerService
	Worker          *service.WorkerService
	Scanner         *service.ScannerService
	Jobs            *service.JobService
	Automations     *service.AutomationService
	Intents         *service.IntentService
	Registry        *service.Registry
	MetricsRegistry *prometheus.Registry

	DB    *sql.DB
	Redis redis.UniversalClient
}

// BuildAppOptions holds the inputs for BuildApp.
type BuildAppOptions struct {
	Config config.AppConfig
	DB     *sql.DB
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// BuildApp wires repositories, caches, and services from the given
// infrastructure handles.
func BuildApp(opts BuildAppOptions) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	jobMetrics := metrics.NewJobMetrics(promRegistry)

	automationRepo := data.NewAutomationRepo(opts.DB)
	jobRepo := data.NewJobRepo(opts.DB)
	intentRepo := data.NewIntentRepo(opts.DB)

	var cache service.RegistryCacheStore
	if opts.Redis != nil {
		cache = data.NewRegistryCache(opts.Redis, cfg.Cache.RegistryTTL)
	}
	registry := service.NewRegistry(automationRepo, cache, logger)

	var sender mail.Sender
	if cfg.Mailer.Configured() {
		client, err := mail.NewClient(mail.Config{
			APIURL:      cfg.Mailer.APIURL,
			APIKey:      cfg.Mailer.APIKey,
			FromAddress: cfg.Mailer.FromAddress,
			FromName:    cfg.Mailer.FromName,
			Timeout:     cfg.Mailer.Timeout,
			RetryLimit:  cfg.Mailer.RetryLimit,
		})
		if err != nil {
			return nil, err
		}
		sender = client
	} else {
		logger.Warn("no mail transport configured; claimed jobs will fail permanently")
	}

	scheduler := service.NewSchedulerService(service.SchedulerServiceOptions{
		Jobs:        jobRepo,
		Registry:    registry,
		MaxAttempts: cfg.Worker.MaxAttempts,
		Metrics:     jobMetrics,
		Logger:      logger,
	})

	scanner := service.NewScannerService(service.ScannerServiceOptions{
		Intents:                 intentRepo,
		Registry:                registry,
		Scheduler:               scheduler,
		IntentBatchSize:         cfg.Scanner.IntentBatchSize,
		DefaultAbandonmentDelay: cfg.Scanner.DefaultAbandonmentDelay,
		Metrics:                 jobMetrics,
		Logger:                  logger,
	})

	worker := service.NewWorkerService(service.WorkerServiceOptions{
		Jobs:        jobRepo,
		Automations: automationRepo,
		Scanner:     scanner,
		Sender:      sender,
		BatchSize:   cfg.Worker.BatchSize,
		StoreRetry: data.BackoffConfig{
			MaxAttempts: cfg.Worker.StoreRetryAttempts,
			BaseDelay:   cfg.Worker.StoreRetryBaseDelay,
		},
		StuckAfter: cfg.Worker.StuckAfter,
		Metrics:    jobMetrics,
		Logger:     logger,
	})

	return &App{
		Scheduler: scheduler,
		Worker:    worker,
		Scanner:   scanner,
		Jobs: service.NewJobService(service.JobServiceOptions{
			Jobs:   jobRepo,
			Logger: logger,
		}),
		Automations: service.NewAutomationService(service.AutomationServiceOptions{
			Store:    automationRepo,
			Registry: registry,
			Logger:   logger,
		}),
		Intents: service.NewIntentService(service.IntentServiceOptions{
			Intents: intentRepo,
			Logger:  logger,
		}),
		Registry:        registry,
		MetricsRegistry: promRegistry,
		DB:              opts.DB,
		Redis:           opts.Redis,
	}, nil
}
