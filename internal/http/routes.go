package httpx

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadforge/automation/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Scheduler   *service.SchedulerService
	Worker      *service.WorkerService
	Jobs        *service.JobService
	Automations *service.AutomationService
	Intents     *service.IntentService
	// WorkerTickToken gates POST /api/worker/tick. Empty rejects all callers.
	WorkerTickToken string
	// HealthChecks maps dependency names to probes for /healthz.
	HealthChecks map[string]HealthChecker
	// MetricsRegistry backs /metrics. Nil disables the endpoint.
	MetricsRegistry *prometheus.Registry
	Logger          *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	health := &HealthHandlers{Checks: services.HealthChecks}
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("HEAD /healthz", health.Healthz)

	if services.MetricsRegistry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(
			services.MetricsRegistry,
			promhttp.HandlerOpts{},
		))
	}

	eventHandlers := &EventHandlers{Scheduler: services.Scheduler}
	mux.HandleFunc("POST /api/events", eventHandlers.Ingest)

	intentHandlers := &IntentHandlers{Svc: services.Intents}
	mux.HandleFunc("POST /api/intents", intentHandlers.Create)
	mux.HandleFunc("POST /api/intents/{id}/convert", intentHandlers.Convert)

	workerHandlers := &WorkerHandlers{Worker: services.Worker}
	tickOnly := RequireWorkerToken(services.WorkerTickToken)
	mux.Handle("POST /api/worker/tick", tickOnly(http.HandlerFunc(workerHandlers.Tick)))

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	mux.HandleFunc("GET /api/jobs", jobHandlers.List)
	mux.HandleFunc("GET /api/jobs/stats", jobHandlers.Stats)
	mux.HandleFunc("GET /api/jobs/{id}", jobHandlers.Get)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", jobHandlers.Cancel)

	automationHandlers := &AutomationHandlers{Svc: services.Automations}
	mux.HandleFunc("POST /api/automations", automationHandlers.Create)
	mux.HandleFunc("GET /api/automations", automationHandlers.List)
	mux.HandleFunc("GET /api/automations/{id}", automationHandlers.Get)
	mux.HandleFunc("PUT /api/automations/{id}", automationHandlers.Update)
	mux.HandleFunc("DELETE /api/automations/{id}", automationHandlers.Delete)
	mux.HandleFunc("POST /api/automations/{id}/cancel-pending", jobHandlers.CancelPending)

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
