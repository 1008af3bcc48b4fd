package httpx

import (
	"context"
	"net/http"
)

// HealthChecker reports the readiness of one dependency.
type HealthChecker func(ctx context.Context) error

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	// Checks maps a dependency name to its probe. Nil probes are skipped.
	Checks map[string]HealthChecker
}

// Healthz reports overall health. Any failing dependency yields 503 with a
// per-dependency breakdown.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.Checks))
	for name, check := range h.Checks {
		if check == nil {
			continue
		}
		if err := check(r.Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]any{"status": "ok", "dependencies": deps}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	WriteJSON(w, status, body)
}
