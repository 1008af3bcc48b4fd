package httpx

import (
	"net/http"

	"github.com/leadforge/automation/internal/domain/model"
	"github.com/leadforge/automation/internal/service"
)

// EventHandlers serves the behavioral event intake endpoint.
type EventHandlers struct {
	Scheduler *service.SchedulerService
}

// Ingest accepts one behavioral event, evaluates it against enabled
// automations, and schedules jobs for matches. The response reports counts
// only; the caller never learns automation internals.
func (h *EventHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var event model.BehavioralEvent
	if !DecodeJSON(w, r, &event) {
		return
	}

	outcome, err := h.Scheduler.HandleEvent(r.Context(), &event)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, outcome)
}
