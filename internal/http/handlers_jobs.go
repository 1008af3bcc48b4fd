package httpx

import (
	"net/http"

	"github.com/leadforge/automation/internal/domain/model"
	"github.com/leadforge/automation/internal/service"
)

// JobHandlers serves the operator job queue endpoints.
type JobHandlers struct {
	Svc *service.JobService
}

// List returns jobs filtered by optional automation_id and status query
// parameters.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts := model.JobListOptions{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("automation_id"); v != "" {
		opts.AutomationID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := model.JobStatus(v)
		opts.Status = &status
	}

	jobs, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// Get returns one job by ID.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	job, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// Stats returns job counts grouped by status.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// Cancel cancels one pending job.
func (h *JobHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Svc.Cancel(r.Context(), id); err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": string(model.JobStatusCancelled)})
}

// CancelPending cancels every pending job of one automation.
func (h *JobHandlers) CancelPending(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cancelled, err := h.Svc.CancelPendingForAutomation(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int{"cancelled": cancelled})
}
