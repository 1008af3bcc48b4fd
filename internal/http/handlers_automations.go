package httpx

import (
	"net/http"

	"github.com/leadforge/automation/internal/domain/model"
	"github.com/leadforge/automation/internal/service"
)

// AutomationHandlers serves the operator automation CRUD endpoints.
type AutomationHandlers struct {
	Svc *service.AutomationService
}

// Create creates a new automation definition.
func (h *AutomationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAutomationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	automation, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, automation)
}

// List returns automations, newest first.
func (h *AutomationHandlers) List(w http.ResponseWriter, r *http.Request) {
	automations, err := h.Svc.List(r.Context(),
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"automations": automations})
}

// Get returns one automation by ID.
func (h *AutomationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	automation, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, automation)
}

// Update applies a partial update to an automation.
func (h *AutomationHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.UpdateAutomationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	automation, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, automation)
}

// Delete removes an automation definition.
func (h *AutomationHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Svc.Delete(r.Context(), id); err != nil {
		WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
