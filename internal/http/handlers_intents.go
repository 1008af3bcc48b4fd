package httpx

import (
	"net/http"

	"github.com/leadforge/automation/internal/domain/model"
	"github.com/leadforge/automation/internal/service"
)

// IntentHandlers serves the checkout intent endpoints used by the commerce
// collaborator.
type IntentHandlers struct {
	Svc *service.IntentService
}

// Create records a new pending checkout intent.
func (h *IntentHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateIntentRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	intent, err := h.Svc.Record(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, intent)
}

// Convert marks an intent as converted after the checkout completed.
func (h *IntentHandlers) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Svc.Convert(r.Context(), id); err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": string(model.IntentStatusConverted)})
}
