package httpx

import (
	"net/http"

	"github.com/leadforge/automation/internal/service"
)

// WorkerHandlers serves the tick endpoint invoked by the external scheduler.
type WorkerHandlers struct {
	Worker *service.WorkerService
}

// Tick runs one worker cycle synchronously and returns its summary.
// Individual job failures are recorded on the rows, not surfaced here; only a
// claim-level failure produces an error status.
func (h *WorkerHandlers) Tick(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Worker.Tick(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "tick_failed",
			Err:     err,
		})
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
