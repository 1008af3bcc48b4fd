package httpx

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	apperrors "github.com/leadforge/automation/internal/errors"
)

// WriteAppError maps the application error taxonomy onto HTTP status codes.
func WriteAppError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	errCode := "internal_error"

	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNotFound:
		code = http.StatusNotFound
		errCode = "not_found"
	case apperrors.ErrCodeValidation:
		code = http.StatusBadRequest
		errCode = "validation_failed"
	case apperrors.ErrCodeConflict:
		code = http.StatusConflict
		errCode = "conflict"
	case apperrors.ErrCodeUnavailable:
		code = http.StatusServiceUnavailable
		errCode = "unavailable"
	}

	WriteError(w, ErrorParams{Code: code, ErrCode: errCode, Err: err})
}

// pathID extracts and validates the {id} path segment. Rejecting malformed
// UUIDs here keeps them out of the store layer, where the uuid cast would
// surface as a query error instead of a clean 404.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		WriteAppError(w, apperrors.NotFoundf("no resource with id %q", id))
		return "", false
	}
	return id, true
}

// queryInt parses an integer query parameter, falling back on absence or
// garbage.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
