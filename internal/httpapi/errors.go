package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"jobreview-engine/internal/ingest"
	"jobreview-engine/internal/persist"
	"jobreview-engine/internal/review"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Hint      string `json:"hint,omitempty"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeErr maps domain errors onto status codes.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, review.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, review.ErrInvalidDecision):
		status, code = http.StatusBadRequest, "invalid_decision"
	case errors.Is(err, review.ErrUnknownColumn):
		status, code = http.StatusBadRequest, "unknown_column"
	case errors.Is(err, persist.ErrLocked):
		status, code = http.StatusConflict, "dataset_locked"
	case errors.Is(err, ingest.ErrAlreadyRunning):
		status, code = http.StatusConflict, "already_running"
	}

	var e APIError
	e.Error.Code = code
	e.Error.Message = err.Error()
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		e.Error.Hint = hints[0]
	}
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}
